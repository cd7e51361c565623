package coords

import "math"

// equhorRad converts between azimuth/altitude and hour-angle/declination.
// Phi is the observer's latitude. Arguments are in radians.
// The transform is its own inverse: feeding the output back in recovers
// the input.
// Algorithm from https://metacpan.org/dist/Astro-Montenbruck/source/lib/Astro/Montenbruck/CoCo.pm
func equhorRad(x, y, phi float64) (float64, float64) {
	sx, sy, sphi := math.Sin(x), math.Sin(y), math.Sin(phi)
	cx, cy, cphi := math.Cos(x), math.Cos(y), math.Cos(phi)

	sq := (sy * sphi) + (cy * cphi * cx)
	q := math.Asin(sq)

	cp := (sy - (sphi * sq)) / (cphi * math.Cos(q))
	p := math.Acos(cp)
	if sx > 0 {
		p = 2*math.Pi - p
	}
	return p, q
}

func deg2rad(x float64) float64 {
	return x * math.Pi / 180
}

func rad2deg(x float64) float64 {
	return x * 180 / math.Pi
}

func equhorDeg(x, y, phi float64) (float64, float64) {
	x, y, phi = deg2rad(x), deg2rad(y), deg2rad(phi)
	p, q := equhorRad(x, y, phi)
	return rad2deg(p), rad2deg(q)
}

// EquatorialToHorizontal converts RA/Dec to Az/Alt using the context's
// sidereal time and latitude.
func EquatorialToHorizontal(eq Equatorial, ctx Context) Horizontal {
	ha := 15 * (ctx.SiderealTime() - eq.RA)
	az, alt := equhorDeg(ha, eq.Dec, ctx.Latitude)
	return Horizontal{Az: Norm360(az), Alt: alt}
}

// HorizontalToEquatorial converts Az/Alt to RA/Dec using the context's
// sidereal time and latitude.
func HorizontalToEquatorial(hz Horizontal, ctx Context) Equatorial {
	ha, dec := equhorDeg(hz.Az, hz.Alt, ctx.Latitude)
	return Equatorial{RA: Norm24(ctx.SiderealTime() - ha/15), Dec: dec}
}
