package coords

import (
	"math"
	"time"
)

// LocalSiderealTime returns the local mean sidereal time in hours for the
// given instant and longitude (degrees, +east).
// GMST polynomial from Meeus, Astronomical Algorithms, ch. 12.
func LocalSiderealTime(t time.Time, longitude float64) float64 {
	jd := julianDate(t.UTC())
	d := jd - 2451545.0
	tc := d / 36525
	gmst := 280.46061837 + 360.98564736629*d + 0.000387933*tc*tc - tc*tc*tc/38710000
	return Norm24((gmst + longitude) / 15)
}

func julianDate(t time.Time) float64 {
	y, m := t.Year(), int(t.Month())
	day := float64(t.Day()) +
		(float64(t.Hour())+float64(t.Minute())/60+float64(t.Second())/3600+float64(t.Nanosecond())/3.6e12)/24
	if m <= 2 {
		y--
		m += 12
	}
	a := y / 100
	b := 2 - a + a/4
	return math.Floor(365.25*float64(y+4716)) + math.Floor(30.6001*float64(m+1)) + day + float64(b) - 1524.5
}
