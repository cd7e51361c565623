package coords

import "errors"

// ErrTargetUnreachable reports a slew target outside the hardware limits
// after both the primary and the flipped solution were considered.
var ErrTargetUnreachable = errors.New("target is outside axis limits")

// EquatorialToAxes converts RA/Dec to mechanical axis coordinates.
//
// For polar geometries the X axis carries the hour angle (15° per hour of
// RA west of the meridian) and the Y axis the declination, negated in the
// southern hemisphere. Hour angles past 180° are routed through the pole,
// which produces the pier-flipped representation. The result is adjusted
// into the mechanical frame and, when the primary solution is outside the
// limit oracle but the flipped one is not, the flipped solution is
// returned instead.
func EquatorialToAxes(eq Equatorial, ctx Context) Axes {
	if ctx.Geometry == AltAzimuth {
		return HorizontalToAxes(EquatorialToHorizontal(eq, ctx), ctx)
	}
	ax := Axes{
		X: Norm360(15 * (ctx.SiderealTime() - eq.RA)),
		Y: eq.Dec,
	}
	if ctx.SouthernHemisphere {
		ax.Y = -ax.Y
	}
	if ax.X > 180 && !(ctx.Geometry == PolarFork && ctx.PolarMode == PolarRestricted) {
		ax = throughPole(ax)
	}
	ax.X = Norm360(ax.X)
	ax.Y = Norm180(ax.Y)
	return preferWithinLimits(AppToMount(ax, ctx), ctx)
}

// HorizontalToAxes converts Az/Alt to mechanical axis coordinates, with
// the same flipped-solution fallback as EquatorialToAxes.
func HorizontalToAxes(hz Horizontal, ctx Context) Axes {
	if ctx.Geometry != AltAzimuth {
		return EquatorialToAxes(HorizontalToEquatorial(hz, ctx), ctx)
	}
	ax := Axes{X: Norm360(hz.Az), Y: Norm180(hz.Alt)}
	return preferWithinLimits(AppToMount(ax, ctx), ctx)
}

// AxesToEquatorial converts mechanical axis coordinates back to RA/Dec.
// Reading a position is always valid, so no limit checks apply.
func AxesToEquatorial(ax Axes, ctx Context) Equatorial {
	if ctx.Geometry == AltAzimuth {
		return HorizontalToEquatorial(AxesToHorizontal(ax, ctx), ctx)
	}
	a := MountToApp(ax, ctx)
	x, y := Norm360(a.X), Norm180(a.Y)
	if y > 90 || y < -90 {
		// Through-the-pole representation; undo the routing.
		x = Norm360(x + 180)
		y = Norm180(180 - y)
	}
	if ctx.SouthernHemisphere {
		y = -y
	}
	return Equatorial{RA: Norm24(ctx.SiderealTime() - x/15), Dec: y}
}

// AxesToHorizontal converts mechanical axis coordinates back to Az/Alt.
func AxesToHorizontal(ax Axes, ctx Context) Horizontal {
	if ctx.Geometry != AltAzimuth {
		return EquatorialToHorizontal(AxesToEquatorial(ax, ctx), ctx)
	}
	a := MountToApp(ax, ctx)
	return Horizontal{Az: Norm360(a.X), Alt: Norm180(a.Y)}
}

// AppToMount converts from the continuous application axis frame to the
// mechanical frame reported by the hardware, accounting for each axis'
// step direction. The adjustment is involutive, so MountToApp applies the
// identical transform.
func AppToMount(a Axes, ctx Context) Axes {
	if ctx.ReverseX {
		a.X = Norm360(-a.X)
	}
	if ctx.ReverseY {
		a.Y = -a.Y
	}
	return a
}

// MountToApp is the inverse of AppToMount.
func MountToApp(a Axes, ctx Context) Axes {
	return AppToMount(a, ctx)
}

// PierSideOf reports the side of the pier for a German equatorial mount at
// the given mechanical position. The through-the-pole routing encodes the
// flipped hour angle in the declination axis, so a Y axis beyond ±90°
// means the tube is west of the pier (east in the southern hemisphere).
// Other geometries report PierUnknown.
func PierSideOf(ax Axes, ctx Context) PierSide {
	if ctx.Geometry != GermanEquatorial {
		return PierUnknown
	}
	y := Norm180(MountToApp(ax, ctx).Y)
	west := y > 90 || y < -90
	if ctx.SouthernHemisphere {
		west = !west
	}
	if west {
		return PierWest
	}
	return PierEast
}

// MapSlewTarget maps a raw target pair to the final mechanical target for
// the given slew kind and applies the context's sync offset. The pair is
// RA-hours/Dec-degrees for SlewRaDec, Az/Alt degrees for SlewAltAz, and
// application axes for every other kind. It returns ErrTargetUnreachable
// when neither the primary nor the flipped solution is within limits.
func MapSlewTarget(kind SlewKind, x, y float64, ctx Context) (Axes, error) {
	var ax Axes
	switch kind {
	case SlewRaDec:
		ax = EquatorialToAxes(Equatorial{RA: x, Dec: y}, ctx)
	case SlewAltAz:
		ax = HorizontalToAxes(Horizontal{Az: x, Alt: y}, ctx)
	default:
		ax = AppToMount(Axes{X: x, Y: y}, ctx)
	}
	if !ctx.withinLimits(ax) {
		return ax, ErrTargetUnreachable
	}
	ax.X = Norm360(ax.X + ctx.SyncOffset.X)
	ax.Y += ctx.SyncOffset.Y
	return ax, nil
}

// throughPole routes an hour-angle axis past 180° through the pole,
// yielding the pier-flipped representation of the same sky position.
func throughPole(ax Axes) Axes {
	return Axes{X: Norm360(ax.X + 180), Y: 180 - ax.Y}
}

// preferWithinLimits returns the primary solution unless it is outside
// the limit oracle and the flipped alternative is not.
func preferWithinLimits(ax Axes, ctx Context) Axes {
	if ctx.withinLimits(ax) {
		return ax
	}
	if alt := flipped(ax); ctx.withinLimits(alt) {
		return alt
	}
	return ax
}

// flipped returns the meridian-flip alternate of a mechanical position.
func flipped(ax Axes) Axes {
	return Axes{X: Norm360(ax.X + 180), Y: Norm180(180 - ax.Y)}
}
