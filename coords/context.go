package coords

import (
	"math"
	"time"
)

// Limits bounds mechanical axis travel. HourAngle is the maximum distance,
// in degrees, the X axis may sit past the meridian on either side; zero
// means unlimited. MinY/MaxY bound the Y axis when MaxY > MinY.
type Limits struct {
	HourAngle float64
	MinY      float64
	MaxY      float64
}

// Context is an immutable snapshot of everything needed to convert
// coordinates for one operation. Build a fresh Context whenever the
// device configuration changes; never mutate one after construction.
type Context struct {
	Geometry Geometry
	Mount    MountKind

	// Latitude and Longitude locate the observer, in degrees
	// (+north, +east). Longitude is only consulted when LST is NaN.
	Latitude  float64
	Longitude float64

	SouthernHemisphere bool
	PolarMode          PolarMode

	// LST is the precomputed local sidereal time in hours.
	// Set it to NaN to derive from the wall clock and Longitude.
	LST float64

	// PierSide is the current pier side, if known.
	PierSide PierSide

	// AppAxes is the current application-frame axis position.
	// NaN components mean the position is unknown.
	AppAxes Axes

	// Limits bounds mechanical travel; nil means unlimited.
	Limits *Limits

	// WithinFlipLimits, when set, overrides Limits as the oracle deciding
	// whether an axis position is reachable.
	WithinFlipLimits func(Axes) bool

	// SyncOffset is the per-instance correction learned from prior sync
	// operations, applied to every mapped slew target.
	SyncOffset Axes

	// ReverseX and ReverseY flip the application-to-mechanical direction
	// of each axis to match the hardware's step sense.
	ReverseX bool
	ReverseY bool
}

// SiderealTime returns the context's local sidereal time in hours,
// deriving it from the wall clock when no precomputed value was supplied.
func (c Context) SiderealTime() float64 {
	if !math.IsNaN(c.LST) {
		return c.LST
	}
	return LocalSiderealTime(time.Now().UTC(), c.Longitude)
}

// withinLimits reports whether the oracle considers ax reachable.
func (c Context) withinLimits(ax Axes) bool {
	if c.WithinFlipLimits != nil {
		return c.WithinFlipLimits(ax)
	}
	if c.Limits == nil {
		return true
	}
	l := c.Limits
	if l.HourAngle > 0 && math.Abs(Norm180(ax.X)) > l.HourAngle {
		return false
	}
	if l.MaxY > l.MinY {
		y := Norm180(ax.Y)
		if y < l.MinY || y > l.MaxY {
			return false
		}
	}
	return true
}
