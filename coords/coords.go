// Package coords converts between celestial, horizontal, and mechanical-axis
// coordinate frames for two-axis telescope mounts.
//
// All functions are pure: they take a Context snapshot plus a coordinate pair
// and return a new pair. NaN inputs propagate to NaN outputs.
package coords

import "math"

// Axes is a mechanical (or application) axis position in degrees.
type Axes struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Equatorial is a celestial position: right ascension in hours,
// declination in degrees.
type Equatorial struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// Horizontal is an observer-relative position: azimuth and altitude
// in degrees.
type Horizontal struct {
	Az  float64 `json:"az"`
	Alt float64 `json:"alt"`
}

// Geometry is the mechanical arrangement of the mount's two axes.
type Geometry int

const (
	AltAzimuth Geometry = iota
	PolarFork
	GermanEquatorial
)

func (g Geometry) String() string {
	switch g {
	case AltAzimuth:
		return "altaz"
	case PolarFork:
		return "polar"
	case GermanEquatorial:
		return "german"
	}
	return "unknown"
}

// MountKind selects the hardware port implementation.
type MountKind int

const (
	Simulated MountKind = iota
	SerialHardware
)

func (k MountKind) String() string {
	switch k {
	case Simulated:
		return "simulated"
	case SerialHardware:
		return "serial"
	}
	return "unknown"
}

// PolarMode is the optional sub-mode for polar fork mounts.
// PolarRestricted forbids routing the declination axis through the pole;
// targets past the meridian must use the flipped solution instead.
type PolarMode int

const (
	PolarStandard PolarMode = iota
	PolarRestricted
)

// PierSide reports which side of the pier the optical tube occupies.
// Only meaningful for German equatorial mounts.
type PierSide int

const (
	PierUnknown PierSide = iota
	PierEast
	PierWest
)

func (p PierSide) String() string {
	switch p {
	case PierEast:
		return "east"
	case PierWest:
		return "west"
	}
	return "unknown"
}

// SlewKind identifies what a slew target pair means and which completion
// behavior applies when the move finishes.
type SlewKind int

const (
	SlewNone SlewKind = iota
	SlewRaDec
	SlewAltAz
	SlewPark
	SlewHome
	SlewHandController
	SlewMoveAxis
	SlewSettle
)

func (k SlewKind) String() string {
	switch k {
	case SlewNone:
		return "none"
	case SlewRaDec:
		return "radec"
	case SlewAltAz:
		return "altaz"
	case SlewPark:
		return "park"
	case SlewHome:
		return "home"
	case SlewHandController:
		return "handctl"
	case SlewMoveAxis:
		return "moveaxis"
	case SlewSettle:
		return "settle"
	}
	return "unknown"
}

// Norm360 normalizes an angle into [0, 360). NaN passes through.
func Norm360(angle float64) float64 {
	m := math.Mod(angle, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// Norm180 normalizes an angle into [-180, 180). NaN passes through.
func Norm180(angle float64) float64 {
	m := Norm360(angle)
	if m >= 180 {
		m -= 360
	}
	return m
}

// Norm24 normalizes an hour value into [0, 24). NaN passes through.
func Norm24(hours float64) float64 {
	m := math.Mod(hours, 24)
	if m < 0 {
		m += 24
	}
	return m
}
