package mount

import (
	"context"
	"math"
	"sync"

	"github.com/openscope/mountd/coords"
)

// Config is the read-only configuration snapshot an instance is created
// with. Build a new instance to change it.
type Config struct {
	Geometry           coords.Geometry
	Mount              coords.MountKind
	Latitude           float64
	Longitude          float64
	SouthernHemisphere bool
	PolarMode          coords.PolarMode
	ReverseX           bool
	ReverseY           bool
	Limits             *coords.Limits

	// ParkAxes and HomeAxes are application-frame positions for the
	// park and home slew kinds.
	ParkAxes coords.Axes
	HomeAxes coords.Axes

	// SerialPort and SerialBaud select the controller line for
	// SerialHardware mounts.
	SerialPort string
	SerialBaud int
}

// Position is the live position record for one device.
type Position struct {
	Axes     coords.Axes     `json:"axes"`
	RA       float64         `json:"ra"`
	Dec      float64         `json:"dec"`
	Az       float64         `json:"az"`
	Alt      float64         `json:"alt"`
	PierSide coords.PierSide `json:"pier_side"`
	Tracking bool            `json:"tracking"`
	AtPark   bool            `json:"at_park"`
	AtHome   bool            `json:"at_home"`
	Slewing  bool            `json:"slewing"`
	SlewKind coords.SlewKind `json:"slew_kind"`
}

// Status is the read surface polled by the protocol layer.
type Status struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Position
	MovingDisabled bool   `json:"moving_disabled"`
	Connected      bool   `json:"connected"`
	LastError      string `json:"last_error,omitempty"`
}

// Instance bundles one device's configuration snapshot, live position and
// tracking state, and its slew controller. Instances are exclusively
// owned by the Registry; consumers hold references obtained from Get,
// never copies.
type Instance struct {
	Number int
	Name   string

	cfg  Config
	port Port
	slew *SlewController
	stop context.CancelFunc

	mu             sync.RWMutex
	pos            Position
	syncOffset     coords.Axes
	lastErr        error
	movingDisabled bool
}

func newInstance(number int, cfg Config, name string, port Port) *Instance {
	ctx, stop := context.WithCancel(context.Background())
	in := &Instance{
		Number: number,
		Name:   name,
		cfg:    cfg,
		port:   port,
		stop:   stop,
	}
	in.pos.Axes = port.Position()
	in.slew = newSlewController(ctx, in, port)
	return in
}

// coordContext builds an immutable conversion context from the instance's
// configuration and current state.
func (in *Instance) coordContext() coords.Context {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return coords.Context{
		Geometry:           in.cfg.Geometry,
		Mount:              in.cfg.Mount,
		Latitude:           in.cfg.Latitude,
		Longitude:          in.cfg.Longitude,
		SouthernHemisphere: in.cfg.SouthernHemisphere,
		PolarMode:          in.cfg.PolarMode,
		LST:                math.NaN(),
		PierSide:           in.pos.PierSide,
		AppAxes:            in.pos.Axes,
		Limits:             in.cfg.Limits,
		SyncOffset:         in.syncOffset,
		ReverseX:           in.cfg.ReverseX,
		ReverseY:           in.cfg.ReverseY,
	}
}

// Status returns a defensive snapshot of the read surface.
func (in *Instance) Status() Status {
	in.mu.RLock()
	defer in.mu.RUnlock()
	s := Status{
		Number:         in.Number,
		Name:           in.Name,
		Position:       in.pos,
		MovingDisabled: in.movingDisabled,
		Connected:      in.port.Connected(),
	}
	if in.lastErr != nil {
		s.LastError = in.lastErr.Error()
	}
	return s
}

// SlewTo maps the target pair for the given kind and hands it to the slew
// controller. The pair is RA/Dec for SlewRaDec, Az/Alt for SlewAltAz, and
// application axes otherwise; Park and Home ignore the pair and use the
// configured positions. Validation and reachability errors are returned
// synchronously; once this returns nil the outcome is observable through
// Status.
func (in *Instance) SlewTo(ctx context.Context, x, y float64, kind coords.SlewKind, trackingAfter bool) error {
	if in.MovingDisabled() {
		return validationf("device %d: moves are disabled", in.Number)
	}
	switch kind {
	case coords.SlewPark:
		x, y = in.cfg.ParkAxes.X, in.cfg.ParkAxes.Y
	case coords.SlewHome:
		x, y = in.cfg.HomeAxes.X, in.cfg.HomeAxes.Y
	case coords.SlewSettle:
		cur := in.port.Position()
		x, y = cur.X, cur.Y
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return validationf("device %d: slew target is not finite", in.Number)
	}
	target, err := coords.MapSlewTarget(kind, x, y, in.coordContext())
	if err != nil {
		return err
	}
	return in.slew.ExecuteSlew(ctx, Operation{
		Kind:          kind,
		Target:        target,
		TrackingAfter: trackingAfter,
	})
}

// Abort cancels the in-flight slew, if any, and waits for it to settle.
func (in *Instance) Abort(ctx context.Context) error {
	return in.slew.CancelCurrentSlew(ctx)
}

// WaitForCompletion suspends until the device is no longer slewing.
func (in *Instance) WaitForCompletion(ctx context.Context) error {
	return in.slew.WaitForCompletion(ctx)
}

// IsSlewing reports whether a slew operation is active.
func (in *Instance) IsSlewing() bool {
	return in.slew.IsSlewing()
}

// SetTracking turns sidereal tracking on or off. Tracking cannot be
// enabled while the device is parked.
func (in *Instance) SetTracking(on bool) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if on && in.pos.AtPark {
		return validationf("device %d is parked", in.Number)
	}
	in.pos.Tracking = on
	return nil
}

// SyncTo records that the mount is actually pointing at the given RA/Dec.
// The learned offset between the reported mechanical position and the
// predicted one is applied to every subsequent slew target.
func (in *Instance) SyncTo(ra, dec float64) error {
	if math.IsNaN(ra) || math.IsNaN(dec) {
		return validationf("device %d: sync position is not finite", in.Number)
	}
	cctx := in.coordContext()
	cctx.SyncOffset = coords.Axes{}
	predicted := coords.EquatorialToAxes(coords.Equatorial{RA: ra, Dec: dec}, cctx)
	cur := in.port.Position()
	in.mu.Lock()
	in.syncOffset = coords.Axes{
		X: coords.Norm180(cur.X - predicted.X),
		Y: cur.Y - predicted.Y,
	}
	in.mu.Unlock()
	return nil
}

// SyncOffset returns the current learned correction.
func (in *Instance) SyncOffset() coords.Axes {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.syncOffset
}

// SetMovingDisabled blocks new slews (e.g. while drive power is down).
// Disabling also aborts the in-flight slew without waiting for it.
func (in *Instance) SetMovingDisabled(disabled bool) {
	in.mu.Lock()
	in.movingDisabled = disabled
	in.mu.Unlock()
	if disabled {
		in.slew.requestCancel()
	}
}

func (in *Instance) MovingDisabled() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.movingDisabled
}

// LastError returns the most recent hardware fault, if any.
func (in *Instance) LastError() error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.lastErr
}

// close stops the in-flight slew, waits for it to settle, and releases
// the hardware port. Called by the registry on removal.
func (in *Instance) close(ctx context.Context) error {
	in.stop()
	if err := in.slew.WaitForCompletion(ctx); err != nil {
		return err
	}
	return in.port.Close()
}

func (in *Instance) geometry() coords.Geometry {
	return in.cfg.Geometry
}

// setAxes records a new mechanical position and re-derives the celestial
// coordinates from it.
func (in *Instance) setAxes(ax coords.Axes) {
	cctx := in.coordContext()
	eq := coords.AxesToEquatorial(ax, cctx)
	hz := coords.AxesToHorizontal(ax, cctx)
	pier := coords.PierSideOf(ax, cctx)
	in.mu.Lock()
	in.pos.Axes = ax
	in.pos.RA, in.pos.Dec = eq.RA, eq.Dec
	in.pos.Az, in.pos.Alt = hz.Az, hz.Alt
	in.pos.PierSide = pier
	in.mu.Unlock()
}

func (in *Instance) setSlewing(kind coords.SlewKind) {
	in.mu.Lock()
	in.pos.Slewing = true
	in.pos.SlewKind = kind
	in.pos.AtPark = false
	in.pos.AtHome = false
	in.mu.Unlock()
}

// setIdle is the unconditional final transition of every slew, whatever
// its outcome.
func (in *Instance) setIdle() {
	in.mu.Lock()
	in.pos.Slewing = false
	in.pos.SlewKind = coords.SlewNone
	in.mu.Unlock()
}

func (in *Instance) setParked(final coords.Axes) {
	in.mu.Lock()
	in.pos.AtPark = true
	in.pos.Tracking = false
	// The park position becomes the new predictor reference.
	in.syncOffset = coords.Axes{}
	in.mu.Unlock()
}

func (in *Instance) setHomed(final coords.Axes) {
	in.mu.Lock()
	in.pos.AtHome = true
	in.pos.Tracking = false
	in.syncOffset = coords.Axes{}
	in.mu.Unlock()
}

// resetSyncSnapshot re-anchors the predictor at the current position
// after a hand-controller move.
func (in *Instance) resetSyncSnapshot(final coords.Axes) {
	in.mu.Lock()
	in.syncOffset = coords.Axes{}
	in.mu.Unlock()
}

func (in *Instance) setTracking(on bool) {
	in.mu.Lock()
	if !in.pos.AtPark {
		in.pos.Tracking = on
	}
	in.mu.Unlock()
}

func (in *Instance) setLastError(err error) {
	in.mu.Lock()
	in.lastErr = err
	in.mu.Unlock()
}
