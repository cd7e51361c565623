package mount

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/openscope/mountd/coords"
)

const (
	// setupTimeout bounds the synchronous phase of ExecuteSlew, with
	// headroom under one second for the lock acquire.
	setupTimeout = 900 * time.Millisecond
	// cancelTimeout bounds the wait for a prior operation to acknowledge
	// cancellation before it is forcibly marked faulted.
	cancelTimeout = 5 * time.Second
	// settleDelay is how long an alt-azimuth mount settles after a
	// coordinate slew before tracking-rate recomputation may start.
	settleDelay = 1 * time.Second
)

// State is the slew controller phase. IsSlewing is true in every state
// except StateIdle.
type State int

const (
	StateIdle State = iota
	StateSettingUp
	StateMoving
	StateCompleting
	StateCancelling
)

// Operation describes one slew: the mechanical target, the kind deciding
// completion behavior, and the geometry snapshot captured at setup.
type Operation struct {
	Kind          coords.SlewKind
	Target        coords.Axes
	TrackingAfter bool

	// Captured during setup.
	StartPierSide coords.PierSide
	StartAxes     coords.Axes
}

type activeOp struct {
	op     Operation
	cancel context.CancelFunc
	done   chan struct{}
}

// SlewController owns the cancellable slew lifecycle for one device.
// Exactly one operation is active at a time; a new ExecuteSlew fully
// settles the prior operation before its own setup.
type SlewController struct {
	inst *Instance
	port Port
	// ctx is the instance lifetime; background moves derive from it so
	// removing the device aborts them.
	ctx context.Context
	// sem serializes operations. A semaphore rather than a plain mutex:
	// waiters must be able to give up on context expiry while the holder
	// awaits hardware I/O.
	sem *semaphore.Weighted

	mu    sync.Mutex // guards cur and state
	cur   *activeOp
	state State
}

func newSlewController(ctx context.Context, inst *Instance, port Port) *SlewController {
	return &SlewController{
		inst: inst,
		port: port,
		ctx:  ctx,
		sem:  semaphore.NewWeighted(1),
	}
}

// IsSlewing reports whether any operation is active.
func (c *SlewController) IsSlewing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateIdle
}

// ExecuteSlew validates op, cancels any prior operation, captures the
// setup snapshot, and starts the movement on a background goroutine. It
// returns as soon as the movement is underway. A prior operation gets the
// full cancellation budget before the setup clock starts.
func (c *SlewController) ExecuteSlew(ctx context.Context, op Operation) error {
	// The lock holder may itself be settling a prior operation, so the
	// wait is bounded by both budgets together.
	lockCtx, cancelLock := context.WithTimeout(ctx, setupTimeout+cancelTimeout)
	defer cancelLock()
	if err := c.sem.Acquire(lockCtx, 1); err != nil {
		return &MoveError{Reason: ReasonSetup, Err: fmt.Errorf("acquiring slew lock: %w", err)}
	}
	defer c.sem.Release(1)

	c.setState(StateSettingUp)
	defer c.settleState()

	c.settlePrior()

	setupCtx, cancelSetup := context.WithTimeout(ctx, setupTimeout)
	defer cancelSetup()

	if math.IsNaN(op.Target.X) || math.IsNaN(op.Target.Y) {
		return validationf("slew target is not finite")
	}
	if !c.port.Connected() {
		return validationf("device %d is not connected", c.inst.Number)
	}
	if err := setupCtx.Err(); err != nil {
		return &MoveError{Reason: ReasonSetup, Err: err}
	}

	cctx := c.inst.coordContext()
	pos := c.port.Position()
	op.StartAxes = coords.MountToApp(pos, cctx)
	op.StartPierSide = coords.PierSideOf(pos, cctx)

	moveCtx, abort := context.WithCancel(c.ctx)
	a := &activeOp{op: op, cancel: abort, done: make(chan struct{})}
	c.mu.Lock()
	c.cur = a
	c.state = StateMoving
	c.mu.Unlock()
	c.inst.setSlewing(op.Kind)
	go c.run(moveCtx, a)
	return nil
}

// settleState resets a setup that never reached StateMoving.
func (c *SlewController) settleState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSettingUp {
		c.state = StateIdle
	}
}

func (c *SlewController) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// settlePrior cancels the active operation, if any, and waits up to
// cancelTimeout for it to acknowledge. A port that ignores its
// cancellation signal is forcibly detached and recorded as faulted.
func (c *SlewController) settlePrior() {
	c.mu.Lock()
	cur := c.cur
	c.mu.Unlock()
	if cur == nil {
		return
	}
	cur.cancel()
	select {
	case <-cur.done:
	case <-time.After(cancelTimeout):
		c.inst.setLastError(&MoveError{
			Reason: ReasonTimeout,
			Err:    errors.New("previous slew did not acknowledge cancellation"),
		})
		c.mu.Lock()
		if c.cur == cur {
			c.cur = nil
		}
		c.mu.Unlock()
	}
}

// run executes the movement and completion phases. Whatever the outcome,
// the controller returns to idle and IsSlewing becomes false.
func (c *SlewController) run(ctx context.Context, a *activeOp) {
	defer func() {
		c.mu.Lock()
		owner := c.cur == a
		if owner {
			c.cur = nil
			c.state = StateIdle
		}
		c.mu.Unlock()
		if owner {
			c.inst.setIdle()
		}
		close(a.done)
	}()

	final, err := c.port.ExecuteMove(ctx, a.op.Target)
	c.mu.Lock()
	detached := c.cur != a
	c.mu.Unlock()
	if detached {
		// Forcibly detached after overrunning its cancellation budget; the
		// late outcome must not disturb the successor.
		return
	}
	c.inst.setAxes(final)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Cancellation is an outcome, not an error.
		c.setState(StateCancelling)
		return
	default:
		var me *MoveError
		if !errors.As(err, &me) {
			me = &MoveError{Reason: ReasonHardware, Err: err}
		}
		c.inst.setLastError(me)
		return
	}
	c.complete(ctx, a.op, final)
}

// complete applies the kind-specific completion behavior.
func (c *SlewController) complete(ctx context.Context, op Operation, final coords.Axes) {
	c.setState(StateCompleting)
	switch op.Kind {
	case coords.SlewPark:
		c.inst.setParked(final)
	case coords.SlewHome:
		c.inst.setHomed(final)
	case coords.SlewRaDec:
		if c.inst.geometry() == coords.AltAzimuth {
			// Alt-az tracking recomputes axis rates continuously; it must
			// not start until the axes have settled.
			select {
			case <-ctx.Done():
				return
			case <-time.After(settleDelay):
			}
		}
		c.inst.setTracking(op.TrackingAfter)
	case coords.SlewHandController:
		c.inst.resetSyncSnapshot(final)
	case coords.SlewAltAz, coords.SlewMoveAxis, coords.SlewSettle, coords.SlewNone:
	}
}

// requestCancel asks the active operation to stop without waiting for it.
func (c *SlewController) requestCancel() {
	c.mu.Lock()
	cur := c.cur
	c.mu.Unlock()
	if cur != nil {
		cur.cancel()
	}
}

// CancelCurrentSlew requests cancellation of the active operation and
// waits, bounded, for it to settle.
func (c *SlewController) CancelCurrentSlew(ctx context.Context) error {
	c.mu.Lock()
	cur := c.cur
	c.mu.Unlock()
	if cur == nil {
		return nil
	}
	cur.cancel()
	select {
	case <-cur.done:
		return nil
	case <-time.After(cancelTimeout):
		return &MoveError{Reason: ReasonTimeout, Err: errors.New("slew did not acknowledge cancellation")}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForCompletion suspends the caller until the controller is idle.
func (c *SlewController) WaitForCompletion(ctx context.Context) error {
	for {
		c.mu.Lock()
		cur := c.cur
		c.mu.Unlock()
		if cur == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cur.done:
		}
	}
}
