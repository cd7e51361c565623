// Package mount implements per-device mount controllers: the hardware
// port abstraction, the cancellable slew state machine, and the registry
// that keys controller instances by protocol device number.
package mount

import (
	"context"
	"fmt"

	"github.com/openscope/mountd/coords"
)

// Port executes moves against one mount's motion hardware. One
// implementation exists per mount kind; the engine treats them uniformly.
type Port interface {
	// ExecuteMove drives both axes to target and returns the final
	// mechanical position. When ctx is cancelled the port must stop the
	// axes promptly and return ctx.Err() alongside the position reached.
	ExecuteMove(ctx context.Context, target coords.Axes) (coords.Axes, error)
	// Position reports the current mechanical axis position. NaN
	// components mean the position is not yet known.
	Position() coords.Axes
	// Connected reports whether the hardware is reachable.
	Connected() bool
	Close() error
}

// Move failure reason codes.
const (
	ReasonHardware = "hardware"
	ReasonTimeout  = "timeout"
	ReasonSetup    = "setup"
)

// MoveError is a failed move execution. Reason distinguishes genuine
// hardware faults from enforced timeouts.
type MoveError struct {
	Reason string
	Err    error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move failed (%s): %v", e.Reason, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}
