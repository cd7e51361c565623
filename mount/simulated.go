package mount

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/openscope/mountd/coords"
)

const (
	// Maximum acceleration in degrees/second^2
	simMaxAccel = 30
	// Maximum velocity in degrees/second
	simMaxVel = 30
	simMinVel = 0.1
	// Discrete simulation step size
	simStepSize = 25 * time.Millisecond
	// Arrival tolerance in degrees
	simTolerance = 0.05
)

// SimulatedPort models a two-axis servo drive with bounded velocity and
// acceleration, stepped on a discrete clock.
type SimulatedPort struct {
	mu  sync.Mutex
	pos coords.Axes
	vel coords.Axes
}

func NewSimulatedPort(start coords.Axes) *SimulatedPort {
	return &SimulatedPort{pos: start}
}

func (s *SimulatedPort) Position() coords.Axes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *SimulatedPort) Connected() bool {
	return true
}

func (s *SimulatedPort) Close() error {
	return nil
}

// ExecuteMove steps the simulated axes toward target until both arrive or
// ctx is cancelled.
func (s *SimulatedPort) ExecuteMove(ctx context.Context, target coords.Axes) (coords.Axes, error) {
	t := time.NewTicker(simStepSize)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.stop()
			return s.Position(), ctx.Err()
		case <-t.C:
		}
		if s.step(target) {
			return s.Position(), nil
		}
	}
}

func (s *SimulatedPort) stop() {
	s.mu.Lock()
	s.vel = coords.Axes{}
	s.mu.Unlock()
}

// step advances one simulation tick and reports whether both axes have
// arrived at target.
func (s *SimulatedPort) step(target coords.Axes) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dt := simStepSize.Seconds()
	s.vel.X = velServo(s.vel.X, posServo(s.pos.X, target.X))
	s.vel.Y = velServo(s.vel.Y, posServo(s.pos.Y, target.Y))
	s.pos.X = math.Mod(s.pos.X+s.vel.X*dt+360, 360)
	s.pos.Y = math.Mod(s.pos.Y+s.vel.Y*dt+360, 360)
	return math.Abs(math.Remainder(target.X-s.pos.X, 360)) < simTolerance &&
		math.Abs(math.Remainder(target.Y-s.pos.Y, 360)) < simTolerance
}

// posServo returns a target velocity for the given move
func posServo(s, t float64) float64 {
	move := math.Remainder(t-s, 360)
	delta := 2 * math.Abs(move)
	if delta > simMaxVel {
		delta = simMaxVel
	}
	if move < 0 {
		delta = -delta
	}
	return delta
}

// velServo returns an actual velocity for the given current and target velocity
func velServo(s, t float64) float64 {
	delta := math.Abs(t - s)
	if delta > simMaxAccel*simStepSize.Seconds() {
		delta = simMaxAccel * simStepSize.Seconds()
	}
	if t < s {
		delta = -delta
	}
	v := s + delta
	if math.Abs(v) < simMinVel && math.Abs(t) < simMinVel {
		return 0
	}
	if v > simMaxVel {
		return simMaxVel
	} else if v < -simMaxVel {
		return -simMaxVel
	}
	return v
}
