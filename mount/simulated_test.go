package mount

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/openscope/mountd/coords"
)

func TestSimulatedMoveArrives(t *testing.T) {
	s := NewSimulatedPort(coords.Axes{X: 10, Y: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	target := coords.Axes{X: 14, Y: 7}
	final, err := s.ExecuteMove(ctx, target)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(math.Remainder(final.X-target.X, 360)) > simTolerance ||
		math.Abs(math.Remainder(final.Y-target.Y, 360)) > simTolerance {
		t.Errorf("final %+v, want %+v within %v", final, target, simTolerance)
	}
}

func TestSimulatedMoveCancel(t *testing.T) {
	s := NewSimulatedPort(coords.Axes{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var final coords.Axes
	var err error
	go func() {
		defer close(done)
		// Far enough that the move outlives the cancel.
		final, err = s.ExecuteMove(ctx, coords.Axes{X: 180, Y: 80})
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled move did not return")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	// The partial position reached is reported, and the axes are stopped.
	if final != s.Position() {
		t.Errorf("returned %+v but port reports %+v", final, s.Position())
	}
	if math.Abs(math.Remainder(final.X-180, 360)) < simTolerance {
		t.Errorf("move completed despite cancellation: %+v", final)
	}
}
