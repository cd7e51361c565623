package mount

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/openscope/mountd/coords"
)

func TestSyncOffsetAppliedToTargets(t *testing.T) {
	ctx := context.Background()
	port := newFakePort()
	inst := testInstance(t, port)
	inst.mu.Lock()
	inst.syncOffset = coords.Axes{X: 1, Y: 1}
	inst.mu.Unlock()

	if err := inst.SlewTo(ctx, 11, 20, coords.SlewMoveAxis, false); err != nil {
		t.Fatal(err)
	}
	target := waitTarget(t, port)
	if target.X != 12 || target.Y != 21 {
		t.Errorf("target %+v, want {12 21}", target)
	}
	port.release <- nil
	if err := inst.WaitForCompletion(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSyncThenSlewGoesNowhere(t *testing.T) {
	ctx := context.Background()
	port := newFakePort()
	port.pos = coords.Axes{X: 75.5, Y: 30.25}
	inst := testInstance(t, port)

	// Syncing at a sky position and then slewing to that same position
	// must command the position the mount already reports.
	if err := inst.SyncTo(5, 30); err != nil {
		t.Fatal(err)
	}
	if err := inst.SlewTo(ctx, 5, 30, coords.SlewRaDec, false); err != nil {
		t.Fatal(err)
	}
	target := waitTarget(t, port)
	if math.Abs(target.X-75.5) > 1e-3 || math.Abs(target.Y-30.25) > 1e-3 {
		t.Errorf("target %+v, want {75.5 30.25}", target)
	}
	port.release <- nil
	if err := inst.WaitForCompletion(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSyncValidation(t *testing.T) {
	inst := testInstance(t, newFakePort())
	var verr *ValidationError
	if err := inst.SyncTo(math.NaN(), 30); !errors.As(err, &verr) {
		t.Errorf("NaN sync: got %v, want ValidationError", err)
	}
}

func TestTrackingWhileParked(t *testing.T) {
	ctx := context.Background()
	port := newFakePort()
	inst := testInstance(t, port)

	if err := inst.SlewTo(ctx, 0, 0, coords.SlewPark, false); err != nil {
		t.Fatal(err)
	}
	waitTarget(t, port)
	port.release <- nil
	if err := inst.WaitForCompletion(ctx); err != nil {
		t.Fatal(err)
	}

	var verr *ValidationError
	if err := inst.SetTracking(true); !errors.As(err, &verr) {
		t.Errorf("tracking while parked: got %v, want ValidationError", err)
	}
	if err := inst.SetTracking(false); err != nil {
		t.Errorf("disabling tracking while parked: %v", err)
	}

	// Any slew unparks the mount.
	if err := inst.SlewTo(ctx, 5, 30, coords.SlewRaDec, false); err != nil {
		t.Fatal(err)
	}
	waitTarget(t, port)
	port.release <- nil
	if err := inst.WaitForCompletion(ctx); err != nil {
		t.Fatal(err)
	}
	if err := inst.SetTracking(true); err != nil {
		t.Errorf("tracking after unpark: %v", err)
	}
}

func TestStatusReflectsPosition(t *testing.T) {
	ctx := context.Background()
	port := newFakePort()
	inst := testInstance(t, port)

	if err := inst.SlewTo(ctx, 75, 30, coords.SlewMoveAxis, false); err != nil {
		t.Fatal(err)
	}
	waitTarget(t, port)
	port.release <- nil
	if err := inst.WaitForCompletion(ctx); err != nil {
		t.Fatal(err)
	}
	st := inst.Status()
	if st.Axes != (coords.Axes{X: 75, Y: 30}) {
		t.Errorf("axes %+v, want {75 30}", st.Axes)
	}
	// The celestial read surface is re-derived from the mechanical axes.
	if math.IsNaN(st.RA) || math.IsNaN(st.Dec) || math.IsNaN(st.Az) || math.IsNaN(st.Alt) {
		t.Errorf("derived coordinates not finite: %+v", st.Position)
	}
	if st.PierSide != coords.PierEast {
		t.Errorf("pier side %v, want east", st.PierSide)
	}
	if !st.Connected {
		t.Error("connected flag not set")
	}
}
