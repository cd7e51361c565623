package mount

import (
	"context"
	"errors"
	"testing"

	"github.com/openscope/mountd/coords"
)

func simConfig() Config {
	return Config{
		Geometry: coords.GermanEquatorial,
		Mount:    coords.Simulated,
		Latitude: 51.2,
	}
}

func TestRegistryNumberUniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(ctx)
	defer r.Close(ctx)

	if _, err := r.Create(5, simConfig(), "first"); err != nil {
		t.Fatal(err)
	}
	var verr *ValidationError
	if _, err := r.Create(5, simConfig(), "second"); !errors.As(err, &verr) {
		t.Errorf("duplicate number: got %v, want ValidationError", err)
	}
	// The original instance is untouched by the failed registration.
	if inst, ok := r.Get(5); !ok || inst.Name != "first" {
		t.Errorf("instance 5 disturbed: %v %v", inst, ok)
	}
	if !r.Remove(ctx, 5) {
		t.Fatal("remove failed")
	}
	if r.Remove(ctx, 5) {
		t.Error("second remove reported success")
	}
	// The number is reusable immediately after removal.
	if _, err := r.Create(5, simConfig(), "third"); err != nil {
		t.Fatal(err)
	}
}

func TestRegistryCreateValidation(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(ctx)
	defer r.Close(ctx)

	var verr *ValidationError
	if _, err := r.Create(-1, simConfig(), "neg"); !errors.As(err, &verr) {
		t.Errorf("negative number: got %v, want ValidationError", err)
	}
	if _, err := r.Create(0, simConfig(), ""); !errors.As(err, &verr) {
		t.Errorf("empty name: got %v, want ValidationError", err)
	}
	cfg := simConfig()
	cfg.Mount = coords.SerialHardware
	if _, err := r.Create(0, cfg, "serial"); !errors.As(err, &verr) {
		t.Errorf("serial without port name: got %v, want ValidationError", err)
	}
}

func TestRegistryAvailability(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(ctx)
	defer r.Close(ctx)

	for _, n := range []int{0, 1, 3} {
		if _, err := r.Create(n, simConfig(), "dev"); err != nil {
			t.Fatal(err)
		}
	}
	if got := r.NextAvailable(); got != 2 {
		t.Errorf("NextAvailable: got %d, want 2", got)
	}
	if r.IsAvailable(1) {
		t.Error("1 reported available while registered")
	}
	if !r.IsAvailable(2) {
		t.Error("2 reported unavailable")
	}
	if r.IsAvailable(-1) {
		t.Error("negative number reported available")
	}

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("All returned %d instances", len(all))
	}
	for i, want := range []int{0, 1, 3} {
		if all[i].Number != want {
			t.Errorf("All[%d].Number = %d, want %d", i, all[i].Number, want)
		}
	}
}

func TestRegistryRemoveSettlesSlew(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(ctx)
	defer r.Close(ctx)

	inst, err := r.Create(0, simConfig(), "dev")
	if err != nil {
		t.Fatal(err)
	}
	// A long move on the simulated drive; removal must cancel and settle
	// it rather than leak the goroutine.
	if err := inst.SlewTo(ctx, 170, 80, coords.SlewMoveAxis, false); err != nil {
		t.Fatal(err)
	}
	if !r.Remove(ctx, 0) {
		t.Fatal("remove failed")
	}
	if inst.IsSlewing() {
		t.Error("slew still active after removal")
	}
	if _, ok := r.Get(0); ok {
		t.Error("instance still registered")
	}
}
