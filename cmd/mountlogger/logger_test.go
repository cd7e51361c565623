package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlatten(t *testing.T) {
	fields := make(map[string]interface{})
	flatten(fields, map[string]interface{}{
		"axes":     map[string]interface{}{"x": 75.0, "y": 30.0},
		"tracking": true,
		"history":  []interface{}{1.0, 2.0},
	}, "")
	want := map[string]interface{}{
		"axes.x":    75.0,
		"axes.y":    30.0,
		"tracking":  true,
		"history.0": 1.0,
		"history.1": 2.0,
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}
