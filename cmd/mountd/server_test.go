package main

import (
	"context"
	"testing"
	"time"

	"github.com/openscope/mountd/mount"
)

func TestWatchStatusUnblocksOnCancel(t *testing.T) {
	s := NewServer(mount.NewRegistry(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.watchStatus(ctx, 0, func(mount.Status) bool { return true })
	}()
	// No status ever changes; cancellation alone must unpark the watcher.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher survived cancellation")
	}
}

func TestWatchStatusDelivers(t *testing.T) {
	s := NewServer(mount.NewRegistry(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan mount.Status, 1)
	go s.watchStatus(ctx, 3, func(st mount.Status) bool {
		got <- st
		return false
	})

	s.statusMu.Lock()
	s.status[3] = mount.Status{Number: 3, Name: "scope"}
	s.statusMu.Unlock()

	// Broadcast until the watcher has picked the update up.
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(2 * time.Second)
	for {
		s.statusMu.Lock()
		s.statusCond.Broadcast()
		s.statusMu.Unlock()
		select {
		case st := <-got:
			if st.Number != 3 || st.Name != "scope" {
				t.Errorf("got %+v", st)
			}
			return
		case <-deadline:
			t.Fatal("status never delivered")
		case <-tick.C:
		}
	}
}
