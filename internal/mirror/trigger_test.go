package mirror_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"bizmirror/internal/mirror"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollTrigger(t *testing.T) {
	t.Run("default interval", func(t *testing.T) {
		if got := mirror.NewPollTrigger(0).Interval(); got != mirror.DefaultInterval {
			t.Errorf("Interval() = %v, want %v", got, mirror.DefaultInterval)
		}
	})

	t.Run("fires repeatedly until cancelled", func(t *testing.T) {
		p := mirror.NewPollTrigger(10 * time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		var fired atomic.Int32
		done := make(chan error, 1)
		go func() {
			done <- p.Run(ctx, func(context.Context) { fired.Add(1) })
		}()

		waitFor(t, "three firings", func() bool { return fired.Load() >= 3 })
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("new interval interrupts a long sleep", func(t *testing.T) {
		p := mirror.NewPollTrigger(time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var fired atomic.Int32
		go p.Run(ctx, func(context.Context) { fired.Add(1) })

		if err := p.SetInterval(10 * time.Millisecond); err != nil {
			t.Fatalf("SetInterval() error = %v", err)
		}
		waitFor(t, "a firing at the new interval", func() bool { return fired.Load() >= 1 })
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		p := mirror.NewPollTrigger(time.Second)
		if err := p.SetInterval(-time.Second); err == nil {
			t.Error("SetInterval(-1s) succeeded")
		}
		if p.Interval() != time.Second {
			t.Errorf("Interval() = %v after rejected change", p.Interval())
		}
	})
}

func TestNotifyTrigger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "business.db")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := mirror.NewNotifyTrigger(path, mirror.NewNopLogger())
	if err != nil {
		t.Fatalf("NewNotifyTrigger() error = %v", err)
	}
	if n.Name() != "notify" {
		t.Errorf("Name() = %q", n.Name())
	}

	ctx, cancel := context.WithCancel(context.Background())
	var fired atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- n.Run(ctx, func(context.Context) { fired.Add(1) })
	}()

	// Unrelated files in the same directory do not fire.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("fired %d times for an unrelated file", fired.Load())
	}

	waitFor(t, "a firing after a store write", func() bool {
		os.WriteFile(path, []byte("v2"), 0644)
		return fired.Load() >= 1
	})

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
