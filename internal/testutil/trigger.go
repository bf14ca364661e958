package testutil

import (
	"context"
)

// ManualTrigger fires a cycle each time Fire is called. Fire blocks until
// the cycle it started has finished.
type ManualTrigger struct {
	fires chan chan struct{}
}

func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{fires: make(chan chan struct{})}
}

func (m *ManualTrigger) Name() string { return "manual" }

func (m *ManualTrigger) Run(ctx context.Context, fire func(ctx context.Context)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case done := <-m.fires:
			fire(ctx)
			close(done)
		}
	}
}

// Fire runs one cycle and waits for it. It returns false if ctx ends first.
func (m *ManualTrigger) Fire(ctx context.Context) bool {
	done := make(chan struct{})
	select {
	case m.fires <- done:
	case <-ctx.Done():
		return false
	}
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
