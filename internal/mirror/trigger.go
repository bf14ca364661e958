package mirror

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the polling interval when none is configured.
const DefaultInterval = 5 * time.Second

// Trigger decides when a cycle runs. Run blocks until ctx is cancelled and
// calls fire synchronously, so two cycles started by one trigger never overlap.
type Trigger interface {
	Name() string
	Run(ctx context.Context, fire func(ctx context.Context)) error
}

// IntervalSetter is implemented by triggers whose period can change at runtime.
type IntervalSetter interface {
	SetInterval(d time.Duration) error
	Interval() time.Duration
}

// PollTrigger fires after every interval.
type PollTrigger struct {
	interval atomic.Int64
	reset    chan struct{}
}

var _ IntervalSetter = (*PollTrigger)(nil)

// NewPollTrigger creates a PollTrigger. d <= 0 selects DefaultInterval.
func NewPollTrigger(d time.Duration) *PollTrigger {
	if d <= 0 {
		d = DefaultInterval
	}
	p := &PollTrigger{reset: make(chan struct{}, 1)}
	p.interval.Store(int64(d))
	return p
}

func (p *PollTrigger) Name() string { return "poll" }

// Interval returns the current period.
func (p *PollTrigger) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// SetInterval changes the period. A sleep in progress restarts with the new value.
func (p *PollTrigger) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("interval must be positive: %s", d)
	}
	p.interval.Store(int64(d))
	select {
	case p.reset <- struct{}{}:
	default:
	}
	return nil
}

func (p *PollTrigger) Run(ctx context.Context, fire func(ctx context.Context)) error {
	for {
		timer := time.NewTimer(p.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-p.reset:
			timer.Stop()
		case <-timer.C:
			fire(ctx)
		}
	}
}

// NotifyTrigger fires when the filesystem reports a write to the store file.
// It watches the directory holding the file, since SQLite may replace or
// recreate the file itself.
type NotifyTrigger struct {
	path   string
	logger Logger
}

// NewNotifyTrigger creates a NotifyTrigger for the store file at path.
func NewNotifyTrigger(path string, logger Logger) (*NotifyTrigger, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}
	return &NotifyTrigger{path: abs, logger: logger}, nil
}

func (n *NotifyTrigger) Name() string { return "notify" }

func (n *NotifyTrigger) Run(ctx context.Context, fire func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(n.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	n.logger.Debug("watching store directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !n.matches(ev) {
				continue
			}
			n.drain(watcher)
			n.logger.Debug("store modified", "path", ev.Name, "op", ev.Op.String())
			fire(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			n.logger.Warn("watcher error", "error", err)
		}
	}
}

// matches reports whether ev is a write or create of the store file itself.
func (n *NotifyTrigger) matches(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != n.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// drain discards events already queued so a burst of writes from one
// commit produces one cycle.
func (n *NotifyTrigger) drain(watcher *fsnotify.Watcher) {
	for {
		select {
		case _, ok := <-watcher.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
