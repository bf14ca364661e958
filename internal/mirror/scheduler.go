package mirror

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Scheduler.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateExporting
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateExporting:
		return "exporting"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Baseline modes for the remembered count vector at construction.
const (
	// BaselineEmpty starts from an empty vector: the first cycle exports every
	// non-empty table.
	BaselineEmpty = "empty"
	// BaselineLive starts from the live store's counts: the first cycle
	// exports only what changes after construction.
	BaselineLive = "live"
)

// Options tunes a Scheduler.
type Options struct {
	Filter    *TableFilter
	Notifier  Notifier
	Baseline  string
	LogLimit  int
	OutputDir string // reported in the automation report
}

// CycleResult describes one check-and-export pass.
type CycleResult struct {
	CycleID  string
	Changes  []Change
	Exported map[string]int
	Counts   CountVector
	Skipped  bool
}

// Scheduler drives the detect/export cycle from a Trigger.
//
// The remembered count vector is owned here: reset at construction, replaced
// by the current counts at the end of every completed cycle, and only touched
// while mu is held. Every cycle, whichever trigger started it, runs behind mu.
type Scheduler struct {
	store    Store
	oracle   *CountOracle
	exporter *Exporter
	summary  *SummaryLog
	notifier Notifier
	trigger  Trigger
	clock    Clock
	idgen    IDGenerator
	logger   Logger

	mu         sync.Mutex
	remembered CountVector

	state atomic.Int32

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler reading store and writing artifacts to sink.
func NewScheduler(store Store, sink Sink, trigger Trigger, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Scheduler {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &Scheduler{
		store:      store,
		oracle:     NewCountOracle(store, opts.Filter, logger),
		exporter:   NewExporter(store, sink, clock, logger),
		summary:    NewSummaryLog(sink, opts.LogLimit, store.Path(), opts.OutputDir, logger),
		notifier:   notifier,
		trigger:    trigger,
		clock:      clock,
		idgen:      idgen,
		logger:     logger,
		remembered: CountVector{},
	}

	if opts.Baseline == BaselineLive {
		counts, err := s.oracle.Counts(context.Background())
		if err != nil {
			logger.Warn("baseline counts unavailable, starting empty", "error", err)
		} else {
			s.remembered = counts
		}
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Remembered returns a copy of the remembered count vector.
func (s *Scheduler) Remembered() CountVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remembered.Clone()
}

// Start runs one cycle immediately and then a cycle per trigger firing,
// blocking until ctx is cancelled or Stop is called. If the store file does
// not exist, Start returns ErrStoreUnavailable without doing anything else.
//
// Start registers itself before it looks at the store, so a Stop issued at
// any point after Start was entered ends it; if that happens before the
// first cycle, no cycle runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	if s.cancel != nil {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.runMu.Unlock()

	defer func() {
		cancel()
		s.state.Store(int32(StateStopped))
		s.runMu.Lock()
		s.cancel = nil
		s.done = nil
		s.runMu.Unlock()
		close(done)
	}()

	if !s.store.Exists() {
		s.logger.Error("store not found, monitoring not started", "path", s.store.Path())
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, s.store.Path())
	}
	if ctx.Err() != nil {
		s.logger.Info("mirror stopped before first cycle")
		return nil
	}

	s.state.Store(int32(StateRunning))
	s.logger.Info("mirror started", "store", s.store.Path(), "trigger", s.trigger.Name())

	s.fire(ctx)
	if err := s.trigger.Run(ctx, s.fire); err != nil {
		return fmt.Errorf("running %s trigger: %w", s.trigger.Name(), err)
	}

	s.logger.Info("mirror stopped")
	return nil
}

// fire runs a cycle that is not interrupted by cancellation of ctx: an
// interrupt only takes effect between cycles.
func (s *Scheduler) fire(ctx context.Context) {
	s.RunCycle(context.WithoutCancel(ctx))
}

// Stop ends a running Start and waits for it to return. It is a no-op when
// the scheduler is not running. Stop must not be called from inside a cycle.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()
	if cancel == nil {
		return
	}
	s.logger.Info("stop requested")
	cancel()
	<-done
}

// SetInterval changes the polling period of the trigger at runtime.
func (s *Scheduler) SetInterval(d time.Duration) error {
	setter, ok := s.trigger.(IntervalSetter)
	if !ok {
		return fmt.Errorf("%s trigger has no interval", s.trigger.Name())
	}
	if err := setter.SetInterval(d); err != nil {
		return err
	}
	s.logger.Info("interval changed", "interval", d.String())
	return nil
}

// RunCycle performs one check-and-export pass:
// count, diff against the remembered vector, export changed tables, record
// the summary when something changed, then remember the current counts.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevState := s.State()
	s.state.Store(int32(StateExporting))
	defer s.state.Store(int32(prevState))

	result := CycleResult{CycleID: s.idgen.New(), Exported: map[string]int{}}

	if !s.store.Exists() {
		s.logger.Warn("store missing, cycle skipped", "path", s.store.Path())
		result.Skipped = true
		return result
	}

	counts, err := s.oracle.Counts(ctx)
	if err != nil {
		s.logger.Error("counting tables failed, cycle skipped", "error", err)
		result.Skipped = true
		return result
	}
	result.Counts = counts
	result.Changes = Detect(s.remembered, counts)

	for _, c := range result.Changes {
		s.logger.Info("table changed",
			"table", c.Table,
			"previous", c.Previous,
			"current", c.Current,
			"delta", fmt.Sprintf("%+d", c.Delta),
		)
		n := s.exporter.Export(ctx, c.Table)
		result.Exported[c.Table] = n
		s.logger.Info("table exported", "table", c.Table, "records", n)
	}

	if len(result.Changes) > 0 {
		now := s.clock.Now()
		if err := s.summary.Record(now, result.CycleID, counts, result.Changes); err != nil {
			s.logger.Error("writing summary failed", "error", err)
		}
		s.publish(ctx, now, result)
	}

	s.remembered = counts.Clone()
	return result
}

// ExportAll exports every mirrored table regardless of counts, then resets
// the remembered vector and rewrites the automation report.
func (s *Scheduler) ExportAll(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, s.store.Path())
	}

	tables, err := s.oracle.Tables(ctx)
	if err != nil {
		return nil, err
	}

	exported := make(map[string]int, len(tables))
	for _, table := range tables {
		n := s.exporter.Export(ctx, table)
		exported[table] = n
		s.logger.Info("table exported", "table", table, "records", n)
	}

	counts, err := s.oracle.Counts(ctx)
	if err != nil {
		return exported, err
	}
	s.remembered = counts.Clone()

	if err := s.summary.WriteReport(s.clock.Now(), counts); err != nil {
		return exported, err
	}
	s.logger.Info("full export complete", "tables", len(tables))
	return exported, nil
}

func (s *Scheduler) publish(ctx context.Context, now time.Time, result CycleResult) {
	event := MirrorUpdatedEvent{
		CycleID:     result.CycleID,
		Timestamp:   now.Format(time.RFC3339),
		Database:    s.store.Path(),
		Changes:     Deltas(result.Changes),
		Exported:    result.Exported,
		TableCounts: result.Counts,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("publishing mirror update failed", "error", err)
	}
}
