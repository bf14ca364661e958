package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"bizmirror/internal/config"
	"bizmirror/internal/database"
	"bizmirror/internal/encryption"
	"bizmirror/internal/mirror"
	"bizmirror/internal/notify"
	"bizmirror/internal/sink"

	"github.com/google/uuid"
)

// Options tunes how a MirrorApp is built. The zero value logs to
// <log_dir>/bizmirror.log and stderr at info level.
type Options struct {
	Logger  mirror.Logger // overrides the file logger when set
	Verbose bool
	Clock   mirror.Clock
	IDs     mirror.IDGenerator
}

// MirrorApp is the application layer between the CLI and the mirror core.
// It constructs all dependencies from config and manages their lifecycle
// on Close.
type MirrorApp struct {
	cfg       *config.Config
	store     *database.SQLiteStore
	sink      mirror.Sink
	filter    *mirror.TableFilter
	encryptor mirror.Encryptor
	notifier  mirror.Notifier
	logger    mirror.Logger
	clock     mirror.Clock
	ids       mirror.IDGenerator
	logFile   *os.File
}

// NewMirrorApp creates a fully wired MirrorApp from the given config.
// The caller must call Close when done.
func NewMirrorApp(ctx context.Context, cfg *config.Config, opts Options) (*MirrorApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &MirrorApp{
		cfg:    cfg,
		store:  database.NewSQLiteStore(cfg.Store.Path),
		filter: mirror.NewTableFilter(cfg.Mirror.ExcludeTables),
		logger: opts.Logger,
		clock:  opts.Clock,
		ids:    opts.IDs,
	}
	if a.clock == nil {
		a.clock = mirror.RealClock{}
	}
	if a.ids == nil {
		a.ids = mirror.UUIDGenerator{}
	}

	if a.logger == nil {
		level := slog.LevelInfo
		if opts.Verbose {
			level = slog.LevelDebug
		}
		l, f, err := newLogger(cfg.LogDir, uuid.New().String(), level)
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
		a.logger = &slogAdapter{l: l}
		a.logFile = f
	}

	if needsEncryption(cfg.Replicas) {
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating encryptor: %w", err)
		}
		if !enc.IsConfigured() {
			a.Close()
			return nil, fmt.Errorf("encrypted replicas configured but no keys found: run `bizmirror config init --encrypt`")
		}
		a.encryptor = enc
	}

	s, err := sink.NewSinkFromConfig(ctx, cfg, a.encryptor, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating sink: %w", err)
	}
	a.sink = s

	n, err := notify.NewNotifierFromConfig(cfg.Notify, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}
	a.notifier = n

	return a, nil
}

func needsEncryption(replicas []config.ReplicaConfig) bool {
	for _, r := range replicas {
		if r.Encrypt {
			return true
		}
	}
	return false
}

// Logger returns the application logger.
func (a *MirrorApp) Logger() mirror.Logger {
	return a.logger
}

// Store returns the snapshot store.
func (a *MirrorApp) Store() *database.SQLiteStore {
	return a.store
}

// Sink returns the artifact destination.
func (a *MirrorApp) Sink() mirror.Sink {
	return a.sink
}

// NewTrigger builds the trigger for mode ("poll" or "notify").
func (a *MirrorApp) NewTrigger(mode string, interval time.Duration) (mirror.Trigger, error) {
	switch mode {
	case "poll":
		return mirror.NewPollTrigger(interval), nil
	case "notify":
		return mirror.NewNotifyTrigger(a.cfg.Store.Path, a.logger)
	default:
		return nil, fmt.Errorf("unknown mode: %q", mode)
	}
}

// NewScheduler creates a scheduler driven by trigger.
func (a *MirrorApp) NewScheduler(trigger mirror.Trigger) *mirror.Scheduler {
	return mirror.NewScheduler(a.store, a.sink, trigger, a.logger, a.clock, a.ids, mirror.Options{
		Filter:    a.filter,
		Notifier:  a.notifier,
		Baseline:  a.cfg.Mirror.Baseline,
		LogLimit:  a.cfg.Mirror.LogLimit,
		OutputDir: a.cfg.Mirror.OutputDir,
	})
}

// WatchOptions configures Watch.
type WatchOptions struct {
	Mode     string
	Interval time.Duration

	// Reload delivers a new interval at runtime; ignored in notify mode.
	Reload <-chan time.Duration
}

// Watch runs the mirror until ctx is cancelled. A missing store fails
// immediately with mirror.ErrStoreUnavailable.
func (a *MirrorApp) Watch(ctx context.Context, opts WatchOptions) error {
	mode := opts.Mode
	if mode == "" {
		mode = a.cfg.Mirror.Mode
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = a.cfg.Mirror.Interval()
	}

	trigger, err := a.NewTrigger(mode, interval)
	if err != nil {
		return err
	}
	sched := a.NewScheduler(trigger)

	if opts.Reload != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case d := <-opts.Reload:
					if err := sched.SetInterval(d); err != nil {
						a.logger.Warn("interval not changed", "error", err)
					}
				}
			}
		}()
	}

	a.logger.Info("watching store",
		"store", a.cfg.Store.Path,
		"output_dir", a.cfg.Mirror.OutputDir,
		"mode", mode,
		"interval", interval.String(),
	)
	return sched.Start(ctx)
}

// ExportAll exports every mirrored table regardless of counts.
func (a *MirrorApp) ExportAll(ctx context.Context) (map[string]int, error) {
	sched := a.NewScheduler(mirror.NewPollTrigger(a.cfg.Mirror.Interval()))
	return sched.ExportAll(ctx)
}

// Counts returns the current row count of every mirrored table.
func (a *MirrorApp) Counts(ctx context.Context) (mirror.CountVector, error) {
	if !a.store.Exists() {
		return nil, fmt.Errorf("%w: %s", mirror.ErrStoreUnavailable, a.store.Path())
	}
	return mirror.NewCountOracle(a.store, a.filter, a.logger).Counts(ctx)
}

// Convert runs a one-shot conversion: "tables", "unified", "employees" or "all".
func (a *MirrorApp) Convert(ctx context.Context, what string) error {
	c := mirror.NewConverter(a.store, a.store, a.sink, a.filter, a.clock, a.logger)
	switch what {
	case "tables":
		_, err := c.ExportTables(ctx)
		return err
	case "unified":
		return c.ExportUnified(ctx)
	case "employees":
		return c.ExportEmployeesWithSales(ctx)
	case "all", "":
		return c.ExportEverything(ctx)
	default:
		return fmt.Errorf("unknown conversion: %q", what)
	}
}

// Files lists artifacts in the output directory whose name starts with prefix.
func (a *MirrorApp) Files(prefix string) ([]mirror.ArtifactInfo, error) {
	return a.sink.ListArtifacts(prefix)
}

// History lists the history artifacts of table, or of every table if empty.
func (a *MirrorApp) History(table string) ([]mirror.HistoryEntry, error) {
	return mirror.ListHistory(a.sink, table)
}

// Prune keeps the newest keep history artifacts per table.
func (a *MirrorApp) Prune(keep int) (map[string]int, error) {
	removed, err := mirror.PruneHistory(a.sink, keep)
	if err != nil {
		return removed, err
	}
	total := 0
	for table, n := range removed {
		a.logger.Info("history pruned", "table", table, "removed", n)
		total += n
	}
	a.logger.Info("prune complete", "removed", total, "kept_per_table", keep)
	return removed, nil
}

// Decrypt reads an artifact from an encrypted replica and returns the plaintext.
func (a *MirrorApp) Decrypt(replica, name, passphrase string) ([]byte, error) {
	rs, ok := a.sink.(*sink.ReplicatedSink)
	if !ok {
		return nil, fmt.Errorf("no replicas configured")
	}
	s, err := rs.Replica(replica)
	if err != nil {
		return nil, err
	}
	es, ok := s.(*sink.EncryptingSink)
	if !ok {
		return nil, fmt.Errorf("replica %q is not encrypted", replica)
	}

	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	data, err := es.Decrypt(name, dc)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("artifact %s not found on replica %q", name, replica)
	}
	return data, nil
}

// Close releases the notifier connection and the log file.
func (a *MirrorApp) Close() error {
	var firstErr error
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			firstErr = fmt.Errorf("closing notifier: %w", err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
