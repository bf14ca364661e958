package mirror

import "context"

// MirrorUpdatedEvent is published after a cycle that exported at least one table.
// It carries enough for downstream consumers to decide which snapshot files to reload.
type MirrorUpdatedEvent struct {
	CycleID     string           `json:"cycle_id"`
	Timestamp   string           `json:"timestamp"`
	Database    string           `json:"database_file"`
	Changes     map[string]int64 `json:"changes"`
	Exported    map[string]int   `json:"exported"`
	TableCounts CountVector      `json:"table_counts"`
}

// Notifier tells downstream consumers that the mirror changed.
type Notifier interface {
	Publish(ctx context.Context, event MirrorUpdatedEvent) error
	Close() error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, MirrorUpdatedEvent) error { return nil }
func (NopNotifier) Close() error                                       { return nil }
