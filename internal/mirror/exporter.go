package mirror

import (
	"context"
	"fmt"
	"time"
)

// HistoryArtifact is the payload of a history file: the exported rows plus
// export metadata.
type HistoryArtifact struct {
	Timestamp    string   `json:"timestamp"`
	Table        string   `json:"table"`
	TotalRecords int      `json:"total_records"`
	Data         []Record `json:"data"`
}

// Exporter serializes whole tables into snapshot and history artifacts.
// The whole table is held in memory while it is written.
type Exporter struct {
	store  Store
	sink   Sink
	clock  Clock
	logger Logger
}

// NewExporter creates an Exporter writing to sink.
func NewExporter(store Store, sink Sink, clock Clock, logger Logger) *Exporter {
	return &Exporter{store: store, sink: sink, clock: clock, logger: logger}
}

// Export writes the snapshot and a history artifact for table and returns
// the number of records exported. Failures are logged and reported as 0;
// they never reach the caller.
func (e *Exporter) Export(ctx context.Context, table string) int {
	n, err := e.export(ctx, table)
	if err != nil {
		e.logger.Error("export failed", "table", table, "error", err)
		return 0
	}
	return n
}

func (e *Exporter) export(ctx context.Context, table string) (int, error) {
	t, err := e.store.ReadTable(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("reading table: %w", err)
	}
	records := t.Records()

	snapshot, err := EncodeJSON(records)
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := e.sink.WriteArtifact(SnapshotName(table), snapshot); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	now := e.clock.Now()
	history, err := EncodeJSON(HistoryArtifact{
		Timestamp:    now.Format(time.RFC3339),
		Table:        table,
		TotalRecords: len(records),
		Data:         records,
	})
	if err != nil {
		return 0, fmt.Errorf("encoding history: %w", err)
	}
	// Two exports in the same second share a name; the later one wins.
	if err := e.sink.WriteArtifact(HistoryName(table, now), history); err != nil {
		return 0, fmt.Errorf("writing history: %w", err)
	}

	e.logger.Debug("table exported", "table", table, "records", len(records))
	return len(records), nil
}
