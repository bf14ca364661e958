package mirror

import (
	"context"
	"fmt"
	"time"
)

// ExportSummary describes a one-shot conversion run.
type ExportSummary struct {
	Export     ExportSummaryHeader          `json:"export"`
	Statistics map[string]TableExportDetail `json:"statistics"`
}

// ExportSummaryHeader is the run-level part of ExportSummary.
type ExportSummaryHeader struct {
	Timestamp      string   `json:"timestamp"`
	SourceDatabase string   `json:"source_database"`
	TotalTables    int      `json:"total_tables"`
	ExportedTables []string `json:"exported_tables"`
}

// TableExportDetail is the per-table part of ExportSummary.
type TableExportDetail struct {
	TotalRecords int    `json:"total_records"`
	File         string `json:"file"`
}

// UnifiedExport holds every table in a single document.
type UnifiedExport struct {
	Metadata UnifiedMetadata     `json:"metadata"`
	Data     map[string][]Record `json:"data"`
}

// UnifiedMetadata describes a UnifiedExport.
type UnifiedMetadata struct {
	ExportedAt     string `json:"exported_at"`
	SourceDatabase string `json:"source_database"`
	TotalTables    int    `json:"total_tables"`
}

// Converter performs one-shot conversions of the store to JSON, independent
// of the change detector.
type Converter struct {
	store     Store
	relations RelationReader
	sink      Sink
	filter    *TableFilter
	clock     Clock
	logger    Logger
}

// NewConverter creates a Converter. relations may be nil, in which case the
// employees-with-sales export is unavailable.
func NewConverter(store Store, relations RelationReader, sink Sink, filter *TableFilter, clock Clock, logger Logger) *Converter {
	if filter == nil {
		filter = NewTableFilter(nil)
	}
	return &Converter{store: store, relations: relations, sink: sink, filter: filter, clock: clock, logger: logger}
}

func (c *Converter) tables(ctx context.Context) ([]string, error) {
	if !c.store.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, c.store.Path())
	}
	names, err := c.store.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return c.filter.Apply(names), nil
}

// ExportTables writes a snapshot artifact per non-empty table and an export
// summary. Empty or unreadable tables are skipped. It returns the exported tables.
func (c *Converter) ExportTables(ctx context.Context) ([]string, error) {
	tables, err := c.tables(ctx)
	if err != nil {
		return nil, err
	}

	exported := []string{}
	stats := make(map[string]TableExportDetail)
	for _, table := range tables {
		t, err := c.store.ReadTable(ctx, table)
		if err != nil {
			c.logger.Error("reading table failed", "table", table, "error", err)
			continue
		}
		if len(t.Rows) == 0 {
			c.logger.Warn("no rows, table skipped", "table", table)
			continue
		}
		records := t.Records()
		data, err := EncodeJSON(records)
		if err != nil {
			c.logger.Error("encoding table failed", "table", table, "error", err)
			continue
		}
		if err := c.sink.WriteArtifact(SnapshotName(table), data); err != nil {
			c.logger.Error("writing table failed", "table", table, "error", err)
			continue
		}
		c.logger.Info("table converted", "table", table, "records", len(records))
		exported = append(exported, table)
		stats[table] = TableExportDetail{TotalRecords: len(records), File: SnapshotName(table)}
	}

	summary, err := EncodeJSON(ExportSummary{
		Export: ExportSummaryHeader{
			Timestamp:      c.clock.Now().Format(time.RFC3339),
			SourceDatabase: c.store.Path(),
			TotalTables:    len(exported),
			ExportedTables: exported,
		},
		Statistics: stats,
	})
	if err != nil {
		return exported, fmt.Errorf("encoding export summary: %w", err)
	}
	if err := c.sink.WriteArtifact(ExportSummaryArtifact, summary); err != nil {
		return exported, fmt.Errorf("writing export summary: %w", err)
	}
	return exported, nil
}

// ExportUnified writes every table into one document.
func (c *Converter) ExportUnified(ctx context.Context) error {
	tables, err := c.tables(ctx)
	if err != nil {
		return err
	}

	data := make(map[string][]Record, len(tables))
	for _, table := range tables {
		t, err := c.store.ReadTable(ctx, table)
		if err != nil {
			c.logger.Error("reading table failed", "table", table, "error", err)
			data[table] = []Record{}
			continue
		}
		data[table] = t.Records()
	}

	out, err := EncodeJSON(UnifiedExport{
		Metadata: UnifiedMetadata{
			ExportedAt:     c.clock.Now().Format(time.RFC3339),
			SourceDatabase: c.store.Path(),
			TotalTables:    len(tables),
		},
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("encoding unified export: %w", err)
	}
	if err := c.sink.WriteArtifact(UnifiedArtifact, out); err != nil {
		return fmt.Errorf("writing unified export: %w", err)
	}
	c.logger.Info("unified export written", "tables", len(tables))
	return nil
}

// ExportEmployeesWithSales writes active employees with their sales nested,
// plus per-employee sale count and revenue.
func (c *Converter) ExportEmployeesWithSales(ctx context.Context) error {
	if c.relations == nil {
		return fmt.Errorf("store does not provide relational views")
	}
	if !c.store.Exists() {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, c.store.Path())
	}

	rows, err := c.relations.EmployeesWithSales(ctx)
	if err != nil {
		return fmt.Errorf("loading employees with sales: %w", err)
	}

	out := make([]Record, len(rows))
	for i, row := range rows {
		var revenue float64
		for _, sale := range row.Sales {
			revenue += numeric(sale, "total")
		}
		sales := row.Sales
		if sales == nil {
			sales = []Record{}
		}
		out[i] = row.Employee.
			With("sales", sales).
			With("total_sales", len(row.Sales)).
			With("total_revenue", revenue)
	}

	data, err := EncodeJSON(out)
	if err != nil {
		return fmt.Errorf("encoding employees with sales: %w", err)
	}
	if err := c.sink.WriteArtifact(EmployeeSalesArtifact, data); err != nil {
		return fmt.Errorf("writing employees with sales: %w", err)
	}
	c.logger.Info("employees with sales written", "employees", len(out))
	return nil
}

// ExportEverything runs all three conversions.
func (c *Converter) ExportEverything(ctx context.Context) error {
	if _, err := c.ExportTables(ctx); err != nil {
		return err
	}
	if err := c.ExportUnified(ctx); err != nil {
		return err
	}
	return c.ExportEmployeesWithSales(ctx)
}

// numeric reads a numeric column, treating anything else as 0.
func numeric(r Record, column string) float64 {
	v, _ := r.Get(column)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
