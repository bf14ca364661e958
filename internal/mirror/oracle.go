package mirror

import (
	"context"
	"fmt"
)

// CountOracle computes the count vector of the live store.
type CountOracle struct {
	store  Store
	filter *TableFilter
	logger Logger
}

// NewCountOracle creates a CountOracle. A nil filter applies only the default exclusions.
func NewCountOracle(store Store, filter *TableFilter, logger Logger) *CountOracle {
	if filter == nil {
		filter = NewTableFilter(nil)
	}
	return &CountOracle{store: store, filter: filter, logger: logger}
}

// Tables returns the mirrored tables currently in the catalog.
// A missing store yields no tables and no error.
func (o *CountOracle) Tables(ctx context.Context) ([]string, error) {
	if !o.store.Exists() {
		return nil, nil
	}
	names, err := o.store.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return o.filter.Apply(names), nil
}

// Counts returns the row count of every mirrored table.
// A missing store yields an empty vector. A failure on one table is logged and
// that table is left out; the remaining tables are still counted. Only a
// catalog failure is returned as an error.
func (o *CountOracle) Counts(ctx context.Context) (CountVector, error) {
	counts := CountVector{}
	tables, err := o.Tables(ctx)
	if err != nil {
		return counts, err
	}
	for _, table := range tables {
		n, err := o.store.CountRows(ctx, table)
		if err != nil {
			o.logger.Error("counting rows failed", "table", table, "error", err)
			continue
		}
		counts[table] = n
	}
	return counts, nil
}
