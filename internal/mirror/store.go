package mirror

import "context"

// Store is the read side of the relational snapshot store.
// Nothing in the mirror subsystem writes through it.
type Store interface {
	// Path returns the location of the store's backing file.
	Path() string

	// Exists reports whether the backing file is present.
	Exists() bool

	// TableNames lists the user tables in the store's catalog.
	TableNames(ctx context.Context) ([]string, error)

	// CountRows returns COUNT(*) for the table.
	CountRows(ctx context.Context, table string) (int64, error)

	// ReadTable materializes every row of the table, columns in declaration order.
	ReadTable(ctx context.Context, table string) (*Table, error)
}

// RelationReader exposes the joined views used by the converter.
type RelationReader interface {
	// EmployeesWithSales returns active employees, each with their sales
	// joined to the product name and category, newest sale first.
	EmployeesWithSales(ctx context.Context) ([]EmployeeSales, error)
}

// Column describes one result column as reported by the store.
type Column struct {
	Name     string
	DeclType string // declared SQL type, upper case ("DATE", "INTEGER", ...)
}

// Table is a fully materialized table: raw driver values, not yet coerced.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Records converts every row into a JSON-ready Record.
func (t *Table) Records() []Record {
	records := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		records[i] = NewRecord(t.Columns, row)
	}
	return records
}

// EmployeeSales is one employee row together with the rows of their sales.
type EmployeeSales struct {
	Employee Record
	Sales    []Record
}

// CountVector maps table name to row count at a point in time.
type CountVector map[string]int64

// Clone returns an independent copy of the vector.
func (v CountVector) Clone() CountVector {
	out := make(CountVector, len(v))
	for k, n := range v {
		out[k] = n
	}
	return out
}

// Total returns the sum of all counts.
func (v CountVector) Total() int64 {
	var total int64
	for _, n := range v {
		total += n
	}
	return total
}
