package mirror

import (
	"path"
	"strings"
)

// defaultExcludePatterns are always applied: SQLite's internal tables and the
// schema version table maintained by migrations.
var defaultExcludePatterns = []string{"sqlite_*", "schema_migrations"}

// TableFilter decides which catalog tables take part in mirroring.
// Patterns use path.Match glob syntax against the table name.
type TableFilter struct {
	patterns []string
}

// NewTableFilter creates a TableFilter from raw patterns plus the defaults.
// Blank entries and entries starting with '#' are skipped.
func NewTableFilter(rawPatterns []string) *TableFilter {
	patterns := append([]string{}, defaultExcludePatterns...)
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, raw)
	}
	return &TableFilter{patterns: patterns}
}

// Excluded reports whether the table should be skipped.
func (f *TableFilter) Excluded(table string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		matched, err := path.Match(p, table)
		if err != nil {
			// Bad pattern: skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Apply returns the tables that are not excluded, preserving order.
func (f *TableFilter) Apply(tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if !f.Excluded(t) {
			out = append(out, t)
		}
	}
	return out
}
