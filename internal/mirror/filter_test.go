package mirror_test

import (
	"reflect"
	"testing"

	"bizmirror/internal/mirror"
)

func TestTableFilter(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		tables   []string
		want     []string
	}{
		{
			name:   "defaults exclude internal tables",
			tables: []string{"customers", "schema_migrations", "sqlite_sequence", "sqlite_stat1"},
			want:   []string{"customers"},
		},
		{
			name:     "glob patterns",
			patterns: []string{"tmp_*", "audit"},
			tables:   []string{"audit", "audit_2024", "sales", "tmp_import"},
			want:     []string{"audit_2024", "sales"},
		},
		{
			name:     "blank and comment entries ignored",
			patterns: []string{"", "  ", "# sales", " products "},
			tables:   []string{"products", "sales"},
			want:     []string{"sales"},
		},
		{
			name:     "bad pattern matches nothing",
			patterns: []string{"[unclosed"},
			tables:   []string{"customers"},
			want:     []string{"customers"},
		},
		{
			name:   "order preserved",
			tables: []string{"sales", "customers", "employees"},
			want:   []string{"sales", "customers", "employees"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mirror.NewTableFilter(tt.patterns)
			if got := f.Apply(tt.tables); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableFilter_nilExcludesNothing(t *testing.T) {
	var f *mirror.TableFilter
	if f.Excluded("sqlite_sequence") {
		t.Error("nil filter excluded a table")
	}
}
