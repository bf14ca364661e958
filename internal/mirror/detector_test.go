package mirror_test

import (
	"reflect"
	"testing"

	"bizmirror/internal/mirror"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		prev mirror.CountVector
		curr mirror.CountVector
		want []mirror.Change
	}{
		{
			name: "empty baseline reports every non-empty table",
			prev: mirror.CountVector{},
			curr: mirror.CountVector{"customers": 3, "products": 0, "sales": 2},
			want: []mirror.Change{
				{Table: "customers", Previous: 0, Current: 3, Delta: 3},
				{Table: "sales", Previous: 0, Current: 2, Delta: 2},
			},
		},
		{
			name: "equal vectors report nothing",
			prev: mirror.CountVector{"customers": 3},
			curr: mirror.CountVector{"customers": 3},
			want: nil,
		},
		{
			name: "deletion has negative delta",
			prev: mirror.CountVector{"customers": 5, "sales": 2},
			curr: mirror.CountVector{"customers": 4, "sales": 2},
			want: []mirror.Change{{Table: "customers", Previous: 5, Current: 4, Delta: -1}},
		},
		{
			name: "table only in previous is not reported",
			prev: mirror.CountVector{"dropped": 7},
			curr: mirror.CountVector{"customers": 1},
			want: []mirror.Change{{Table: "customers", Previous: 0, Current: 1, Delta: 1}},
		},
		{
			name: "nil vectors",
			prev: nil,
			curr: nil,
			want: nil,
		},
		{
			name: "results sorted by table",
			prev: mirror.CountVector{},
			curr: mirror.CountVector{"sales": 1, "employees": 1, "products": 1},
			want: []mirror.Change{
				{Table: "employees", Previous: 0, Current: 1, Delta: 1},
				{Table: "products", Previous: 0, Current: 1, Delta: 1},
				{Table: "sales", Previous: 0, Current: 1, Delta: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mirror.Detect(tt.prev, tt.curr)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetect_properties(t *testing.T) {
	vectors := []mirror.CountVector{
		{},
		{"a": 1},
		{"a": 2, "b": 0},
		{"a": 0, "b": 5, "c": 9},
		{"c": 9},
	}

	for _, prev := range vectors {
		for _, curr := range vectors {
			changes := mirror.Detect(prev, curr)

			if len(mirror.Detect(curr, curr)) != 0 {
				t.Errorf("Detect(v, v) not empty for %v", curr)
			}
			for _, c := range changes {
				if c.Delta == 0 {
					t.Errorf("zero delta reported for %s", c.Table)
				}
				if c.Delta != curr[c.Table]-prev[c.Table] {
					t.Errorf("delta for %s = %d, want %d", c.Table, c.Delta, curr[c.Table]-prev[c.Table])
				}
				if _, ok := curr[c.Table]; !ok {
					t.Errorf("reported %s which is absent from current", c.Table)
				}
			}
			for table, n := range curr {
				reported := false
				for _, c := range changes {
					if c.Table == table {
						reported = true
					}
				}
				if want := n != prev[table]; reported != want {
					t.Errorf("prev=%v curr=%v: %s reported=%v, want %v", prev, curr, table, reported, want)
				}
			}
		}
	}
}

func TestDeltas(t *testing.T) {
	changes := []mirror.Change{
		{Table: "customers", Delta: 2},
		{Table: "sales", Delta: -1},
	}
	want := map[string]int64{"customers": 2, "sales": -1}
	if got := mirror.Deltas(changes); !reflect.DeepEqual(got, want) {
		t.Errorf("Deltas() = %v, want %v", got, want)
	}
	if got := mirror.Deltas(nil); len(got) != 0 {
		t.Errorf("Deltas(nil) = %v, want empty", got)
	}
}
