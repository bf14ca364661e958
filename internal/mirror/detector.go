package mirror

import "sort"

// Change is a table whose row count moved between two count vectors.
type Change struct {
	Table    string
	Previous int64
	Current  int64
	Delta    int64
}

// Detect returns the tables of curr whose count differs from prev.
// A table missing from prev counts as 0 there. Tables present only in prev
// are not reported. Equal counts are never reported, even if row content
// changed: the signal is the count, not the content.
// The result is sorted by table name for stable output; callers must not
// depend on any ordering between changes.
func Detect(prev, curr CountVector) []Change {
	var changes []Change
	for table, now := range curr {
		before := prev[table]
		if now == before {
			continue
		}
		changes = append(changes, Change{
			Table:    table,
			Previous: before,
			Current:  now,
			Delta:    now - before,
		})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Table < changes[j].Table })
	return changes
}

// Deltas flattens changes into a table -> delta map.
func Deltas(changes []Change) map[string]int64 {
	out := make(map[string]int64, len(changes))
	for _, c := range changes {
		out[c.Table] = c.Delta
	}
	return out
}
