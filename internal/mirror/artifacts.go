package mirror

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Artifact names inside the output directory.
const (
	ReportArtifact         = "_automation_report.json"
	ChangeLogArtifact      = "change_log.json"
	ExportSummaryArtifact  = "_export_summary.json"
	UnifiedArtifact        = "database_full.json"
	EmployeeSalesArtifact  = "employees_with_sales.json"
	historyInfix           = "_history_"
	historyTimestampLayout = "20060102_150405"
	jsonExt                = ".json"
)

// SnapshotName is the always-current artifact of a table.
func SnapshotName(table string) string {
	return table + jsonExt
}

// HistoryName is the write-once artifact of one export, second granularity.
func HistoryName(table string, at time.Time) string {
	return table + historyInfix + at.Format(historyTimestampLayout) + jsonExt
}

// ParseHistoryName splits a history artifact name into table and timestamp.
func ParseHistoryName(name string) (string, time.Time, bool) {
	if !strings.HasSuffix(name, jsonExt) {
		return "", time.Time{}, false
	}
	base := strings.TrimSuffix(name, jsonExt)
	idx := strings.LastIndex(base, historyInfix)
	if idx <= 0 {
		return "", time.Time{}, false
	}
	at, err := time.ParseInLocation(historyTimestampLayout, base[idx+len(historyInfix):], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return base[:idx], at, true
}

// HistoryEntry is one history artifact of a table.
type HistoryEntry struct {
	ArtifactInfo
	Table      string
	ExportedAt time.Time
}

// ListHistory returns the history artifacts of table, oldest first.
// An empty table name lists history for every table.
func ListHistory(sink Sink, table string) ([]HistoryEntry, error) {
	prefix := ""
	if table != "" {
		prefix = table + historyInfix
	}
	infos, err := sink.ListArtifacts(prefix)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	var entries []HistoryEntry
	for _, info := range infos {
		t, at, ok := ParseHistoryName(info.Name)
		if !ok || (table != "" && t != table) {
			continue
		}
		entries = append(entries, HistoryEntry{ArtifactInfo: info, Table: t, ExportedAt: at})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Table != entries[j].Table {
			return entries[i].Table < entries[j].Table
		}
		return entries[i].ExportedAt.Before(entries[j].ExportedAt)
	})
	return entries, nil
}

// PruneHistory keeps the newest keep history artifacts per table and removes
// the rest. It returns the number removed per table.
func PruneHistory(sink Sink, keep int) (map[string]int, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must not be negative: %d", keep)
	}
	entries, err := ListHistory(sink, "")
	if err != nil {
		return nil, err
	}

	byTable := make(map[string][]HistoryEntry)
	for _, e := range entries {
		byTable[e.Table] = append(byTable[e.Table], e)
	}

	removed := make(map[string]int)
	for table, list := range byTable {
		excess := len(list) - keep
		for i := 0; i < excess; i++ {
			if err := sink.RemoveArtifact(list[i].Name); err != nil {
				return removed, fmt.Errorf("removing %s: %w", list[i].Name, err)
			}
			removed[table]++
		}
	}
	return removed, nil
}
