package mirror

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultLogLimit bounds the change log.
const DefaultLogLimit = 100

// AutomationReport is the latest-state summary rewritten after each change.
type AutomationReport struct {
	LastCheck     string      `json:"last_check"`
	DatabaseFile  string      `json:"database_file"`
	JSONDirectory string      `json:"json_directory"`
	TableCounts   CountVector `json:"table_counts"`
	TotalRecords  int64       `json:"total_records"`
}

// ChangeLogEntry records one cycle that detected changes.
type ChangeLogEntry struct {
	Timestamp       string           `json:"timestamp"`
	CycleID         string           `json:"cycle_id"`
	TableCounts     CountVector      `json:"table_counts"`
	Changes         map[string]int64 `json:"changes"`
	ChangesDetected bool             `json:"changes_detected"`
}

// ChangeLog is the bounded append log, oldest entry first.
type ChangeLog struct {
	Changes []ChangeLogEntry `json:"changes"`
}

// SummaryLog persists the automation report and the bounded change log.
type SummaryLog struct {
	sink      Sink
	limit     int
	database  string
	outputDir string
	logger    Logger
}

// NewSummaryLog creates a SummaryLog. limit <= 0 selects DefaultLogLimit.
func NewSummaryLog(sink Sink, limit int, database, outputDir string, logger Logger) *SummaryLog {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &SummaryLog{sink: sink, limit: limit, database: database, outputDir: outputDir, logger: logger}
}

// Record writes the report and appends a change log entry.
func (s *SummaryLog) Record(now time.Time, cycleID string, counts CountVector, changes []Change) error {
	if err := s.WriteReport(now, counts); err != nil {
		return err
	}
	return s.Append(ChangeLogEntry{
		Timestamp:       now.Format(time.RFC3339),
		CycleID:         cycleID,
		TableCounts:     counts.Clone(),
		Changes:         Deltas(changes),
		ChangesDetected: len(changes) > 0,
	})
}

// WriteReport overwrites the automation report with counts.
func (s *SummaryLog) WriteReport(now time.Time, counts CountVector) error {
	data, err := EncodeJSON(AutomationReport{
		LastCheck:     now.Format(time.RFC3339),
		DatabaseFile:  s.database,
		JSONDirectory: s.outputDir,
		TableCounts:   counts,
		TotalRecords:  counts.Total(),
	})
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := s.sink.WriteArtifact(ReportArtifact, data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Append adds entry to the change log, discarding the oldest entries beyond the limit.
func (s *SummaryLog) Append(entry ChangeLogEntry) error {
	log, err := s.Load()
	if err != nil {
		// A torn write leaves unparsable JSON behind; start a fresh log.
		s.logger.Warn("change log unreadable, starting a new one", "error", err)
		log = &ChangeLog{}
	}

	log.Changes = append(log.Changes, entry)
	if len(log.Changes) > s.limit {
		log.Changes = append([]ChangeLogEntry{}, log.Changes[len(log.Changes)-s.limit:]...)
	}

	data, err := EncodeJSON(log)
	if err != nil {
		return fmt.Errorf("encoding change log: %w", err)
	}
	if err := s.sink.WriteArtifact(ChangeLogArtifact, data); err != nil {
		return fmt.Errorf("writing change log: %w", err)
	}
	return nil
}

// Load reads the change log. A missing log is returned empty.
func (s *SummaryLog) Load() (*ChangeLog, error) {
	data, err := s.sink.ReadArtifact(ChangeLogArtifact)
	if err != nil {
		return nil, fmt.Errorf("reading change log: %w", err)
	}
	log := &ChangeLog{}
	if data == nil {
		return log, nil
	}
	if err := json.Unmarshal(data, log); err != nil {
		return nil, fmt.Errorf("parsing change log: %w", err)
	}
	return log, nil
}
