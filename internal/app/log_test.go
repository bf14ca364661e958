package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMirrorHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "table exported",
			want:    "2024-06-15T14:30:45Z\tINFO\trun-123\ttable exported\n",
		},
		{
			name:    "warn level",
			runID:   "run-456",
			level:   slog.LevelWarn,
			message: "count failed",
			want:    "2024-06-15T14:30:45Z\tWARN\trun-456\tcount failed\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelInfo,
			message: "exported",
			attrs:   []slog.Attr{slog.String("table", "sales"), slog.Int("rows", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\trun-789\texported\ttable=sales\trows=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newMirrorHandler(&buf, tt.runID, slog.LevelDebug)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestMirrorHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newMirrorHandler(&buf, "run-1", nil)

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "scheduler")}).(*mirrorHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "cycle", 0)
	r.AddAttrs(slog.String("cycle_id", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=scheduler") {
		t.Errorf("expected pre-set attr component=scheduler, got: %q", got)
	}
	if !strings.Contains(got, "cycle_id=abc") {
		t.Errorf("expected record attr cycle_id=abc, got: %q", got)
	}
}

func TestMirrorHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := newMirrorHandler(&buf, "run-1", nil)
	h.attrs = []slog.Attr{slog.String("a", "1")}
	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*mirrorHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestMirrorHandler_Enabled(t *testing.T) {
	t.Run("defaults to info", func(t *testing.T) {
		h := newMirrorHandler(&bytes.Buffer{}, "run-1", nil)
		if h.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("Enabled(DEBUG) = true, want false")
		}
		for _, level := range []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			if !h.Enabled(context.Background(), level) {
				t.Errorf("Enabled(%v) = false, want true", level)
			}
		}
	})

	t.Run("debug enables everything", func(t *testing.T) {
		h := newMirrorHandler(&bytes.Buffer{}, "run-1", slog.LevelDebug)
		if !h.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("Enabled(DEBUG) = false, want true")
		}
	})
}

func TestMirrorHandler_concurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newMirrorHandler(&buf, "run-1", nil))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("cycle complete", "changes", 3)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "\tcycle complete\tchanges=3") {
			t.Errorf("malformed line: %q", line)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-run", slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-run\thello\tk=v") {
		t.Errorf("log file = %q, want run id and message", data)
	}
}
