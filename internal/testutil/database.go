package testutil

import (
	"path/filepath"
	"testing"

	"bizmirror/internal/database"
)

// NewTestStore creates a store file with the schema applied inside a
// temporary directory. The returned Writer stays open for the test and is
// closed on cleanup.
func NewTestStore(t *testing.T) (*database.SQLiteStore, *database.Writer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "business.db")
	w, err := database.OpenWriter(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		w.Close()
	})

	if err := w.InitSchema(); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return database.NewSQLiteStore(path), w
}

// MissingStore returns a store whose file does not exist.
func MissingStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	return database.NewSQLiteStore(filepath.Join(t.TempDir(), "absent.db"))
}
