package mirror_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bizmirror/internal/mirror"
)

// fakeStore is an in-memory mirror.Store. Tables keep their insertion order
// for columns; rows are appended with add.
type fakeStore struct {
	mu         sync.Mutex
	path       string
	missing    bool
	tables     map[string]*mirror.Table
	catalogErr error
	countErr   map[string]error
	readErr    map[string]error
	reads      map[string]int
	existsHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		path:     "/data/business.db",
		tables:   make(map[string]*mirror.Table),
		countErr: make(map[string]error),
		readErr:  make(map[string]error),
		reads:    make(map[string]int),
	}
}

var idNameColumns = []mirror.Column{{Name: "id", DeclType: "INTEGER"}, {Name: "name", DeclType: "TEXT"}}

// create registers an empty table with id and name columns.
func (s *fakeStore) create(names ...string) *fakeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.tables[name] = &mirror.Table{Name: name, Columns: idNameColumns}
	}
	return s
}

// add appends n rows to table, creating it if needed.
func (s *fakeStore) add(table string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = &mirror.Table{Name: table, Columns: idNameColumns}
		s.tables[table] = t
	}
	for i := 0; i < n; i++ {
		id := int64(len(t.Rows) + 1)
		t.Rows = append(t.Rows, []any{id, fmt.Sprintf("%s-%d", table, id)})
	}
}

// remove drops the last n rows of table.
func (s *fakeStore) remove(table string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[table]
	t.Rows = t.Rows[:len(t.Rows)-n]
}

func (s *fakeStore) readCount(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[table]
}

func (s *fakeStore) Path() string { return s.path }

func (s *fakeStore) Exists() bool {
	if s.existsHook != nil {
		s.existsHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.missing
}

func (s *fakeStore) TableNames(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalogErr != nil {
		return nil, s.catalogErr
	}
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeStore) CountRows(_ context.Context, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.countErr[table]; err != nil {
		return 0, err
	}
	t, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("no such table: %s", table)
	}
	return int64(len(t.Rows)), nil
}

func (s *fakeStore) ReadTable(_ context.Context, table string) (*mirror.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[table]++
	if err := s.readErr[table]; err != nil {
		return nil, err
	}
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	rows := make([][]any, len(t.Rows))
	copy(rows, t.Rows)
	return &mirror.Table{Name: t.Name, Columns: t.Columns, Rows: rows}, nil
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []mirror.MirrorUpdatedEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, e mirror.MirrorUpdatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) Events() []mirror.MirrorUpdatedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mirror.MirrorUpdatedEvent(nil), n.events...)
}
