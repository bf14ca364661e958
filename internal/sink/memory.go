package sink

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bizmirror/internal/mirror"
)

// MemorySink keeps artifacts in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemorySink struct {
	mu        sync.RWMutex
	artifacts map[string]memoryArtifact
	now       func() time.Time
	failNames map[string]error
}

type memoryArtifact struct {
	data       []byte
	modifiedAt time.Time
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		artifacts: make(map[string]memoryArtifact),
		now:       time.Now,
		failNames: make(map[string]error),
	}
}

// FailWrites makes every subsequent write of name return err. A nil err
// clears the failure.
func (m *MemorySink) FailWrites(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failNames, name)
		return
	}
	m.failNames[name] = err
}

func (m *MemorySink) WriteArtifact(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNames[name]; err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	m.artifacts[name] = memoryArtifact{data: append([]byte(nil), data...), modifiedAt: m.now()}
	return nil
}

func (m *MemorySink) ReadArtifact(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), a.data...), nil
}

func (m *MemorySink) ListArtifacts(prefix string) ([]mirror.ArtifactInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []mirror.ArtifactInfo
	for name, a := range m.artifacts {
		if strings.HasPrefix(name, prefix) {
			out = append(out, mirror.ArtifactInfo{Name: name, Size: int64(len(a.data)), ModifiedAt: a.modifiedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemorySink) RemoveArtifact(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, name)
	return nil
}

// Names returns every stored artifact name, sorted.
func (m *MemorySink) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.artifacts))
	for name := range m.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile-time check that MemorySink implements mirror.Sink interface
var _ mirror.Sink = (*MemorySink)(nil)
