// Package sink provides destinations for mirror artifacts.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bizmirror/internal/mirror"
)

// FileSystemSink stores artifacts as files in a single directory:
//
//	<root>/
//	  <table>.json
//	  <table>_history_<YYYYMMDD_HHMMSS>.json
//	  _automation_report.json
//	  change_log.json
//
// The directory is created on first write, so a sink that never writes
// leaves no trace on disk.
type FileSystemSink struct {
	root   string
	atomic bool
}

// NewFileSystemSink creates a sink rooted at root. With atomic set, each
// write goes to a temp file in root and is renamed into place, so readers
// never observe a partially written artifact.
func NewFileSystemSink(root string, atomic bool) *FileSystemSink {
	return &FileSystemSink{root: root, atomic: atomic}
}

// Root returns the output directory.
func (s *FileSystemSink) Root() string {
	return s.root
}

func (s *FileSystemSink) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name: %q", name)
	}
	return filepath.Join(s.root, name), nil
}

// WriteArtifact replaces the named artifact with data.
func (s *FileSystemSink) WriteArtifact(name string, data []byte) error {
	dest, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if !s.atomic {
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	}
	return s.writeAtomic(dest, data)
}

// writeAtomic writes data to the specified path using temp file + rename.
func (s *FileSystemSink) writeAtomic(destPath string, data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Chmod(0644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// ReadArtifact returns the named artifact, or nil if it does not exist.
func (s *FileSystemSink) ReadArtifact(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// ListArtifacts returns the regular files whose name starts with prefix.
// Temp files are never listed. A missing directory lists as empty.
func (s *FileSystemSink) ListArtifacts(prefix string) ([]mirror.ArtifactInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list output directory: %w", err)
	}

	var out []mirror.ArtifactInfo
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".tmp-") || !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		out = append(out, mirror.ArtifactInfo{Name: name, Size: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RemoveArtifact deletes the named artifact.
func (s *FileSystemSink) RemoveArtifact(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// Compile-time check that FileSystemSink implements mirror.Sink interface
var _ mirror.Sink = (*FileSystemSink)(nil)
