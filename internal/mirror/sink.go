package mirror

import "time"

// Sink is a destination for JSON artifacts, addressed by file name.
type Sink interface {
	// WriteArtifact stores data under name, replacing any previous content.
	WriteArtifact(name string, data []byte) error

	// ReadArtifact returns the stored data, or nil and no error if absent.
	ReadArtifact(name string) ([]byte, error)

	// ListArtifacts returns the artifacts whose name starts with prefix, sorted by name.
	ListArtifacts(prefix string) ([]ArtifactInfo, error)

	// RemoveArtifact deletes the named artifact. Removing a missing artifact is not an error.
	RemoveArtifact(name string) error
}

// ArtifactInfo describes a stored artifact.
type ArtifactInfo struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}
