package sink

import (
	"fmt"

	"bizmirror/internal/mirror"
)

// Replica is a named secondary destination.
type Replica struct {
	Name string
	Sink mirror.Sink
}

// ReplicatedSink writes every artifact to a primary sink and then to each
// replica. Reads and listings are served by the primary only. A replica
// failure is logged and never fails the write.
type ReplicatedSink struct {
	primary  mirror.Sink
	replicas []Replica
	logger   mirror.Logger
}

// NewReplicatedSink creates a fan-out over primary and replicas.
func NewReplicatedSink(primary mirror.Sink, replicas []Replica, logger mirror.Logger) *ReplicatedSink {
	return &ReplicatedSink{primary: primary, replicas: replicas, logger: logger}
}

func (r *ReplicatedSink) WriteArtifact(name string, data []byte) error {
	if err := r.primary.WriteArtifact(name, data); err != nil {
		return err
	}
	for _, rep := range r.replicas {
		if err := rep.Sink.WriteArtifact(name, data); err != nil {
			r.logger.Warn("replica write failed", "replica", rep.Name, "artifact", name, "error", err)
		}
	}
	return nil
}

func (r *ReplicatedSink) ReadArtifact(name string) ([]byte, error) {
	return r.primary.ReadArtifact(name)
}

func (r *ReplicatedSink) ListArtifacts(prefix string) ([]mirror.ArtifactInfo, error) {
	return r.primary.ListArtifacts(prefix)
}

// RemoveArtifact removes from the primary and every replica.
func (r *ReplicatedSink) RemoveArtifact(name string) error {
	if err := r.primary.RemoveArtifact(name); err != nil {
		return err
	}
	for _, rep := range r.replicas {
		if err := rep.Sink.RemoveArtifact(name); err != nil {
			r.logger.Warn("replica remove failed", "replica", rep.Name, "artifact", name, "error", err)
		}
	}
	return nil
}

// Replica returns the named replica sink.
func (r *ReplicatedSink) Replica(name string) (mirror.Sink, error) {
	for _, rep := range r.replicas {
		if rep.Name == name {
			return rep.Sink, nil
		}
	}
	return nil, fmt.Errorf("unknown replica: %s", name)
}

// Compile-time check that ReplicatedSink implements mirror.Sink interface
var _ mirror.Sink = (*ReplicatedSink)(nil)
