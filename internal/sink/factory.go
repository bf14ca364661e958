package sink

import (
	"context"
	"fmt"

	"bizmirror/internal/config"
	"bizmirror/internal/mirror"
)

// NewReplicaFromConfig creates a replica sink based on the replica config type.
// Encrypted replicas need a non-nil encryptor.
func NewReplicaFromConfig(ctx context.Context, cfg config.ReplicaConfig, encryptor mirror.Encryptor) (mirror.Sink, error) {
	var s mirror.Sink
	switch cfg.Type {
	case "memory":
		s = NewMemorySink()
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem replica %q requires fs_root to be set", cfg.Name)
		}
		s = NewFileSystemSink(cfg.FSRoot, true)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 replica %q requires s3_bucket to be set", cfg.Name)
		}
		client, err := NewS3Client(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 replica %q: %w", cfg.Name, err)
		}
		s = NewS3Sink(client, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return nil, fmt.Errorf("unknown replica type: %s", cfg.Type)
	}

	if cfg.Encrypt {
		if encryptor == nil {
			return nil, fmt.Errorf("replica %q requires encryption but no encryptor is configured", cfg.Name)
		}
		s = NewEncryptingSink(s, encryptor)
	}
	return s, nil
}

// NewSinkFromConfig creates the artifact destination: the output directory,
// fanned out to every configured replica.
func NewSinkFromConfig(ctx context.Context, cfg *config.Config, encryptor mirror.Encryptor, logger mirror.Logger) (mirror.Sink, error) {
	primary := NewFileSystemSink(cfg.Mirror.OutputDir, cfg.Mirror.AtomicWrites)
	if len(cfg.Replicas) == 0 {
		return primary, nil
	}

	replicas := make([]Replica, 0, len(cfg.Replicas))
	for _, rc := range cfg.Replicas {
		s, err := NewReplicaFromConfig(ctx, rc, encryptor)
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, Replica{Name: rc.Name, Sink: s})
	}
	return NewReplicatedSink(primary, replicas, logger), nil
}
