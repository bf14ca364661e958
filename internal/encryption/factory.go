package encryption

import (
	"fmt"
	"strings"

	"bizmirror/internal/config"
	"bizmirror/internal/mirror"
)

// Encryption types accepted in the [encryption] config section.
const (
	TypeAge      = "age"
	TypeEnvelope = "envelope"
)

// NewEncryptorFromConfig returns the encryptor that seals artifacts for
// replicas marked encrypt = true. An empty type means age.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (mirror.Encryptor, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeAge, "":
		return NewAgeEncryptor(cfg), nil
	case TypeEnvelope:
		return NewEnvelopeEncryptor(), nil
	}
	return nil, fmt.Errorf("unknown encryption type %q (want %s or %s)", cfg.Type, TypeAge, TypeEnvelope)
}
