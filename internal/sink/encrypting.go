package sink

import (
	"bytes"
	"fmt"
	"strings"

	"bizmirror/internal/mirror"
)

// EncryptedSuffix is appended to the name of every encrypted artifact.
const EncryptedSuffix = ".age"

// EncryptingSink encrypts artifacts before handing them to the wrapped sink.
// Only the public key is needed, so the private key never has to be present
// on the machine running the mirror.
type EncryptingSink struct {
	inner     mirror.Sink
	encryptor mirror.Encryptor
}

// NewEncryptingSink wraps inner.
func NewEncryptingSink(inner mirror.Sink, encryptor mirror.Encryptor) *EncryptingSink {
	return &EncryptingSink{inner: inner, encryptor: encryptor}
}

// WriteArtifact stores the ciphertext of data as name + ".age".
func (e *EncryptingSink) WriteArtifact(name string, data []byte) error {
	var buf bytes.Buffer
	if err := e.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
		return fmt.Errorf("encrypting %s: %w", name, err)
	}
	return e.inner.WriteArtifact(name+EncryptedSuffix, buf.Bytes())
}

// ReadArtifact returns the stored ciphertext. Use Decrypt to recover the plaintext.
func (e *EncryptingSink) ReadArtifact(name string) ([]byte, error) {
	return e.inner.ReadArtifact(name + EncryptedSuffix)
}

// ListArtifacts lists encrypted artifacts under their plaintext names.
func (e *EncryptingSink) ListArtifacts(prefix string) ([]mirror.ArtifactInfo, error) {
	infos, err := e.inner.ListArtifacts(prefix)
	if err != nil {
		return nil, err
	}
	out := infos[:0]
	for _, info := range infos {
		if !strings.HasSuffix(info.Name, EncryptedSuffix) {
			continue
		}
		info.Name = strings.TrimSuffix(info.Name, EncryptedSuffix)
		out = append(out, info)
	}
	return out, nil
}

func (e *EncryptingSink) RemoveArtifact(name string) error {
	return e.inner.RemoveArtifact(name + EncryptedSuffix)
}

// Decrypt reads the named artifact from the wrapped sink and decrypts it.
// It returns nil if the artifact does not exist.
func (e *EncryptingSink) Decrypt(name string, dc mirror.DecryptionContext) ([]byte, error) {
	ciphertext, err := e.ReadArtifact(name)
	if err != nil || ciphertext == nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.Decrypt(bytes.NewReader(ciphertext), &buf); err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Compile-time check that EncryptingSink implements mirror.Sink interface
var _ mirror.Sink = (*EncryptingSink)(nil)
