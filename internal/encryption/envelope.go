package encryption

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"bizmirror/internal/mirror"
)

const envelopeMagic = "bizmirror-envelope/1"

// ErrEnvelopeCorrupt is returned when a sealed artifact fails its checksum or
// does not carry an envelope header.
var ErrEnvelopeCorrupt = errors.New("corrupt envelope")

// EnvelopeEncryptor seals replica artifacts in a keyless envelope: a header
// line naming the format and the SHA-256 of the payload, then the payload.
// It offers no secrecy. It marks replica copies as sealed, catches torn or
// edited copies on decrypt, and needs no key material, which makes it the
// encryptor used when exercising encrypted replicas in tests.
type EnvelopeEncryptor struct{}

var _ mirror.Encryptor = (*EnvelopeEncryptor)(nil)

func NewEnvelopeEncryptor() *EnvelopeEncryptor {
	return &EnvelopeEncryptor{}
}

// Setup is a no-op; envelopes have no keys.
func (e *EnvelopeEncryptor) Setup(passphrase string) error {
	return nil
}

func (e *EnvelopeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}
	sum := sha256.Sum256(payload)
	if _, err := fmt.Fprintf(w, "%s %s\n", envelopeMagic, hex.EncodeToString(sum[:])); err != nil {
		return fmt.Errorf("writing envelope header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing envelope payload: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase.
func (e *EnvelopeEncryptor) Unlock(passphrase string) (mirror.DecryptionContext, error) {
	return envelopeOpener{}, nil
}

func (e *EnvelopeEncryptor) IsConfigured() bool {
	return true
}

type envelopeOpener struct{}

func (envelopeOpener) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrEnvelopeCorrupt, err)
	}
	magic, digest, ok := bytes.Cut(bytes.TrimSuffix([]byte(header), []byte("\n")), []byte(" "))
	if !ok || string(magic) != envelopeMagic {
		return fmt.Errorf("%w: unrecognized header", ErrEnvelopeCorrupt)
	}

	payload, err := io.ReadAll(br)
	if err != nil {
		return fmt.Errorf("reading envelope payload: %w", err)
	}
	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != string(digest) {
		return fmt.Errorf("%w: checksum mismatch", ErrEnvelopeCorrupt)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}
