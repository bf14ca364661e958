package encryption

import (
	"fmt"
	"testing"

	"bizmirror/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ     string
		want    string
		wantErr bool
	}{
		{typ: "", want: "*encryption.AgeEncryptor"},
		{typ: "age", want: "*encryption.AgeEncryptor"},
		{typ: "envelope", want: "*encryption.EnvelopeEncryptor"},
		{typ: " Envelope ", want: "*encryption.EnvelopeEncryptor"},
		{typ: "rot13", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			e, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewEncryptorFromConfig(%q) = %T, want error", tt.typ, e)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEncryptorFromConfig(%q) error = %v", tt.typ, err)
			}
			if got := fmt.Sprintf("%T", e); got != tt.want {
				t.Errorf("NewEncryptorFromConfig(%q) = %s, want %s", tt.typ, got, tt.want)
			}
		})
	}
}
