package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/leadbox/leadbox/internal/crypto"
)

// NewTestEncryptor returns an encryptor with a fixed key so tests across
// packages encrypt and decrypt the same way.
func NewTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	encryptor, err := crypto.NewEncryptor(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}
	return encryptor
}
