package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewEncryptor(t *testing.T) {
	t.Run("accepts a 32-byte key", func(t *testing.T) {
		_, err := NewEncryptor(testKey(t))
		assert.NoError(t, err)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := NewEncryptor("not base64 at all!!!")
		assert.Error(t, err)
	})

	t.Run("rejects a short key", func(t *testing.T) {
		_, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 16)))
		assert.Error(t, err)
	})
}

func TestEncryptDecrypt(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	t.Run("round trips a password", func(t *testing.T) {
		ciphertext, err := encryptor.Encrypt("imap-secret")
		require.NoError(t, err)

		plaintext, err := encryptor.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "imap-secret", plaintext)
	})

	t.Run("the same plaintext encrypts differently each time", func(t *testing.T) {
		a, err := encryptor.Encrypt("imap-secret")
		require.NoError(t, err)
		b, err := encryptor.Encrypt("imap-secret")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		ciphertext, err := encryptor.Encrypt("imap-secret")
		require.NoError(t, err)

		ciphertext[len(ciphertext)-1] ^= 0xff
		_, err = encryptor.Decrypt(ciphertext)
		assert.Error(t, err)
	})

	t.Run("rejects truncated ciphertext", func(t *testing.T) {
		_, err := encryptor.Decrypt([]byte{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("rejects a key mismatch", func(t *testing.T) {
		other, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 32)))
		require.NoError(t, err)

		ciphertext, err := encryptor.Encrypt("imap-secret")
		require.NoError(t, err)

		_, err = other.Decrypt(ciphertext)
		assert.Error(t, err)
	})
}
