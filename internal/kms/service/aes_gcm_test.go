package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewAESGCM_InvalidKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keySize int
	}{
		{name: "too short", keySize: 16},
		{name: "too long", keySize: 64},
		{name: "empty", keySize: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewAESGCM(make([]byte, tt.keySize))
			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestAESGCM_EncryptDecrypt(t *testing.T) {
	c, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	plaintext := []byte("mietvertrag wohnung berlin-mitte")
	aad := []byte("tenant-a/document-encryption")

	ciphertext, nonce, err := c.Encrypt(plaintext, aad)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)
	assert.Len(t, nonce, 12)

	decrypted, err := c.Decrypt(ciphertext, nonce, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESGCM_DecryptTamperedCiphertext(t *testing.T) {
	c, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	ciphertext, nonce, err := c.Encrypt([]byte("plaintext"), nil)
	require.NoError(t, err)

	ciphertext[0] ^= 0xff

	decrypted, err := c.Decrypt(ciphertext, nonce, nil)
	assert.Error(t, err)
	assert.Nil(t, decrypted)
}

func TestAESGCM_DecryptWrongAAD(t *testing.T) {
	c, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	ciphertext, nonce, err := c.Encrypt([]byte("plaintext"), []byte("tenant-a"))
	require.NoError(t, err)

	decrypted, err := c.Decrypt(ciphertext, nonce, []byte("tenant-b"))
	assert.Error(t, err)
	assert.Nil(t, decrypted)
}

func TestAESGCM_DecryptInvalidNonce(t *testing.T) {
	c, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	ciphertext, _, err := c.Encrypt([]byte("plaintext"), nil)
	require.NoError(t, err)

	_, err = c.Decrypt(ciphertext, []byte("short"), nil)
	assert.Error(t, err)
}

func TestAESGCM_NonceUniqueness(t *testing.T) {
	c, err := NewAESGCM(newTestKey(t))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		_, nonce, err := c.Encrypt([]byte("plaintext"), nil)
		require.NoError(t, err)
		assert.False(t, seen[string(nonce)], "nonce reused")
		seen[string(nonce)] = true
	}
}
