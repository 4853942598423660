// Package service provides cryptographic services and key material backends.
// Implements AES-256-GCM AEAD and pluggable backends for generating, fetching,
// and destroying key material.
package service

import (
	"context"

	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg domain.Algorithm) (AEAD, error)
}

// KeyBackend generates, resolves, and destroys key material. Implementations
// must be safe for concurrent use and must never log raw key material.
//
// A transient backend failure is returned as-is; callers wrap backends with
// Retrier to get timeout and retry behavior. A key is only considered created
// once the returned handle has been durably recorded by the caller.
type KeyBackend interface {
	// Name identifies the backend in logs and audit context.
	Name() string

	// CreateKeyMaterial generates fresh material for the key and returns an
	// opaque handle referencing it. The raw material never leaves the backend
	// except through FetchKeyMaterial.
	CreateKeyMaterial(ctx context.Context, key *domain.Key) (domain.MaterialHandle, error)

	// FetchKeyMaterial resolves the key's handle to raw material. Callers own
	// the returned buffer and must Zeroize it when done.
	FetchKeyMaterial(ctx context.Context, key *domain.Key) ([]byte, error)

	// DestroyKeyMaterial irreversibly destroys the material behind the key's
	// handle. Destroying already-destroyed material is a no-op.
	DestroyKeyMaterial(ctx context.Context, key *domain.Key) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
