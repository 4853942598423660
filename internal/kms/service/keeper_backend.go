package service

import (
	"context"
	"crypto/rand"
	"fmt"

	"gocloud.dev/secrets"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"

	// Register KMS provider drivers for secrets.OpenKeeper.
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeeperBackend is a KeyBackend built on gocloud.dev/secrets. Key material is
// generated locally, wrapped by the configured keeper (a cloud KMS or a local
// master key), and stored only in wrapped form inside the key's
// MaterialHandle. The raw material exists in memory only for the duration of
// the operation that needed it.
//
// Supported keeper URIs include hashivault:// and base64key:// (local master
// key, for development and tests).
type KeeperBackend struct {
	keeper *secrets.Keeper
	name   string
}

// OpenKeeperBackend opens the keeper at keyURI and wraps it as a KeyBackend.
func OpenKeeperBackend(ctx context.Context, keyURI string) (*KeeperBackend, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return NewKeeperBackend(keeper), nil
}

// NewKeeperBackend wraps an already-open keeper. The caller keeps ownership
// of the keeper's lifecycle.
func NewKeeperBackend(keeper *secrets.Keeper) *KeeperBackend {
	return &KeeperBackend{keeper: keeper, name: "keeper"}
}

// Name identifies the backend in logs and audit context.
func (b *KeeperBackend) Name() string {
	return b.name
}

// CreateKeyMaterial generates a random 256-bit key and returns it wrapped by
// the keeper. The plaintext material is zeroized before returning.
func (b *KeeperBackend) CreateKeyMaterial(
	ctx context.Context,
	key *domain.Key,
) (domain.MaterialHandle, error) {
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return domain.MaterialHandle{}, apperrors.Wrap(
			apperrors.ErrEncryptionFailed, "failed to generate key material")
	}
	defer domain.Zeroize(material)

	wrapped, err := b.keeper.Encrypt(ctx, material)
	if err != nil {
		return domain.MaterialHandle{}, apperrors.Wrap(
			apperrors.ErrEncryptionFailed, "failed to wrap key material")
	}

	return domain.MaterialHandle{Ref: key.ID.String(), Ciphertext: wrapped}, nil
}

// FetchKeyMaterial unwraps the key's stored ciphertext. The caller owns the
// returned buffer and must Zeroize it when done.
func (b *KeeperBackend) FetchKeyMaterial(ctx context.Context, key *domain.Key) ([]byte, error) {
	if len(key.Material.Ciphertext) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrKeyNotFound, "key material destroyed")
	}

	material, err := b.keeper.Decrypt(ctx, key.Material.Ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionFailed, "failed to unwrap key material")
	}
	return material, nil
}

// DestroyKeyMaterial zeroizes the wrapped form held on the handle. The keeper
// itself holds no per-key state, so dropping the ciphertext makes the material
// unrecoverable once the caller persists the cleared handle.
func (b *KeeperBackend) DestroyKeyMaterial(_ context.Context, key *domain.Key) error {
	domain.Zeroize(key.Material.Ciphertext)
	key.Material.Ciphertext = nil
	return nil
}

// Close releases the underlying keeper.
func (b *KeeperBackend) Close() error {
	return b.keeper.Close()
}

// Ping verifies the keeper works by wrapping a throwaway value.
func (b *KeeperBackend) Ping(ctx context.Context) error {
	if _, err := b.keeper.Encrypt(ctx, []byte("ping")); err != nil {
		return fmt.Errorf("keeper ping failed: %w", err)
	}
	return nil
}
