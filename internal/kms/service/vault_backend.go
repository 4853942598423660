package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// VaultBackend is a KeyBackend that stores raw key material in a HashiCorp
// Vault KV v2 secrets engine. Material never touches the key store database:
// the handle's Ref is the Vault path and the Ciphertext field stays empty.
//
// Paths are built from validated identifiers only, so tenant isolation holds
// at the storage layer as well.
type VaultBackend struct {
	client    *vault.Client
	mountPath string
}

// NewVaultBackend creates a VaultBackend against the given address and token.
func NewVaultBackend(address, token, mountPath string) (*VaultBackend, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultBackend{client: client, mountPath: mountPath}, nil
}

// Name identifies the backend in logs and audit context.
func (b *VaultBackend) Name() string {
	return "vault"
}

func (b *VaultBackend) path(key *domain.Key) string {
	return fmt.Sprintf("kms/%s/%s", key.TenantID, key.ID)
}

// CreateKeyMaterial generates a random 256-bit key and writes it to Vault.
// The returned handle references the Vault path only.
func (b *VaultBackend) CreateKeyMaterial(
	ctx context.Context,
	key *domain.Key,
) (domain.MaterialHandle, error) {
	material := make([]byte, 32)
	if _, err := rand.Read(material); err != nil {
		return domain.MaterialHandle{}, apperrors.Wrap(
			apperrors.ErrEncryptionFailed, "failed to generate key material")
	}
	defer domain.Zeroize(material)

	path := b.path(key)
	data := map[string]interface{}{
		"material":  base64.StdEncoding.EncodeToString(material),
		"algorithm": string(key.Algorithm),
	}
	if _, err := b.client.KVv2(b.mountPath).Put(ctx, path, data); err != nil {
		return domain.MaterialHandle{}, apperrors.Wrap(
			apperrors.ErrEncryptionFailed, "failed to store key material")
	}

	return domain.MaterialHandle{Ref: path}, nil
}

// FetchKeyMaterial reads the key's material from Vault. The caller owns the
// returned buffer and must Zeroize it when done.
func (b *VaultBackend) FetchKeyMaterial(ctx context.Context, key *domain.Key) ([]byte, error) {
	if key.Material.Ref == "" {
		return nil, apperrors.Wrap(apperrors.ErrKeyNotFound, "key has no material reference")
	}

	secret, err := b.client.KVv2(b.mountPath).Get(ctx, key.Material.Ref)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionFailed, "failed to read key material")
	}

	encoded, ok := secret.Data["material"].(string)
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionFailed, "malformed key material entry")
	}

	material, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionFailed, "malformed key material entry")
	}
	return material, nil
}

// DestroyKeyMaterial permanently deletes the material and all its versions
// from Vault.
func (b *VaultBackend) DestroyKeyMaterial(ctx context.Context, key *domain.Key) error {
	if key.Material.Ref == "" {
		return nil
	}

	if err := b.client.KVv2(b.mountPath).DeleteMetadata(ctx, key.Material.Ref); err != nil {
		return apperrors.Wrap(apperrors.ErrEncryptionFailed, "failed to destroy key material")
	}
	return nil
}

// Ping checks Vault health.
func (b *VaultBackend) Ping(ctx context.Context) error {
	health, err := b.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault ping failed: %w", err)
	}
	if !health.Initialized || health.Sealed {
		return fmt.Errorf("vault not ready: initialized=%t sealed=%t", health.Initialized, health.Sealed)
	}
	return nil
}
