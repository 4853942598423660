package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// localKeeperURI uses gocloud's local base64key driver, which needs no
// external KMS.
const localKeeperURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func newKeeperBackend(t *testing.T) *KeeperBackend {
	t.Helper()
	backend, err := OpenKeeperBackend(context.Background(), localKeeperURI)
	require.NoError(t, err)
	return backend
}

func newBackendKey() *domain.Key {
	return &domain.Key{
		ID:        uuid.Must(uuid.NewV7()),
		TenantID:  "kanzlei-muster",
		Purpose:   domain.PurposeDocumentEncryption,
		Algorithm: domain.AES256GCM,
	}
}

func TestKeeperBackend_CreateAndFetch(t *testing.T) {
	backend := newKeeperBackend(t)
	ctx := context.Background()
	key := newBackendKey()

	handle, err := backend.CreateKeyMaterial(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key.ID.String(), handle.Ref)
	assert.NotEmpty(t, handle.Ciphertext)

	key.Material = handle
	material, err := backend.FetchKeyMaterial(ctx, key)
	require.NoError(t, err)
	assert.Len(t, material, 32)

	// a second fetch resolves to the same material
	again, err := backend.FetchKeyMaterial(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, material, again)
}

func TestKeeperBackend_MaterialUniquePerKey(t *testing.T) {
	backend := newKeeperBackend(t)
	ctx := context.Background()

	keyA := newBackendKey()
	keyB := newBackendKey()

	handleA, err := backend.CreateKeyMaterial(ctx, keyA)
	require.NoError(t, err)
	handleB, err := backend.CreateKeyMaterial(ctx, keyB)
	require.NoError(t, err)

	keyA.Material = handleA
	keyB.Material = handleB

	materialA, err := backend.FetchKeyMaterial(ctx, keyA)
	require.NoError(t, err)
	materialB, err := backend.FetchKeyMaterial(ctx, keyB)
	require.NoError(t, err)

	assert.NotEqual(t, materialA, materialB)
}

func TestKeeperBackend_Destroy(t *testing.T) {
	backend := newKeeperBackend(t)
	ctx := context.Background()
	key := newBackendKey()

	handle, err := backend.CreateKeyMaterial(ctx, key)
	require.NoError(t, err)
	key.Material = handle

	require.NoError(t, backend.DestroyKeyMaterial(ctx, key))
	assert.Empty(t, key.Material.Ciphertext)

	_, err = backend.FetchKeyMaterial(ctx, key)
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	// destroying again is a no-op
	assert.NoError(t, backend.DestroyKeyMaterial(ctx, key))
}

func TestKeeperBackend_Ping(t *testing.T) {
	backend := newKeeperBackend(t)
	assert.NoError(t, backend.Ping(context.Background()))
}
