package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

var keyColumnNames = []string{
	"id", "tenant_id", "purpose", "algorithm", "state", "version", "material_ref",
	"material_ciphertext", "auto_rotate", "rotation_interval_days", "metadata",
	"created_at", "updated_at", "expires_at", "retired_at", "last_rotated_at",
	"next_rotation_at", "destroyed_at",
}

func newMockRepo(t *testing.T) (*PostgreSQLKeyRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgreSQLKeyRepository(db), mock
}

func sampleKey() *domain.Key {
	now := time.Now().UTC()
	return &domain.Key{
		ID:                   uuid.Must(uuid.NewV7()),
		TenantID:             "kanzlei-muster",
		Purpose:              domain.PurposeDocumentEncryption,
		Algorithm:            domain.AES256GCM,
		State:                domain.StateActive,
		Version:              1,
		Material:             domain.MaterialHandle{Ref: "ref-1", Ciphertext: []byte("wrapped")},
		AutoRotate:           true,
		RotationIntervalDays: 90,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func keyRow(key *domain.Key) *sqlmock.Rows {
	return sqlmock.NewRows(keyColumnNames).AddRow(
		key.ID, key.TenantID, string(key.Purpose), string(key.Algorithm),
		string(key.State), key.Version, key.Material.Ref, key.Material.Ciphertext,
		key.AutoRotate, key.RotationIntervalDays, nil,
		key.CreatedAt, key.UpdatedAt, key.ExpiresAt, key.RetiredAt,
		key.LastRotatedAt, key.NextRotationAt, key.DestroyedAt,
	)
}

func TestPostgreSQLKeyRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO managed_keys")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), key)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLKeyRepository_Create_Error(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO managed_keys")).
		WillReturnError(sql.ErrConnDone)

	err := repo.Create(context.Background(), key)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create key")
}

func TestPostgreSQLKeyRepository_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	mock.ExpectQuery(regexp.QuoteMeta("FROM managed_keys WHERE id = $1 AND tenant_id = $2")).
		WithArgs(key.ID, key.TenantID).
		WillReturnRows(keyRow(key))

	got, err := repo.Get(context.Background(), key.TenantID, key.ID)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, key.TenantID, got.TenantID)
	assert.Equal(t, domain.StateActive, got.State)
	assert.Equal(t, []byte("wrapped"), got.Material.Ciphertext)
}

func TestPostgreSQLKeyRepository_Get_WrongTenant(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	// a cross-tenant lookup matches no row and is indistinguishable from a
	// missing key
	mock.ExpectQuery(regexp.QuoteMeta("FROM managed_keys WHERE id = $1 AND tenant_id = $2")).
		WithArgs(key.ID, "other-tenant").
		WillReturnRows(sqlmock.NewRows(keyColumnNames))

	got, err := repo.Get(context.Background(), "other-tenant", key.ID)
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
	assert.Nil(t, got)
}

func TestPostgreSQLKeyRepository_GetActive(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND purpose = $2 AND state = $3")).
		WithArgs(key.TenantID, string(key.Purpose), "active").
		WillReturnRows(keyRow(key))

	got, err := repo.GetActive(context.Background(), key.TenantID, key.Purpose)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
}

func TestPostgreSQLKeyRepository_GetActive_NoActiveKey(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND purpose = $2 AND state = $3")).
		WillReturnRows(sqlmock.NewRows(keyColumnNames))

	got, err := repo.GetActive(
		context.Background(), "kanzlei-muster", domain.PurposeFieldEncryption)
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
	assert.Nil(t, got)
}

func TestPostgreSQLKeyRepository_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()
	key.State = domain.StateRetired

	mock.ExpectExec(regexp.QuoteMeta("UPDATE managed_keys")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), key)
	assert.NoError(t, err)
}

func TestPostgreSQLKeyRepository_Update_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE managed_keys")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), key)
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

func TestPostgreSQLKeyRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()

	mock.ExpectQuery(regexp.QuoteMeta("FROM managed_keys WHERE tenant_id = $1")).
		WithArgs(key.TenantID, uint(100), uint(0)).
		WillReturnRows(keyRow(key))

	keys, err := repo.List(context.Background(), domain.KeyFilter{
		TenantID: key.TenantID,
		Limit:    100,
	})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
}

func TestPostgreSQLKeyRepository_List_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM managed_keys WHERE tenant_id = $1")).
		WillReturnRows(sqlmock.NewRows(keyColumnNames))

	keys, err := repo.List(context.Background(), domain.KeyFilter{
		TenantID: "kanzlei-muster",
		Limit:    100,
	})
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestPostgreSQLKeyRepository_ListDueForRotation(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()
	due := time.Now().Add(-time.Hour)
	key.NextRotationAt = &due

	mock.ExpectQuery(regexp.QuoteMeta("auto_rotate = true AND next_rotation_at <= $2")).
		WillReturnRows(keyRow(key))

	keys, err := repo.ListDueForRotation(context.Background(), time.Now(), 50)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
}

func TestPostgreSQLKeyRepository_ListRetiredBefore(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := sampleKey()
	key.State = domain.StateRetired
	retired := time.Now().Add(-48 * time.Hour)
	key.RetiredAt = &retired

	mock.ExpectQuery(regexp.QuoteMeta("destroyed_at IS NULL AND retired_at <= $2")).
		WillReturnRows(keyRow(key))

	keys, err := repo.ListRetiredBefore(context.Background(), time.Now(), 50)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, domain.StateRetired, keys[0].State)
}
