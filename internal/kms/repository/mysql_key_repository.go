package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/doktor-sys/mietrecht-kms/internal/database"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// MySQLKeyRepository implements key persistence for MySQL databases.
// Uses CHAR(36) for UUIDs and BLOB for the wrapped material; otherwise
// identical in behavior to the PostgreSQL implementation.
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQL key repository.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}

// Create inserts a new key row.
func (m *MySQLKeyRepository) Create(ctx context.Context, key *domain.Key) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO managed_keys (` + keyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID.String(),
		key.TenantID,
		string(key.Purpose),
		string(key.Algorithm),
		string(key.State),
		key.Version,
		key.Material.Ref,
		key.Material.Ciphertext,
		key.AutoRotate,
		key.RotationIntervalDays,
		metadataJSON,
		key.CreatedAt,
		key.UpdatedAt,
		key.ExpiresAt,
		key.RetiredAt,
		key.LastRotatedAt,
		key.NextRotationAt,
		key.DestroyedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create key")
	}
	return nil
}

// Update persists all mutable fields of the key, scoped by id and tenant.
func (m *MySQLKeyRepository) Update(ctx context.Context, key *domain.Key) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE managed_keys
			  SET state = ?,
				  version = ?,
				  material_ref = ?,
				  material_ciphertext = ?,
				  auto_rotate = ?,
				  rotation_interval_days = ?,
				  metadata = ?,
				  updated_at = ?,
				  expires_at = ?,
				  retired_at = ?,
				  last_rotated_at = ?,
				  next_rotation_at = ?,
				  destroyed_at = ?
			  WHERE id = ? AND tenant_id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(key.State),
		key.Version,
		key.Material.Ref,
		key.Material.Ciphertext,
		key.AutoRotate,
		key.RotationIntervalDays,
		metadataJSON,
		key.UpdatedAt,
		key.ExpiresAt,
		key.RetiredAt,
		key.LastRotatedAt,
		key.NextRotationAt,
		key.DestroyedAt,
		key.ID.String(),
		key.TenantID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update key")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrKeyNotFound, "key not found")
	}
	return nil
}

// Get retrieves a key by tenant and id. A key belonging to another tenant
// returns ErrKeyNotFound, same as a missing key.
func (m *MySQLKeyRepository) Get(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) (*domain.Key, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys WHERE id = ? AND tenant_id = ?`

	row := querier.QueryRowContext(ctx, query, id.String(), tenantID)
	key, err := scanKey(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrKeyNotFound, "key not found")
		}
		return nil, apperrors.Wrap(err, "failed to get key")
	}
	return key, nil
}

// GetActive retrieves the tenant's single active key for a purpose.
func (m *MySQLKeyRepository) GetActive(
	ctx context.Context,
	tenantID string,
	purpose domain.KeyPurpose,
) (*domain.Key, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE tenant_id = ? AND purpose = ? AND state = ?`

	row := querier.QueryRowContext(ctx, query, tenantID, string(purpose), string(domain.StateActive))
	key, err := scanKey(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrKeyNotFound, "no active key for purpose")
		}
		return nil, apperrors.Wrap(err, "failed to get active key")
	}
	return key, nil
}

// List retrieves keys matching the filter ordered by creation time descending.
func (m *MySQLKeyRepository) List(
	ctx context.Context,
	filter domain.KeyFilter,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys WHERE tenant_id = ?`
	args := []any{filter.TenantID}

	if filter.Purpose != "" {
		query += ` AND purpose = ?`
		args = append(args, string(filter.Purpose))
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	return m.queryKeys(ctx, querier, query, args...)
}

// ListDueForRotation retrieves active auto-rotating keys whose next rotation
// time has passed, across all tenants, oldest schedule first.
func (m *MySQLKeyRepository) ListDueForRotation(
	ctx context.Context,
	now time.Time,
	limit uint,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE state = ? AND auto_rotate = true AND next_rotation_at <= ?
			  ORDER BY next_rotation_at ASC
			  LIMIT ?`

	return m.queryKeys(ctx, querier, query, string(domain.StateActive), now, limit)
}

// ListExpired retrieves non-terminal keys whose expiration time has passed.
func (m *MySQLKeyRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit uint,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE state IN (?, ?) AND expires_at IS NOT NULL AND expires_at <= ?
			  ORDER BY expires_at ASC
			  LIMIT ?`

	return m.queryKeys(
		ctx, querier, query,
		string(domain.StateActive), string(domain.StateRetired), now, limit)
}

// ListRetiredBefore retrieves retired keys with surviving material whose
// retirement predates the cutoff.
func (m *MySQLKeyRepository) ListRetiredBefore(
	ctx context.Context,
	cutoff time.Time,
	limit uint,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE state = ? AND destroyed_at IS NULL AND retired_at <= ?
			  ORDER BY retired_at ASC
			  LIMIT ?`

	return m.queryKeys(ctx, querier, query, string(domain.StateRetired), cutoff, limit)
}

// Ping verifies database connectivity.
func (m *MySQLKeyRepository) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLKeyRepository) queryKeys(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*domain.Key, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*domain.Key, 0)
	for rows.Next() {
		key, err := scanKey(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list keys")
	}
	return keys, nil
}
