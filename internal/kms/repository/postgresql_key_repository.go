// Package repository implements data persistence for managed keys.
//
// This package provides repository implementations for storing and retrieving
// key records in PostgreSQL and MySQL databases. Key material itself is never
// stored here; rows carry only the backend's opaque material handle.
//
// # Database Support
//
// Each repository type has two implementations:
//   - PostgreSQL: Uses native UUID type and BYTEA for binary data
//   - MySQL: Uses CHAR(36) for UUIDs and BLOB for binary data
//
// # Transaction Support
//
// All repositories support transaction-aware operations via database.GetTx(),
// enabling atomic multi-step operations such as key rotation. When called
// within a transaction context, repositories automatically use the
// transaction connection.
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

const keyColumns = `id, tenant_id, purpose, algorithm, state, version, material_ref,
	material_ciphertext, auto_rotate, rotation_interval_days, metadata, created_at,
	updated_at, expires_at, retired_at, last_rotated_at, next_rotation_at, destroyed_at`

// PostgreSQLKeyRepository implements key persistence for PostgreSQL databases.
//
// Every read is scoped by tenant_id so a caller can never observe another
// tenant's keys; a wrong-tenant lookup is indistinguishable from a missing
// key.
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQL key repository.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}

// Create inserts a new key row. Supports transaction context via
// database.GetTx() so the insert can share a transaction with its audit entry.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, key *domain.Key) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO managed_keys (` + keyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = querier.ExecContext(
		ctx,
		query,
		key.ID,
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
func (p *PostgreSQLKeyRepository) Update(ctx context.Context, key *domain.Key) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(key.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE managed_keys
			  SET state = $1,
				  version = $2,
				  material_ref = $3,
				  material_ciphertext = $4,
				  auto_rotate = $5,
				  rotation_interval_days = $6,
				  metadata = $7,
				  updated_at = $8,
				  expires_at = $9,
				  retired_at = $10,
				  last_rotated_at = $11,
				  next_rotation_at = $12,
				  destroyed_at = $13
			  WHERE id = $14 AND tenant_id = $15`

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
		key.ID,
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
func (p *PostgreSQLKeyRepository) Get(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) (*domain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys WHERE id = $1 AND tenant_id = $2`

	row := querier.QueryRowContext(ctx, query, id, tenantID)
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
func (p *PostgreSQLKeyRepository) GetActive(
	ctx context.Context,
	tenantID string,
	purpose domain.KeyPurpose,
) (*domain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE tenant_id = $1 AND purpose = $2 AND state = $3`

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
func (p *PostgreSQLKeyRepository) List(
	ctx context.Context,
	filter domain.KeyFilter,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys WHERE tenant_id = $1`
	args := []any{filter.TenantID}

	if filter.Purpose != "" {
		args = append(args, string(filter.Purpose))
		query += ` AND purpose = $2`
	}
	if filter.State != "" {
		args = append(args, string(filter.State))
		query += ` AND state = $` + itoa(len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	return p.queryKeys(ctx, querier, query, args...)
}

// ListDueForRotation retrieves active auto-rotating keys whose next rotation
// time has passed, across all tenants, oldest schedule first.
func (p *PostgreSQLKeyRepository) ListDueForRotation(
	ctx context.Context,
	now time.Time,
	limit uint,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE state = $1 AND auto_rotate = true AND next_rotation_at <= $2
			  ORDER BY next_rotation_at ASC
			  LIMIT $3`

	return p.queryKeys(ctx, querier, query, string(domain.StateActive), now, limit)
}

// ListExpired retrieves non-terminal keys whose expiration time has passed.
func (p *PostgreSQLKeyRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit uint,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE state IN ($1, $2) AND expires_at IS NOT NULL AND expires_at <= $3
			  ORDER BY expires_at ASC
			  LIMIT $4`

	return p.queryKeys(
		ctx, querier, query,
		string(domain.StateActive), string(domain.StateRetired), now, limit)
}

// ListRetiredBefore retrieves retired keys with surviving material whose
// retirement predates the cutoff, candidates for material destruction.
func (p *PostgreSQLKeyRepository) ListRetiredBefore(
	ctx context.Context,
	cutoff time.Time,
	limit uint,
) ([]*domain.Key, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + keyColumns + ` FROM managed_keys
			  WHERE state = $1 AND destroyed_at IS NULL AND retired_at <= $2
			  ORDER BY retired_at ASC
			  LIMIT $3`

	return p.queryKeys(ctx, querier, query, string(domain.StateRetired), cutoff, limit)
}

// Ping verifies database connectivity.
func (p *PostgreSQLKeyRepository) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgreSQLKeyRepository) queryKeys(
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
