package repository

import (
	"context"
	"database/sql"
	"time"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/database"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
)

// MySQLAuditEntryRepository implements audit entry persistence for MySQL.
// Uses CHAR(36) for UUIDs and BLOB for signatures; behavior matches the
// PostgreSQL implementation.
type MySQLAuditEntryRepository struct {
	db *sql.DB
}

// NewMySQLAuditEntryRepository creates a new MySQL audit entry repository.
func NewMySQLAuditEntryRepository(db *sql.DB) *MySQLAuditEntryRepository {
	return &MySQLAuditEntryRepository{db: db}
}

// Create inserts a new audit entry. Handles nil context as database NULL.
func (m *MySQLAuditEntryRepository) Create(
	ctx context.Context,
	entry *auditDomain.AuditEntry,
) error {
	querier := database.GetTx(ctx, m.db)

	contextJSON, err := marshalContext(entry.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (` + auditColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID.String(),
		entry.TenantID,
		string(entry.Operation),
		string(entry.Outcome),
		entry.KeyID.String(),
		entry.ServiceID,
		entry.UserID,
		entry.SourceIP,
		contextJSON,
		entry.PrevSignature,
		entry.Signature,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit entry")
	}
	return nil
}

// LastSignature returns the newest signature in the tenant's chain, or nil
// when the tenant has no entries yet.
func (m *MySQLAuditEntryRepository) LastSignature(
	ctx context.Context,
	tenantID string,
) ([]byte, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT signature FROM audit_entries
			  WHERE tenant_id = ?
			  ORDER BY id DESC
			  LIMIT 1`

	var signature []byte
	err := querier.QueryRowContext(ctx, query, tenantID).Scan(&signature)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to get last audit signature")
	}
	return signature, nil
}

// ListByTenant retrieves a tenant's entries newest first with pagination.
func (m *MySQLAuditEntryRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	limit, offset uint,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditColumns + ` FROM audit_entries
			  WHERE tenant_id = ?
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

	return m.queryEntries(ctx, querier, query, tenantID, limit, offset)
}

// ListChain retrieves a tenant's full chain oldest first.
func (m *MySQLAuditEntryRepository) ListChain(
	ctx context.Context,
	tenantID string,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + auditColumns + ` FROM audit_entries
			  WHERE tenant_id = ?
			  ORDER BY id ASC`

	return m.queryEntries(ctx, querier, query, tenantID)
}

// DeleteOlderThan removes entries created before the cutoff and returns the
// number deleted.
func (m *MySQLAuditEntryRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx, `DELETE FROM audit_entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit entries")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit entries")
	}
	return deleted, nil
}

// Ping verifies database connectivity.
func (m *MySQLAuditEntryRepository) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLAuditEntryRepository) queryEntries(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*auditDomain.AuditEntry, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*auditDomain.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit entry")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	return entries, nil
}
