// Package repository implements audit entry persistence.
//
// Audit entries are append-only: there is no update operation, and the only
// delete is the retention cleanup, which removes whole chain prefixes so the
// remaining suffix still verifies against its stored PrevSignature links.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/database"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
)

const auditColumns = `id, tenant_id, operation, outcome, key_id, service_id, user_id,
	source_ip, context, prev_signature, signature, created_at`

// PostgreSQLAuditEntryRepository implements audit entry persistence for
// PostgreSQL. Uses native UUID types with transaction support via
// database.GetTx(), so a key mutation and its audit entry commit atomically.
type PostgreSQLAuditEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditEntryRepository creates a new PostgreSQL audit entry repository.
func NewPostgreSQLAuditEntryRepository(db *sql.DB) *PostgreSQLAuditEntryRepository {
	return &PostgreSQLAuditEntryRepository{db: db}
}

// Create inserts a new audit entry. Handles nil context as database NULL.
func (p *PostgreSQLAuditEntryRepository) Create(
	ctx context.Context,
	entry *auditDomain.AuditEntry,
) error {
	querier := database.GetTx(ctx, p.db)

	contextJSON, err := marshalContext(entry.Context)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (` + auditColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.TenantID,
		string(entry.Operation),
		string(entry.Outcome),
		entry.KeyID,
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
// when the tenant has no entries yet. UUIDv7 ids are time-ordered, so the
// highest id is the chain head.
func (p *PostgreSQLAuditEntryRepository) LastSignature(
	ctx context.Context,
	tenantID string,
) ([]byte, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT signature FROM audit_entries
			  WHERE tenant_id = $1
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
func (p *PostgreSQLAuditEntryRepository) ListByTenant(
	ctx context.Context,
	tenantID string,
	limit, offset uint,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditColumns + ` FROM audit_entries
			  WHERE tenant_id = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`

	return p.queryEntries(ctx, querier, query, tenantID, limit, offset)
}

// ListChain retrieves a tenant's full chain oldest first, the order chain
// verification walks it.
func (p *PostgreSQLAuditEntryRepository) ListChain(
	ctx context.Context,
	tenantID string,
) ([]*auditDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditColumns + ` FROM audit_entries
			  WHERE tenant_id = $1
			  ORDER BY id ASC`

	return p.queryEntries(ctx, querier, query, tenantID)
}

// DeleteOlderThan removes entries created before the cutoff and returns the
// number deleted. Retention policy enforcement lives in the usecase; this
// method just executes the cut.
func (p *PostgreSQLAuditEntryRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx, `DELETE FROM audit_entries WHERE created_at < $1`, cutoff)
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
func (p *PostgreSQLAuditEntryRepository) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgreSQLAuditEntryRepository) queryEntries(
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

// scanEntry reads one audit row using the column order of auditColumns.
func scanEntry(scan func(dest ...any) error) (*auditDomain.AuditEntry, error) {
	var entry auditDomain.AuditEntry
	var operation, outcome string
	var contextJSON []byte

	err := scan(
		&entry.ID,
		&entry.TenantID,
		&operation,
		&outcome,
		&entry.KeyID,
		&entry.ServiceID,
		&entry.UserID,
		&entry.SourceIP,
		&contextJSON,
		&entry.PrevSignature,
		&entry.Signature,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Operation = auditDomain.Operation(operation)
	entry.Outcome = auditDomain.Outcome(outcome)

	if contextJSON != nil {
		if err := json.Unmarshal(contextJSON, &entry.Context); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit context")
		}
	}
	return &entry, nil
}

// marshalContext serializes entry context, mapping nil to database NULL.
func marshalContext(context map[string]string) ([]byte, error) {
	if context == nil {
		return nil, nil
	}
	out, err := json.Marshal(context)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit context")
	}
	return out, nil
}
