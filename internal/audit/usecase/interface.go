// Package usecase implements business logic orchestration for the audit trail.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
)

// AuditEntryRepository defines audit entry persistence operations.
type AuditEntryRepository interface {
	Create(ctx context.Context, entry *auditDomain.AuditEntry) error
	LastSignature(ctx context.Context, tenantID string) ([]byte, error)
	ListByTenant(
		ctx context.Context,
		tenantID string,
		limit, offset uint,
	) ([]*auditDomain.AuditEntry, error)
	ListChain(ctx context.Context, tenantID string) ([]*auditDomain.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// VerifyResult reports the outcome of a chain verification walk.
type VerifyResult struct {
	TenantID string
	Entries  int
	Valid    bool
	// BrokenAt is the id of the first entry failing verification, empty when
	// the chain is intact.
	BrokenAt string
}

// AuditUseCase defines the audit trail operations.
type AuditUseCase interface {
	// Append signs and persists the entry at the head of its tenant's chain.
	// Safe for concurrent use; appends to the same tenant serialize.
	Append(ctx context.Context, entry *auditDomain.AuditEntry) error

	// List retrieves a tenant's entries newest first.
	List(
		ctx context.Context,
		tenantID string,
		limit, offset uint,
	) ([]*auditDomain.AuditEntry, error)

	// VerifyChain walks a tenant's full chain oldest first and reports the
	// first broken link, if any.
	VerifyChain(ctx context.Context, tenantID string) (*VerifyResult, error)

	// CleanOlderThan removes entries older than the retention period. The
	// retention floor is enforced here; shorter periods are rejected.
	CleanOlderThan(ctx context.Context, retentionDays uint) (int64, error)
}
