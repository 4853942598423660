package usecase

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	auditService "github.com/doktor-sys/mietrecht-kms/internal/audit/service"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/validation"
)

// auditUseCase implements AuditUseCase.
//
// Appends to the same tenant serialize on a per-tenant mutex so the
// read-last-signature, sign, insert sequence stays atomic with respect to
// other appenders in this process. Cross-process ordering comes from running
// inside the caller's database transaction.
type auditUseCase struct {
	repo   AuditEntryRepository
	signer auditService.ChainSigner

	mu          sync.Mutex
	tenantLocks map[string]*sync.Mutex
}

// NewAuditUseCase creates a new AuditUseCase with the provided dependencies.
func NewAuditUseCase(repo AuditEntryRepository, signer auditService.ChainSigner) AuditUseCase {
	return &auditUseCase{
		repo:        repo,
		signer:      signer,
		tenantLocks: make(map[string]*sync.Mutex),
	}
}

func (a *auditUseCase) tenantLock(tenantID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.tenantLocks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		a.tenantLocks[tenantID] = lock
	}
	return lock
}

// Append signs and persists the entry at the head of its tenant's chain.
// The entry's ID and CreatedAt are assigned here; Context is stripped of
// sensitive fields before signing so the signature covers exactly what is
// stored.
func (a *auditUseCase) Append(ctx context.Context, entry *auditDomain.AuditEntry) error {
	if entry.TenantID == "" {
		return apperrors.Wrap(apperrors.ErrAuditLogError, "audit entry missing tenant")
	}

	lock := a.tenantLock(entry.TenantID)
	lock.Lock()
	defer lock.Unlock()

	entry.ID = uuid.Must(uuid.NewV7())
	entry.CreatedAt = time.Now().UTC()
	entry.Context = validation.SafeContext(entry.Context)

	prev, err := a.repo.LastSignature(ctx, entry.TenantID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAuditLogError, "failed to load chain head")
	}
	entry.PrevSignature = prev

	signature, err := a.signer.Sign(entry)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAuditLogError, "failed to sign audit entry")
	}
	entry.Signature = signature

	if err := a.repo.Create(ctx, entry); err != nil {
		return apperrors.Wrap(apperrors.ErrAuditLogError, "failed to persist audit entry")
	}
	return nil
}

// List retrieves a tenant's entries newest first with pagination.
func (a *auditUseCase) List(
	ctx context.Context,
	tenantID string,
	limit, offset uint,
) ([]*auditDomain.AuditEntry, error) {
	// a zero limit means the caller did not page; ValidatePagination
	// substitutes the maximum page size
	limit, offset, err := validation.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}

	entries, err := a.repo.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	return entries, nil
}

// VerifyChain walks the tenant's chain oldest first, checking each entry's
// signature and its link to the predecessor. The walk stops at the first
// broken entry.
func (a *auditUseCase) VerifyChain(ctx context.Context, tenantID string) (*VerifyResult, error) {
	entries, err := a.repo.ListChain(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load audit chain")
	}

	result := &VerifyResult{TenantID: tenantID, Entries: len(entries), Valid: true}

	var prev []byte
	for i, entry := range entries {
		// the stored link must match the predecessor's signature; the oldest
		// surviving entry is exempt since retention cleanup removes prefixes
		if i > 0 && !bytes.Equal(entry.PrevSignature, prev) {
			result.Valid = false
			result.BrokenAt = entry.ID.String()
			return result, nil
		}
		if err := a.signer.Verify(entry); err != nil {
			result.Valid = false
			result.BrokenAt = entry.ID.String()
			return result, nil
		}
		prev = entry.Signature
	}
	return result, nil
}

// CleanOlderThan removes entries past the retention period. Periods below the
// regulatory floor are rejected so a misconfiguration cannot shred evidence.
func (a *auditUseCase) CleanOlderThan(ctx context.Context, retentionDays uint) (int64, error) {
	if retentionDays < domain.MinAuditRetentionDays {
		return 0, apperrors.Wrap(
			apperrors.ErrInvalidInput, "retention period below regulatory minimum")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -int(retentionDays))
	deleted, err := a.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to clean audit entries")
	}
	return deleted, nil
}
