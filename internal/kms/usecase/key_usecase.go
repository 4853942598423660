package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	auditUsecase "github.com/doktor-sys/mietrecht-kms/internal/audit/usecase"
	"github.com/doktor-sys/mietrecht-kms/internal/database"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/cache"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/service"
	"github.com/doktor-sys/mietrecht-kms/internal/validation"
)

// schedulerServiceID identifies maintenance sweeps in audit entries.
const schedulerServiceID = "rotation-scheduler"

// keyUseCase implements the KeyUseCase interface.
//
// Mutations follow a fixed discipline: validate first, generate material
// outside the transaction, then persist the key row and its audit entry in
// one transaction, and only then touch the cache. Audit persistence failing
// rolls the mutation back; the operation never succeeds unaudited.
type keyUseCase struct {
	txManager           database.TxManager
	keyRepo             KeyRepository
	backend             service.KeyBackend
	keyCache            *cache.KeyCache
	audit               auditUsecase.AuditUseCase
	logger              *slog.Logger
	defaultRotationDays uint
	locks               *keyLocks
	creates             *slotLocks
}

// NewKeyUseCase creates a new KeyUseCase with the provided dependencies.
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	backend service.KeyBackend,
	keyCache *cache.KeyCache,
	audit auditUsecase.AuditUseCase,
	logger *slog.Logger,
	defaultRotationDays uint,
) KeyUseCase {
	return &keyUseCase{
		txManager:           txManager,
		keyRepo:             keyRepo,
		backend:             backend,
		keyCache:            keyCache,
		audit:               audit,
		logger:              logger,
		defaultRotationDays: defaultRotationDays,
		locks:               newKeyLocks(),
		creates:             newSlotLocks(),
	}
}

// activeSlot is the synthetic cache id for a tenant's active key per purpose.
func activeSlot(purpose domain.KeyPurpose) string {
	return "active/" + string(purpose)
}

// recordFailure appends a failure audit entry outside any transaction.
// Failure entries are best-effort: the triggering error is what the caller
// must see, so a second failure here is only logged.
func (k *keyUseCase) recordFailure(
	ctx context.Context,
	rc domain.RequestContext,
	op auditDomain.Operation,
	keyID uuid.UUID,
	reason string,
) {
	entry := &auditDomain.AuditEntry{
		TenantID:  rc.TenantID,
		Operation: op,
		Outcome:   auditDomain.OutcomeFailure,
		KeyID:     keyID,
		ServiceID: rc.ServiceID,
		UserID:    rc.UserID,
		SourceIP:  rc.SourceIP,
		Context: map[string]string{
			"reason": validation.SanitizeErrorMessage(reason, rc.TenantID),
		},
	}
	if err := k.audit.Append(ctx, entry); err != nil {
		k.logger.Error("failed to record failure audit entry",
			"operation", string(op), "error", err)
	}
}

// rejectInput logs a redacted warning for a validation rejection and returns
// the error unchanged. Offending input never reaches the log line verbatim.
func (k *keyUseCase) rejectInput(
	op auditDomain.Operation,
	rc domain.RequestContext,
	err error,
) error {
	k.logger.Warn("rejected invalid input",
		"operation", string(op),
		"reason", validation.SanitizeErrorMessage(err.Error(), rc.TenantID),
	)
	return err
}

func successEntry(
	rc domain.RequestContext,
	op auditDomain.Operation,
	keyID uuid.UUID,
	context map[string]string,
) *auditDomain.AuditEntry {
	return &auditDomain.AuditEntry{
		TenantID:  rc.TenantID,
		Operation: op,
		Outcome:   auditDomain.OutcomeSuccess,
		KeyID:     keyID,
		ServiceID: rc.ServiceID,
		UserID:    rc.UserID,
		SourceIP:  rc.SourceIP,
		Context:   context,
	}
}

func normalize(rc domain.RequestContext) domain.RequestContext {
	rc.TenantID = validation.NormalizeIdentifier(rc.TenantID)
	rc.ServiceID = validation.NormalizeIdentifier(rc.ServiceID)
	rc.UserID = validation.NormalizeIdentifier(rc.UserID)
	return rc
}

func (k *keyUseCase) validateCreateInput(now time.Time, input *CreateKeyInput) error {
	if input.Algorithm == "" {
		input.Algorithm = domain.DefaultAlgorithm
	}
	if err := validatePurposeAlgorithm(input.Purpose, input.Algorithm); err != nil {
		return err
	}
	if input.AutoRotate {
		if input.RotationIntervalDays == 0 {
			input.RotationIntervalDays = k.defaultRotationDays
		}
		if err := validation.ValidateRotationInterval(input.RotationIntervalDays); err != nil {
			return err
		}
	}
	if err := validation.ValidateExpiration(now, input.ExpiresAt); err != nil {
		return err
	}
	return validation.ValidateMetadata(input.Metadata)
}

// CreateKey provisions a new key for the caller's tenant.
//
// The key is inserted as PENDING together with its audit entry and flipped to
// ACTIVE in the same transaction, so an ACTIVE key without a create entry in
// the audit trail cannot exist. Material is generated before the transaction;
// when the transaction fails, the orphaned material is destroyed best-effort.
func (k *keyUseCase) CreateKey(
	ctx context.Context,
	rc domain.RequestContext,
	input CreateKeyInput,
) (*domain.Key, error) {
	rc = normalize(rc)
	if err := validation.ValidateRequestContext(rc); err != nil {
		return nil, k.rejectInput(auditDomain.OperationCreate, rc, err)
	}

	now := time.Now().UTC()
	if err := k.validateCreateInput(now, &input); err != nil {
		k.recordFailure(ctx, rc, auditDomain.OperationCreate, uuid.Nil, err.Error())
		return nil, k.rejectInput(auditDomain.OperationCreate, rc, err)
	}

	// one active key per tenant and purpose; the slot lock keeps a concurrent
	// creation from passing the check before this one commits
	unlock := k.creates.lock(rc.TenantID + "/" + string(input.Purpose))
	defer unlock()

	existing, err := k.keyRepo.GetActive(ctx, rc.TenantID, input.Purpose)
	if err != nil && !apperrors.Is(err, apperrors.ErrKeyNotFound) {
		return nil, err
	}
	if existing != nil {
		k.recordFailure(ctx, rc, auditDomain.OperationCreate, existing.ID,
			"active key already exists for purpose")
		return nil, apperrors.Wrap(
			apperrors.ErrRotationFailed, "active key already exists, rotate it instead")
	}

	key := &domain.Key{
		ID:                   uuid.Must(uuid.NewV7()),
		TenantID:             rc.TenantID,
		Purpose:              input.Purpose,
		Algorithm:            input.Algorithm,
		State:                domain.StatePending,
		Version:              1,
		AutoRotate:           input.AutoRotate,
		RotationIntervalDays: input.RotationIntervalDays,
		Metadata:             input.Metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
		ExpiresAt:            input.ExpiresAt,
	}
	if input.AutoRotate {
		next := now.AddDate(0, 0, int(input.RotationIntervalDays))
		key.NextRotationAt = &next
	}

	handle, err := k.backend.CreateKeyMaterial(ctx, key)
	if err != nil {
		k.recordFailure(ctx, rc, auditDomain.OperationCreate, key.ID, err.Error())
		return nil, err
	}
	key.Material = handle

	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := k.keyRepo.Create(txCtx, key); err != nil {
			return err
		}
		entry := successEntry(rc, auditDomain.OperationCreate, key.ID, map[string]string{
			"purpose":   string(key.Purpose),
			"algorithm": string(key.Algorithm),
			"backend":   k.backend.Name(),
		})
		if err := k.audit.Append(txCtx, entry); err != nil {
			return err
		}
		key.State = domain.StateActive
		key.UpdatedAt = time.Now().UTC()
		return k.keyRepo.Update(txCtx, key)
	})
	if err != nil {
		if destroyErr := k.backend.DestroyKeyMaterial(ctx, key); destroyErr != nil {
			k.logger.Error("failed to destroy orphaned key material",
				"key_id", key.ID.String(), "error", destroyErr)
		}
		return nil, err
	}

	k.keyCache.Put(key.TenantID, key.ID.String(), key)
	k.keyCache.Put(key.TenantID, activeSlot(key.Purpose), key)
	k.logger.Info("key created",
		"key_id", key.ID.String(), "purpose", string(key.Purpose), "version", key.Version)
	return key, nil
}

// GetKey retrieves a key by id, serving from cache when possible. Repository
// loads append an access audit entry; the entry is best-effort so a broken
// audit store degrades reads instead of blacking them out. Cache hits are not
// individually audited.
func (k *keyUseCase) GetKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	rc = normalize(rc)
	if err := validation.ValidateRequestContext(rc); err != nil {
		return nil, k.rejectInput(auditDomain.OperationAccess, rc, err)
	}

	if cached := k.keyCache.Get(rc.TenantID, id.String()); cached != nil {
		return cached, nil
	}

	key, err := k.keyRepo.Get(ctx, rc.TenantID, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrKeyNotFound) {
			k.recordFailure(ctx, rc, auditDomain.OperationAccess, id, "key not found")
		}
		return nil, err
	}

	entry := successEntry(rc, auditDomain.OperationAccess, key.ID, nil)
	if auditErr := k.audit.Append(ctx, entry); auditErr != nil {
		k.logger.Error("failed to record access audit entry",
			"key_id", key.ID.String(), "error", auditErr)
	}

	k.keyCache.Put(key.TenantID, key.ID.String(), key)
	return key, nil
}

// GetActiveKey retrieves the tenant's active key for a purpose.
func (k *keyUseCase) GetActiveKey(
	ctx context.Context,
	rc domain.RequestContext,
	purpose domain.KeyPurpose,
) (*domain.Key, error) {
	rc = normalize(rc)
	if err := validation.ValidateRequestContext(rc); err != nil {
		return nil, k.rejectInput(auditDomain.OperationAccess, rc, err)
	}
	if err := validatePurposeAlgorithm(purpose, domain.DefaultAlgorithm); err != nil {
		return nil, k.rejectInput(auditDomain.OperationAccess, rc, err)
	}

	if cached := k.keyCache.Get(rc.TenantID, activeSlot(purpose)); cached != nil {
		if cached.Usable() {
			return cached, nil
		}
		k.keyCache.Invalidate(rc.TenantID, activeSlot(purpose))
	}

	key, err := k.keyRepo.GetActive(ctx, rc.TenantID, purpose)
	if err != nil {
		return nil, err
	}

	k.keyCache.Put(key.TenantID, activeSlot(purpose), key)
	k.keyCache.Put(key.TenantID, key.ID.String(), key)
	return key, nil
}

// ListKeys retrieves the tenant's keys matching the filter.
func (k *keyUseCase) ListKeys(
	ctx context.Context,
	rc domain.RequestContext,
	filter domain.KeyFilter,
) ([]*domain.Key, error) {
	rc = normalize(rc)
	if err := validation.ValidateRequestContext(rc); err != nil {
		return nil, k.rejectInput(auditDomain.OperationAccess, rc, err)
	}

	// a zero filter limit means the caller did not page; ValidatePagination
	// substitutes the maximum page size
	limit, offset, err := validation.ValidatePagination(filter.Limit, filter.Offset)
	if err != nil {
		return nil, k.rejectInput(auditDomain.OperationAccess, rc, err)
	}

	// the filter tenant is always the caller's tenant, never caller-supplied
	filter.TenantID = rc.TenantID
	filter.Limit = limit
	filter.Offset = offset

	return k.keyRepo.List(ctx, filter)
}

// RotateKey atomically retires the key and activates a successor version.
func (k *keyUseCase) RotateKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	rc = normalize(rc)
	if err := validation.ValidateRequestContext(rc); err != nil {
		return nil, k.rejectInput(auditDomain.OperationRotate, rc, err)
	}

	unlock := k.locks.tryLock(id)
	if unlock == nil {
		k.recordFailure(ctx, rc, auditDomain.OperationRotate, id, "rotation already in progress")
		return nil, apperrors.Wrap(apperrors.ErrRotationFailed, "rotation already in progress")
	}
	defer unlock()

	return k.rotate(ctx, rc, id)
}

// rotate performs the rotation once the per-key lock is held.
func (k *keyUseCase) rotate(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	old, err := k.keyRepo.Get(ctx, rc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if old.State != domain.StateActive {
		k.recordFailure(ctx, rc, auditDomain.OperationRotate, id, "key is not active")
		return nil, apperrors.Wrap(apperrors.ErrRotationFailed, "only active keys can be rotated")
	}

	now := time.Now().UTC()
	successor := &domain.Key{
		ID:                   uuid.Must(uuid.NewV7()),
		TenantID:             old.TenantID,
		Purpose:              old.Purpose,
		Algorithm:            old.Algorithm,
		State:                domain.StateActive,
		Version:              old.Version + 1,
		AutoRotate:           old.AutoRotate,
		RotationIntervalDays: old.RotationIntervalDays,
		Metadata:             old.Metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
		ExpiresAt:            old.ExpiresAt,
		LastRotatedAt:        &now,
	}
	if successor.AutoRotate {
		next := now.AddDate(0, 0, int(successor.RotationIntervalDays))
		successor.NextRotationAt = &next
	}

	handle, err := k.backend.CreateKeyMaterial(ctx, successor)
	if err != nil {
		k.recordFailure(ctx, rc, auditDomain.OperationRotate, id, err.Error())
		return nil, err
	}
	successor.Material = handle

	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		old.State = domain.StateRetired
		old.RetiredAt = &now
		old.UpdatedAt = now
		old.NextRotationAt = nil
		if err := k.keyRepo.Update(txCtx, old); err != nil {
			return err
		}
		if err := k.keyRepo.Create(txCtx, successor); err != nil {
			return err
		}
		entry := successEntry(rc, auditDomain.OperationRotate, old.ID, map[string]string{
			"successor_id": successor.ID.String(),
			"version":      itoa(successor.Version),
		})
		return k.audit.Append(txCtx, entry)
	})
	if err != nil {
		if destroyErr := k.backend.DestroyKeyMaterial(ctx, successor); destroyErr != nil {
			k.logger.Error("failed to destroy orphaned key material",
				"key_id", successor.ID.String(), "error", destroyErr)
		}
		return nil, apperrors.Wrap(apperrors.ErrRotationFailed, "rotation transaction failed")
	}

	k.keyCache.Invalidate(old.TenantID, old.ID.String())
	k.keyCache.Invalidate(old.TenantID, activeSlot(old.Purpose))
	k.keyCache.Put(successor.TenantID, successor.ID.String(), successor)
	k.keyCache.Put(successor.TenantID, activeSlot(successor.Purpose), successor)

	k.logger.Info("key rotated",
		"key_id", old.ID.String(),
		"successor_id", successor.ID.String(),
		"version", successor.Version)
	return successor, nil
}

// RevokeKey immediately revokes the key. Revoking an already-revoked key is
// an idempotent no-op so retried revocations cannot fail spuriously.
func (k *keyUseCase) RevokeKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
	reason string,
) error {
	rc = normalize(rc)
	if err := validation.ValidateRequestContext(rc); err != nil {
		return k.rejectInput(auditDomain.OperationRevoke, rc, err)
	}
	if validation.ContainsInjectionPattern(reason) {
		err := apperrors.Wrap(apperrors.ErrInvalidTenant, "reason contains disallowed content")
		return k.rejectInput(auditDomain.OperationRevoke, rc, err)
	}

	key, err := k.keyRepo.Get(ctx, rc.TenantID, id)
	if err != nil {
		return err
	}
	if key.State == domain.StateRevoked {
		return nil
	}
	if key.State != domain.StateActive && key.State != domain.StateRetired {
		return apperrors.Wrap(
			apperrors.ErrInvalidInput, "only active or retired keys can be revoked")
	}

	now := time.Now().UTC()
	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		key.State = domain.StateRevoked
		key.UpdatedAt = now
		key.NextRotationAt = nil
		if err := k.keyRepo.Update(txCtx, key); err != nil {
			return err
		}
		entry := successEntry(rc, auditDomain.OperationRevoke, key.ID, map[string]string{
			"reason": validation.SanitizeErrorMessage(reason, rc.TenantID),
		})
		return k.audit.Append(txCtx, entry)
	})
	if err != nil {
		return err
	}

	k.keyCache.Invalidate(key.TenantID, key.ID.String())
	k.keyCache.Invalidate(key.TenantID, activeSlot(key.Purpose))

	k.logger.Warn("key revoked", "key_id", key.ID.String(), "tenant_present", true)
	return nil
}

// CacheStats exposes the key cache counters.
func (k *keyUseCase) CacheStats() cache.Stats {
	return k.keyCache.Stats()
}

// Ping verifies the persistence and backend dependencies are reachable.
func (k *keyUseCase) Ping(ctx context.Context) error {
	if err := k.keyRepo.Ping(ctx); err != nil {
		return err
	}
	return k.backend.Ping(ctx)
}
