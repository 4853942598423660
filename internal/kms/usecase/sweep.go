package usecase

import (
	"context"
	"strconv"
	"time"

	validation "github.com/jellydator/validation"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	appvalidation "github.com/doktor-sys/mietrecht-kms/internal/validation"
)

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}

// validatePurposeAlgorithm checks a purpose and algorithm pair against the
// known sets.
func validatePurposeAlgorithm(purpose domain.KeyPurpose, alg domain.Algorithm) error {
	err := validation.Errors{
		"purpose": validation.Validate(
			string(purpose), validation.Required, appvalidation.PurposeRule),
		"algorithm": validation.Validate(string(alg), appvalidation.AlgorithmRule),
	}.Filter()
	return appvalidation.WrapValidationError(err)
}

// schedulerContext builds the synthetic caller identity for maintenance
// operations on a tenant's keys.
func schedulerContext(tenantID string) domain.RequestContext {
	return domain.RequestContext{TenantID: tenantID, ServiceID: schedulerServiceID}
}

// Sweep runs one maintenance pass over the whole key population:
//
//  1. rotate keys whose auto-rotation schedule has come due
//  2. expire keys past their expiration time
//  3. destroy material of keys retired longer than gracePeriod ago
//
// Each key is handled independently; one failing key is counted and skipped
// so a poisoned row cannot stall the whole sweep.
func (k *keyUseCase) Sweep(
	ctx context.Context,
	gracePeriod time.Duration,
	limit uint,
) (SweepResult, error) {
	var result SweepResult
	now := time.Now().UTC()

	due, err := k.keyRepo.ListDueForRotation(ctx, now, limit)
	if err != nil {
		return result, err
	}
	for _, key := range due {
		if err := k.rotateDue(ctx, key); err != nil {
			k.logger.Error("scheduled rotation failed",
				"key_id", key.ID.String(), "error", err)
			result.Failed++
			continue
		}
		result.Rotated++
	}

	expired, err := k.keyRepo.ListExpired(ctx, now, limit)
	if err != nil {
		return result, err
	}
	for _, key := range expired {
		if err := k.expire(ctx, key, now); err != nil {
			k.logger.Error("expiration failed", "key_id", key.ID.String(), "error", err)
			result.Failed++
			continue
		}
		result.Expired++
	}

	retired, err := k.keyRepo.ListRetiredBefore(ctx, now.Add(-gracePeriod), limit)
	if err != nil {
		return result, err
	}
	for _, key := range retired {
		if err := k.destroy(ctx, key, now); err != nil {
			k.logger.Error("material destruction failed",
				"key_id", key.ID.String(), "error", err)
			result.Failed++
			continue
		}
		result.Destroyed++
	}

	return result, nil
}

// rotateDue rotates one scheduled key under its per-key lock. A key already
// being rotated by a caller is skipped silently; the next sweep picks it up
// if the caller's rotation did not land.
func (k *keyUseCase) rotateDue(ctx context.Context, key *domain.Key) error {
	unlock := k.locks.tryLock(key.ID)
	if unlock == nil {
		return nil
	}
	defer unlock()

	_, err := k.rotate(ctx, schedulerContext(key.TenantID), key.ID)
	return err
}

// expire moves a key past its expiration time into the EXPIRED state.
func (k *keyUseCase) expire(ctx context.Context, key *domain.Key, now time.Time) error {
	rc := schedulerContext(key.TenantID)

	err := k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		key.State = domain.StateExpired
		key.UpdatedAt = now
		key.NextRotationAt = nil
		if err := k.keyRepo.Update(txCtx, key); err != nil {
			return err
		}
		entry := successEntry(rc, auditDomain.OperationExpire, key.ID, map[string]string{
			"expired_at": key.ExpiresAt.Format(time.RFC3339),
		})
		return k.audit.Append(txCtx, entry)
	})
	if err != nil {
		return err
	}

	k.keyCache.Invalidate(key.TenantID, key.ID.String())
	k.keyCache.Invalidate(key.TenantID, activeSlot(key.Purpose))
	return nil
}

// destroy irreversibly destroys the material of a retired key whose grace
// window has elapsed. The backend destruction runs first; a key whose
// material is gone but whose row still lacks DestroyedAt is retried by the
// next sweep, which is safe because destruction is idempotent.
func (k *keyUseCase) destroy(ctx context.Context, key *domain.Key, now time.Time) error {
	rc := schedulerContext(key.TenantID)

	if err := k.backend.DestroyKeyMaterial(ctx, key); err != nil {
		return err
	}

	err := k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		key.DestroyedAt = &now
		key.UpdatedAt = now
		if err := k.keyRepo.Update(txCtx, key); err != nil {
			return err
		}
		entry := successEntry(rc, auditDomain.OperationDestroy, key.ID, map[string]string{
			"version": itoa(key.Version),
		})
		return k.audit.Append(txCtx, entry)
	})
	if err != nil {
		return err
	}

	k.keyCache.Invalidate(key.TenantID, key.ID.String())
	return nil
}
