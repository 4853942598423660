package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/cache"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/metrics"
)

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
// Cache effectiveness is derived from the cache counters between calls;
// validation rejections feed the suspicious input counter.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
		if apperrors.Is(err, apperrors.ErrInvalidTenant) {
			k.metrics.RecordSuspiciousInput(ctx, operation)
		}
	}
	k.metrics.RecordOperation(ctx, operation, status)
	k.metrics.RecordDuration(ctx, operation, time.Since(start), status)
}

// recordCacheDelta translates the cache counter movement of one lookup call
// into hit/miss metric increments.
func (k *keyUseCaseWithMetrics) recordCacheDelta(ctx context.Context, before cache.Stats) {
	after := k.next.CacheStats()
	for i := before.Hits; i < after.Hits; i++ {
		k.metrics.RecordCacheAccess(ctx, "hit")
	}
	for i := before.Misses; i < after.Misses; i++ {
		k.metrics.RecordCacheAccess(ctx, "miss")
	}
}

// CreateKey records metrics for key creation operations.
func (k *keyUseCaseWithMetrics) CreateKey(
	ctx context.Context,
	rc domain.RequestContext,
	input CreateKeyInput,
) (*domain.Key, error) {
	start := time.Now()
	key, err := k.next.CreateKey(ctx, rc, input)
	k.record(ctx, "create_key", start, err)
	return key, err
}

// GetKey records metrics for key retrieval operations including cache results.
func (k *keyUseCaseWithMetrics) GetKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	start := time.Now()
	before := k.next.CacheStats()
	key, err := k.next.GetKey(ctx, rc, id)
	k.recordCacheDelta(ctx, before)
	k.record(ctx, "get_key", start, err)
	return key, err
}

// GetActiveKey records metrics for active key lookups including cache results.
func (k *keyUseCaseWithMetrics) GetActiveKey(
	ctx context.Context,
	rc domain.RequestContext,
	purpose domain.KeyPurpose,
) (*domain.Key, error) {
	start := time.Now()
	before := k.next.CacheStats()
	key, err := k.next.GetActiveKey(ctx, rc, purpose)
	k.recordCacheDelta(ctx, before)
	k.record(ctx, "get_active_key", start, err)
	return key, err
}

// ListKeys records metrics for key listing operations.
func (k *keyUseCaseWithMetrics) ListKeys(
	ctx context.Context,
	rc domain.RequestContext,
	filter domain.KeyFilter,
) ([]*domain.Key, error) {
	start := time.Now()
	keys, err := k.next.ListKeys(ctx, rc, filter)
	k.record(ctx, "list_keys", start, err)
	return keys, err
}

// RotateKey records metrics for rotation operations.
func (k *keyUseCaseWithMetrics) RotateKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	start := time.Now()
	key, err := k.next.RotateKey(ctx, rc, id)
	k.record(ctx, "rotate_key", start, err)
	return key, err
}

// RevokeKey records metrics for revocation operations.
func (k *keyUseCaseWithMetrics) RevokeKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
	reason string,
) error {
	start := time.Now()
	err := k.next.RevokeKey(ctx, rc, id, reason)
	k.record(ctx, "revoke_key", start, err)
	return err
}

// Sweep records metrics for maintenance sweeps.
func (k *keyUseCaseWithMetrics) Sweep(
	ctx context.Context,
	gracePeriod time.Duration,
	limit uint,
) (SweepResult, error) {
	start := time.Now()
	result, err := k.next.Sweep(ctx, gracePeriod, limit)
	k.record(ctx, "sweep", start, err)
	return result, err
}

// CacheStats passes through to the wrapped use case.
func (k *keyUseCaseWithMetrics) CacheStats() cache.Stats {
	return k.next.CacheStats()
}

// Ping passes through to the wrapped use case.
func (k *keyUseCaseWithMetrics) Ping(ctx context.Context) error {
	return k.next.Ping(ctx)
}
