package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// Retrier wraps a KeyBackend with a per-operation timeout and exponential
// backoff retries. Validation and not-found failures are permanent and
// returned immediately; everything else is treated as transient up to
// maxRetries attempts.
type Retrier struct {
	backend    KeyBackend
	timeout    time.Duration
	maxRetries uint64
}

// NewRetrier wraps backend. timeout bounds each individual attempt; maxRetries
// counts retries after the first attempt.
func NewRetrier(backend KeyBackend, timeout time.Duration, maxRetries uint64) *Retrier {
	return &Retrier{backend: backend, timeout: timeout, maxRetries: maxRetries}
}

// Name identifies the wrapped backend.
func (r *Retrier) Name() string {
	return r.backend.Name()
}

func permanent(err error) bool {
	return apperrors.Is(err, apperrors.ErrKeyNotFound) ||
		apperrors.Is(err, apperrors.ErrInvalidTenant)
}

func (r *Retrier) retry(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := func() error {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		if err := op(opCtx); err != nil {
			if permanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries), ctx)
	return backoff.Retry(attempt, bo)
}

// CreateKeyMaterial retries material generation; exhaustion surfaces as
// ErrEncryptionFailed so callers never see a half-created key.
func (r *Retrier) CreateKeyMaterial(
	ctx context.Context,
	key *domain.Key,
) (domain.MaterialHandle, error) {
	var handle domain.MaterialHandle
	err := r.retry(ctx, func(ctx context.Context) error {
		var opErr error
		handle, opErr = r.backend.CreateKeyMaterial(ctx, key)
		return opErr
	})
	if err != nil {
		if permanent(err) {
			return domain.MaterialHandle{}, err
		}
		return domain.MaterialHandle{}, apperrors.Wrap(
			apperrors.ErrEncryptionFailed, "backend exhausted retries creating key material")
	}
	return handle, nil
}

// FetchKeyMaterial retries material resolution.
func (r *Retrier) FetchKeyMaterial(ctx context.Context, key *domain.Key) ([]byte, error) {
	var material []byte
	err := r.retry(ctx, func(ctx context.Context) error {
		var opErr error
		material, opErr = r.backend.FetchKeyMaterial(ctx, key)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

// DestroyKeyMaterial retries destruction.
func (r *Retrier) DestroyKeyMaterial(ctx context.Context, key *domain.Key) error {
	return r.retry(ctx, func(ctx context.Context) error {
		return r.backend.DestroyKeyMaterial(ctx, key)
	})
}

// Ping runs a single health check attempt with the operation timeout.
func (r *Retrier) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.backend.Ping(opCtx)
}
