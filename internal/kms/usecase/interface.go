// Package usecase implements business logic orchestration for key management.
//
// This package provides the use case layer for the key lifecycle following
// Clean Architecture principles. Use cases coordinate between the key backend
// (material generation), the repository (persistence), the cache, and the
// audit trail, enforcing the business rules:
//   - Every operation validates caller identity before any side effect
//   - A tenant holds at most one active key per purpose
//   - Key mutations and their audit entries commit in one transaction
//   - Cache entries are invalidated before a mutation is acknowledged
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/doktor-sys/mietrecht-kms/internal/kms/cache"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// KeyRepository defines the interface for key persistence.
//
// Implementations must scope every read by tenant so a caller can never
// observe another tenant's keys, and must support transaction context via
// database.GetTx for atomic rotation workflows.
type KeyRepository interface {
	Create(ctx context.Context, key *domain.Key) error
	Update(ctx context.Context, key *domain.Key) error
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Key, error)
	GetActive(
		ctx context.Context,
		tenantID string,
		purpose domain.KeyPurpose,
	) (*domain.Key, error)
	List(ctx context.Context, filter domain.KeyFilter) ([]*domain.Key, error)
	ListDueForRotation(ctx context.Context, now time.Time, limit uint) ([]*domain.Key, error)
	ListExpired(ctx context.Context, now time.Time, limit uint) ([]*domain.Key, error)
	ListRetiredBefore(ctx context.Context, cutoff time.Time, limit uint) ([]*domain.Key, error)
	Ping(ctx context.Context) error
}

// CreateKeyInput carries the caller-supplied parameters for key creation.
type CreateKeyInput struct {
	Purpose              domain.KeyPurpose
	Algorithm            domain.Algorithm
	AutoRotate           bool
	RotationIntervalDays uint
	ExpiresAt            *time.Time
	Metadata             map[string]string
}

// SweepResult summarizes one maintenance sweep of the scheduler.
type SweepResult struct {
	Rotated   int
	Expired   int
	Destroyed int
	Failed    int
}

// KeyUseCase defines the key management operations.
type KeyUseCase interface {
	// CreateKey provisions a new key for the caller's tenant. Fails with
	// ErrRotationFailed when the tenant already holds an active key for the
	// purpose; rotation is the only way to replace it.
	CreateKey(
		ctx context.Context,
		rc domain.RequestContext,
		input CreateKeyInput,
	) (*domain.Key, error)

	// GetKey retrieves a key by id, tenant-scoped. A key belonging to another
	// tenant is reported as ErrKeyNotFound.
	GetKey(ctx context.Context, rc domain.RequestContext, id uuid.UUID) (*domain.Key, error)

	// GetActiveKey retrieves the tenant's active key for a purpose.
	GetActiveKey(
		ctx context.Context,
		rc domain.RequestContext,
		purpose domain.KeyPurpose,
	) (*domain.Key, error)

	// ListKeys retrieves the tenant's keys matching the filter.
	ListKeys(
		ctx context.Context,
		rc domain.RequestContext,
		filter domain.KeyFilter,
	) ([]*domain.Key, error)

	// RotateKey atomically retires the key and activates a successor version.
	// Concurrent rotations of the same key resolve to one winner; losers get
	// ErrRotationFailed.
	RotateKey(ctx context.Context, rc domain.RequestContext, id uuid.UUID) (*domain.Key, error)

	// RevokeKey immediately and irreversibly revokes the key.
	RevokeKey(
		ctx context.Context,
		rc domain.RequestContext,
		id uuid.UUID,
		reason string,
	) error

	// Sweep runs one maintenance pass: rotates due keys, expires overdue
	// keys, and destroys material of keys retired longer than gracePeriod.
	Sweep(ctx context.Context, gracePeriod time.Duration, limit uint) (SweepResult, error)

	// CacheStats exposes the key cache counters.
	CacheStats() cache.Stats

	// Ping verifies the persistence and backend dependencies are reachable.
	Ping(ctx context.Context) error
}
