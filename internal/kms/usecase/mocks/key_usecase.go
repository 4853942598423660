// Package mocks provides mock implementations for testing CLI commands and
// HTTP handlers.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/doktor-sys/mietrecht-kms/internal/kms/cache"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
)

// MockKeyUseCase is a mock implementation of KeyUseCase for testing.
type MockKeyUseCase struct {
	mock.Mock
}

// CreateKey mocks the CreateKey method of KeyUseCase.
func (m *MockKeyUseCase) CreateKey(
	ctx context.Context,
	rc domain.RequestContext,
	input usecase.CreateKeyInput,
) (*domain.Key, error) {
	args := m.Called(ctx, rc, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Key), args.Error(1)
}

// GetKey mocks the GetKey method of KeyUseCase.
func (m *MockKeyUseCase) GetKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	args := m.Called(ctx, rc, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Key), args.Error(1)
}

// GetActiveKey mocks the GetActiveKey method of KeyUseCase.
func (m *MockKeyUseCase) GetActiveKey(
	ctx context.Context,
	rc domain.RequestContext,
	purpose domain.KeyPurpose,
) (*domain.Key, error) {
	args := m.Called(ctx, rc, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Key), args.Error(1)
}

// ListKeys mocks the ListKeys method of KeyUseCase.
func (m *MockKeyUseCase) ListKeys(
	ctx context.Context,
	rc domain.RequestContext,
	filter domain.KeyFilter,
) ([]*domain.Key, error) {
	args := m.Called(ctx, rc, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Key), args.Error(1)
}

// RotateKey mocks the RotateKey method of KeyUseCase.
func (m *MockKeyUseCase) RotateKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
) (*domain.Key, error) {
	args := m.Called(ctx, rc, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Key), args.Error(1)
}

// RevokeKey mocks the RevokeKey method of KeyUseCase.
func (m *MockKeyUseCase) RevokeKey(
	ctx context.Context,
	rc domain.RequestContext,
	id uuid.UUID,
	reason string,
) error {
	args := m.Called(ctx, rc, id, reason)
	return args.Error(0)
}

// Sweep mocks the Sweep method of KeyUseCase.
func (m *MockKeyUseCase) Sweep(
	ctx context.Context,
	gracePeriod time.Duration,
	limit uint,
) (usecase.SweepResult, error) {
	args := m.Called(ctx, gracePeriod, limit)
	return args.Get(0).(usecase.SweepResult), args.Error(1)
}

// CacheStats mocks the CacheStats method of KeyUseCase.
func (m *MockKeyUseCase) CacheStats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

// Ping mocks the Ping method of KeyUseCase.
func (m *MockKeyUseCase) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
