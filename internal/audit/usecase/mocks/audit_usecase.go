// Package mocks provides mock implementations for testing CLI commands and
// HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	"github.com/doktor-sys/mietrecht-kms/internal/audit/usecase"
)

// MockAuditUseCase is a mock implementation of AuditUseCase for testing.
type MockAuditUseCase struct {
	mock.Mock
}

// Append mocks the Append method of AuditUseCase.
func (m *MockAuditUseCase) Append(ctx context.Context, entry *auditDomain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// List mocks the List method of AuditUseCase.
func (m *MockAuditUseCase) List(
	ctx context.Context,
	tenantID string,
	limit, offset uint,
) ([]*auditDomain.AuditEntry, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditEntry), args.Error(1)
}

// VerifyChain mocks the VerifyChain method of AuditUseCase.
func (m *MockAuditUseCase) VerifyChain(
	ctx context.Context,
	tenantID string,
) (*usecase.VerifyResult, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.VerifyResult), args.Error(1)
}

// CleanOlderThan mocks the CleanOlderThan method of AuditUseCase.
func (m *MockAuditUseCase) CleanOlderThan(
	ctx context.Context,
	retentionDays uint,
) (int64, error) {
	args := m.Called(ctx, retentionDays)
	return args.Get(0).(int64), args.Error(1)
}
