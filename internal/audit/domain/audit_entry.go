// Package domain defines the audit trail types for key management operations.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the key lifecycle action an audit entry records.
type Operation string

const (
	OperationCreate  Operation = "create"
	OperationAccess  Operation = "access"
	OperationRotate  Operation = "rotate"
	OperationRevoke  Operation = "revoke"
	OperationExpire  Operation = "expire"
	OperationDestroy Operation = "destroy"
)

// Outcome records whether the operation succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// AuditEntry records one key management operation for compliance review.
//
// Entries form a per-tenant hash chain: each signature covers the entry's
// canonical form concatenated with the previous signature for the same
// tenant, so removing or reordering an entry breaks verification of every
// entry after it. The first entry of a tenant has an empty PrevSignature.
//
// Context must only ever hold sanitized values; the deny-list in the
// validation package strips sensitive fields before an entry is built.
type AuditEntry struct {
	ID            uuid.UUID         `json:"id"`
	TenantID      string            `json:"tenant_id"`
	Operation     Operation         `json:"operation"`
	Outcome       Outcome           `json:"outcome"`
	KeyID         uuid.UUID         `json:"key_id"`
	ServiceID     string            `json:"service_id"`
	UserID        string            `json:"user_id,omitempty"`
	SourceIP      string            `json:"source_ip,omitempty"`
	Context       map[string]string `json:"context,omitempty"`
	PrevSignature []byte            `json:"-"`
	Signature     []byte            `json:"-"`
	CreatedAt     time.Time         `json:"created_at"`
}
