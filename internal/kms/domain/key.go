package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaterialHandle is an opaque reference to key material held by a backend.
// Raw key bytes never appear on this type: Ref names the remote material
// (a vault path or KMS key id) and Ciphertext carries the wrapped form when
// the backend returns one. Either field may be empty depending on backend.
type MaterialHandle struct {
	Ref        string `json:"ref"`
	Ciphertext []byte `json:"-"`
}

// Key is a single key version. Raw key material is never stored here; only
// the MaterialHandle the backend issued when the material was created.
type Key struct {
	ID                   uuid.UUID         `json:"id"`
	TenantID             string            `json:"tenant_id"`
	Purpose              KeyPurpose        `json:"purpose"`
	Algorithm            Algorithm         `json:"algorithm"`
	State                KeyState          `json:"state"`
	Version              uint              `json:"version"`
	Material             MaterialHandle    `json:"material"`
	AutoRotate           bool              `json:"auto_rotate"`
	RotationIntervalDays uint              `json:"rotation_interval_days"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	ExpiresAt            *time.Time        `json:"expires_at,omitempty"`
	RetiredAt            *time.Time        `json:"retired_at,omitempty"`
	LastRotatedAt        *time.Time        `json:"last_rotated_at,omitempty"`
	NextRotationAt       *time.Time        `json:"next_rotation_at,omitempty"`
	DestroyedAt          *time.Time        `json:"destroyed_at,omitempty"`
}

// Usable reports whether the key may serve encrypt operations. Retired keys
// remain readable for decryption during the grace window but are not Usable.
func (k *Key) Usable() bool {
	if k.State != StateActive {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(time.Now()) {
		return false
	}
	return true
}

// Readable reports whether the key may serve decrypt operations. Revoked and
// expired keys are excluded; retired keys stay readable until destroyed.
func (k *Key) Readable() bool {
	switch k.State {
	case StateActive, StateRetired:
		return k.DestroyedAt == nil
	default:
		return false
	}
}

// RotationDue reports whether the scheduler should rotate this key at now.
func (k *Key) RotationDue(now time.Time) bool {
	if !k.AutoRotate || k.State != StateActive {
		return false
	}
	return k.NextRotationAt != nil && !k.NextRotationAt.After(now)
}

// KeyFilter selects keys for list operations. TenantID is mandatory;
// zero values on the remaining fields mean no constraint.
type KeyFilter struct {
	TenantID string
	Purpose  KeyPurpose
	State    KeyState
	Limit    uint
	Offset   uint
}

// RequestContext carries caller identity through every key operation.
// All fields are validated before any side effect happens.
type RequestContext struct {
	TenantID  string `json:"tenant_id"`
	ServiceID string `json:"service_id"`
	UserID    string `json:"user_id,omitempty"`
	SourceIP  string `json:"source_ip,omitempty"`
}
