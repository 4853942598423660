package domain

// Algorithm represents the cryptographic algorithm used for key material.
//
// The allow-list currently has a single entry: an AEAD cipher with a 256-bit
// key. Keys persist the algorithm they were created with, so the list can grow
// without a schema change; what happens to old keys if an entry is ever
// retired is deliberately left open.
type Algorithm string

const (
	// AES256GCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// AES-GCM (Advanced Encryption Standard in Galois/Counter Mode) combines
	// AES encryption with GMAC authentication:
	//   - 256-bit key size
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Hardware acceleration on modern CPUs
	AES256GCM Algorithm = "aes-256-gcm"

	// DefaultAlgorithm is used when key creation does not name an algorithm.
	DefaultAlgorithm = AES256GCM
)

// SupportedAlgorithms is the algorithm allow-list checked at the validation boundary.
var SupportedAlgorithms = []Algorithm{AES256GCM}

// KeyPurpose is the declared usage class of a key. It constrains which
// operations may use the key and scopes the one-active-key invariant:
// a tenant has at most one ACTIVE key per purpose.
type KeyPurpose string

const (
	// PurposeDocumentEncryption protects uploaded case documents at rest.
	PurposeDocumentEncryption KeyPurpose = "document-encryption"
	// PurposeFieldEncryption protects individual sensitive database fields.
	PurposeFieldEncryption KeyPurpose = "field-encryption"
	// PurposeSessionToken signs and protects session token payloads.
	PurposeSessionToken KeyPurpose = "session-token"
)

// KeyPurposes lists all valid purposes for validation.
var KeyPurposes = []KeyPurpose{
	PurposeDocumentEncryption,
	PurposeFieldEncryption,
	PurposeSessionToken,
}

// KeyState tracks a key version through its lifecycle.
//
// Transitions:
//
//	PENDING → ACTIVE            first audit-confirmed write
//	ACTIVE  → RETIRED           rotation demotes the predecessor (decrypt-only grace window)
//	ACTIVE  → REVOKED           operator or policy action, immediate and irreversible
//	ACTIVE  → EXPIRED           scheduler, once expires_at passes
//	RETIRED → REVOKED|EXPIRED   same triggers as above
//
// Only the rotation scheduler and explicit admin operations mutate state.
type KeyState string

const (
	StatePending KeyState = "pending"
	StateActive  KeyState = "active"
	StateRetired KeyState = "retired"
	StateRevoked KeyState = "revoked"
	StateExpired KeyState = "expired"
)

// Bounds enforced at the validation boundary.
const (
	// MaxTenantIDLength bounds tenant, service, and user identifiers.
	MaxTenantIDLength = 64
	// MaxKeyIDLength bounds key identifiers.
	MaxKeyIDLength = 128
	// MinRotationIntervalDays is the shortest allowed auto-rotation interval.
	MinRotationIntervalDays = 7
	// MaxRotationIntervalDays is the longest allowed auto-rotation interval.
	MaxRotationIntervalDays = 365
	// MaxExpirationYears bounds expires_at relative to creation time.
	MaxExpirationYears = 10
	// MaxMetadataBytes bounds the serialized size of a key's metadata map.
	MaxMetadataBytes = 10 * 1024
	// MaxMetadataKeyLength bounds individual metadata keys.
	MaxMetadataKeyLength = 128
	// MaxPaginationLimit bounds a single page of list results.
	MaxPaginationLimit = 1000
	// MinAuditRetentionDays is the regulatory floor for audit retention (~6 years).
	MinAuditRetentionDays = 2190
)
