// Package service provides the cryptographic signing of audit entries.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/doktor-sys/mietrecht-kms/internal/audit/domain"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
)

// ChainSigner signs and verifies hash-chained audit entries.
type ChainSigner interface {
	// Sign computes the entry's signature over its canonical form and the
	// previous signature in the tenant's chain.
	Sign(entry *auditDomain.AuditEntry) ([]byte, error)

	// Verify checks the entry's stored signature against its content and
	// its PrevSignature link. Returns ErrAuditLogError when tampered.
	Verify(entry *auditDomain.AuditEntry) error
}

type chainSigner struct {
	signingKey []byte
}

// NewChainSigner creates an HMAC-based audit entry signer. The signing key is
// derived once from the configured audit secret using HKDF-SHA256, keeping
// signing key usage separate from any encryption usage of the secret.
func NewChainSigner(secret []byte) (ChainSigner, error) {
	if len(secret) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrAuditLogError, "audit signing secret is empty")
	}

	signingKey, err := deriveSigningKey(secret)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAuditLogError, "failed to derive signing key")
	}
	return &chainSigner{signingKey: signingKey}, nil
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key.
// Info parameter: "kms-audit-chain-v1" (versioned for future algorithm changes).
func deriveSigningKey(secret []byte) ([]byte, error) {
	info := []byte("kms-audit-chain-v1")
	hkdfReader := hkdf.New(sha256.New, secret, nil, info)

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, signingKey); err != nil {
		return nil, err
	}
	return signingKey, nil
}

// canonicalize converts an audit entry to its canonical byte representation.
// Uses length-prefixed encoding for variable-length fields to prevent
// ambiguity between adjacent fields.
func canonicalize(entry *auditDomain.AuditEntry) ([]byte, error) {
	buf := make([]byte, 0, 1024)

	buf = append(buf, entry.ID[:]...)
	buf = append(buf, entry.KeyID[:]...)
	buf = appendLengthPrefixed(buf, []byte(entry.TenantID))
	buf = appendLengthPrefixed(buf, []byte(string(entry.Operation)))
	buf = appendLengthPrefixed(buf, []byte(string(entry.Outcome)))
	buf = appendLengthPrefixed(buf, []byte(entry.ServiceID))
	buf = appendLengthPrefixed(buf, []byte(entry.UserID))
	buf = appendLengthPrefixed(buf, []byte(entry.SourceIP))

	if entry.Context != nil {
		// json.Marshal sorts map keys, giving a deterministic serialization
		contextBytes, err := json.Marshal(entry.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal context: %w", err)
		}
		buf = appendLengthPrefixed(buf, contextBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(entry.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	if len(data) > 0xFFFFFFFF {
		panic("data length exceeds uint32 max")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign generates the HMAC-SHA256 chain signature for the entry. The previous
// signature is mixed into the MAC after the canonical form, so each signature
// commits to the whole chain before it.
func (s *chainSigner) Sign(entry *auditDomain.AuditEntry) ([]byte, error) {
	canonical, err := canonicalize(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize entry: %w", err)
	}

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(canonical)
	mac.Write(entry.PrevSignature)
	return mac.Sum(nil), nil
}

// Verify checks the entry's stored signature. Returns ErrAuditLogError when
// the content or the chain link was tampered with.
func (s *chainSigner) Verify(entry *auditDomain.AuditEntry) error {
	expected, err := s.Sign(entry)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(entry.Signature, expected) {
		return apperrors.Wrap(apperrors.ErrAuditLogError, "audit entry signature mismatch")
	}
	return nil
}
