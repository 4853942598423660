// Package validation provides custom validation rules for key management inputs.
package validation

import (
	"net"
	"regexp"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

var (
	// identifierRegex is the character allow-list for tenant, service, user,
	// and key identifiers. Anything outside it is rejected before the value
	// reaches a query, a log line, or a backend call.
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// injectionRegexes screen free-form string values for signatures of
	// injection attempts. Matching input is rejected with a generic message
	// that never echoes the offending value back.
	injectionRegexes = []*regexp.Regexp{
		regexp.MustCompile(`\.\.`),
		regexp.MustCompile(`[<>'"]`),
		regexp.MustCompile(`\$\{`),
		regexp.MustCompile(`(?i)\bselect\b|\bunion\b|\bdrop\b`),
	}
)

// WrapValidationError wraps validation errors as domain ErrInvalidTenant
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidTenant, err.Error())
}

// Identifier validates a non-key identifier (tenant, service, user).
var Identifier = validation.By(func(value interface{}) error {
	return checkIdentifier(value, domain.MaxTenantIDLength)
})

// KeyIdentifier validates a key identifier, which allows a longer form.
var KeyIdentifier = validation.By(func(value interface{}) error {
	return checkIdentifier(value, domain.MaxKeyIDLength)
})

func checkIdentifier(value interface{}, maxLen int) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_identifier_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if len(s) > maxLen {
		return validation.NewError("validation_identifier_length", "identifier exceeds maximum length")
	}
	if !identifierRegex.MatchString(s) {
		return validation.NewError("validation_identifier_charset", "identifier contains invalid characters")
	}
	return nil
}

// SafeString rejects free-form values carrying injection signatures. The
// error message is deliberately generic so the rejected payload is never
// reflected anywhere.
var SafeString = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_safe_string_type", "must be a string")
	}
	if ContainsInjectionPattern(s) {
		return validation.NewError("validation_safe_string", "value contains disallowed content")
	}
	return nil
})

// ContainsInjectionPattern reports whether s matches any known injection
// signature. Exposed so callers can count suspicious inputs without
// duplicating the pattern list.
func ContainsInjectionPattern(s string) bool {
	for _, re := range injectionRegexes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// AlgorithmRule validates the algorithm against the allow-list.
var AlgorithmRule = validation.By(func(value interface{}) error {
	alg, ok := value.(domain.Algorithm)
	if !ok {
		if s, sok := value.(string); sok {
			alg = domain.Algorithm(s)
		} else {
			return validation.NewError("validation_algorithm_type", "must be an algorithm")
		}
	}
	if alg == "" {
		return nil
	}
	for _, supported := range domain.SupportedAlgorithms {
		if alg == supported {
			return nil
		}
	}
	return validation.NewError("validation_algorithm", "algorithm is not supported")
})

// PurposeRule validates the key purpose against the known set.
var PurposeRule = validation.By(func(value interface{}) error {
	p, ok := value.(domain.KeyPurpose)
	if !ok {
		if s, sok := value.(string); sok {
			p = domain.KeyPurpose(s)
		} else {
			return validation.NewError("validation_purpose_type", "must be a key purpose")
		}
	}
	if p == "" {
		return nil
	}
	for _, known := range domain.KeyPurposes {
		if p == known {
			return nil
		}
	}
	return validation.NewError("validation_purpose", "unknown key purpose")
})

// IPAddress validates an IPv4 or IPv6 address.
var IPAddress = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_ip_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if net.ParseIP(s) == nil {
		return validation.NewError("validation_ip", "must be a valid IP address")
	}
	return nil
})

// ValidateRequestContext checks every caller identity field before any
// operation proceeds. TenantID and ServiceID are mandatory; UserID and
// SourceIP are validated only when present.
func ValidateRequestContext(rc domain.RequestContext) error {
	err := validation.ValidateStruct(&rc,
		validation.Field(&rc.TenantID, validation.Required, Identifier),
		validation.Field(&rc.ServiceID, validation.Required, Identifier),
		validation.Field(&rc.UserID, Identifier),
		validation.Field(&rc.SourceIP, IPAddress),
	)
	return WrapValidationError(err)
}

// ValidateKeyID checks a key identifier in its string form.
func ValidateKeyID(id string) error {
	err := validation.Validate(id, validation.Required, KeyIdentifier)
	return WrapValidationError(err)
}

// ValidateRotationInterval checks an auto-rotation interval in days. An
// out-of-range interval is a rotation policy violation, not an identity one.
func ValidateRotationInterval(days uint) error {
	if days < domain.MinRotationIntervalDays || days > domain.MaxRotationIntervalDays {
		return apperrors.Wrap(apperrors.ErrRotationFailed, "rotation interval out of range")
	}
	return nil
}

// ValidateExpiration checks that expiresAt lies in the future and within the
// maximum horizon relative to now.
func ValidateExpiration(now time.Time, expiresAt *time.Time) error {
	if expiresAt == nil {
		return nil
	}
	if !expiresAt.After(now) {
		return apperrors.Wrap(apperrors.ErrEncryptionFailed, "expiration must be in the future")
	}
	if expiresAt.After(now.AddDate(domain.MaxExpirationYears, 0, 0)) {
		return apperrors.Wrap(apperrors.ErrEncryptionFailed, "expiration exceeds maximum horizon")
	}
	return nil
}

// ValidateMetadata checks metadata keys for charset and length, individual
// values for injection signatures, and the serialized size of the whole map.
func ValidateMetadata(metadata map[string]string) error {
	var total int
	for k, v := range metadata {
		if len(k) == 0 || len(k) > domain.MaxMetadataKeyLength || !identifierRegex.MatchString(k) {
			return apperrors.Wrap(apperrors.ErrEncryptionFailed, "invalid metadata key")
		}
		if ContainsInjectionPattern(v) {
			return apperrors.Wrap(apperrors.ErrEncryptionFailed, "metadata value contains disallowed content")
		}
		total += len(k) + len(v)
	}
	if total > domain.MaxMetadataBytes {
		return apperrors.Wrap(apperrors.ErrEncryptionFailed, "metadata exceeds maximum size")
	}
	return nil
}

// ValidatePagination normalizes and checks list pagination. A zero limit
// falls back to the maximum page size.
func ValidatePagination(limit, offset uint) (uint, uint, error) {
	if limit == 0 {
		limit = domain.MaxPaginationLimit
	}
	if limit > domain.MaxPaginationLimit {
		return 0, 0, apperrors.Wrap(apperrors.ErrInvalidTenant, "pagination limit out of range")
	}
	return limit, offset, nil
}

// NormalizeIdentifier trims surrounding whitespace. Validation runs on the
// normalized form so " tenant " and "tenant" are the same caller.
func NormalizeIdentifier(s string) string {
	return strings.TrimSpace(s)
}
