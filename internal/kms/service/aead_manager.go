package service

import (
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// AEADManagerService implements the AEADManager interface for creating AEAD cipher instances.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher creates an AEAD cipher instance for the specified algorithm.
// Returns ErrEncryptionFailed if the key is not 32 bytes or the algorithm is
// not on the allow-list.
func (am *AEADManagerService) CreateCipher(key []byte, alg domain.Algorithm) (AEAD, error) {
	if len(key) != 32 {
		return nil, apperrors.Wrap(apperrors.ErrEncryptionFailed, "invalid key size")
	}

	switch alg {
	case domain.AES256GCM:
		return NewAESGCM(key)
	default:
		return nil, apperrors.Wrap(apperrors.ErrEncryptionFailed, "unsupported algorithm")
	}
}
