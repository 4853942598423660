package repository

import (
	"encoding/json"
	"strconv"

	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// scanKey reads one key row using the column order of keyColumns. Both
// database implementations share it; the scan targets are driver-neutral.
func scanKey(scan func(dest ...any) error) (*domain.Key, error) {
	var key domain.Key
	var purpose, algorithm, state string
	var metadataJSON []byte

	err := scan(
		&key.ID,
		&key.TenantID,
		&purpose,
		&algorithm,
		&state,
		&key.Version,
		&key.Material.Ref,
		&key.Material.Ciphertext,
		&key.AutoRotate,
		&key.RotationIntervalDays,
		&metadataJSON,
		&key.CreatedAt,
		&key.UpdatedAt,
		&key.ExpiresAt,
		&key.RetiredAt,
		&key.LastRotatedAt,
		&key.NextRotationAt,
		&key.DestroyedAt,
	)
	if err != nil {
		return nil, err
	}

	key.Purpose = domain.KeyPurpose(purpose)
	key.Algorithm = domain.Algorithm(algorithm)
	key.State = domain.KeyState(state)

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &key.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal key metadata")
		}
	}
	return &key, nil
}

// marshalMetadata serializes metadata, mapping nil to database NULL.
func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	out, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal key metadata")
	}
	return out, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
