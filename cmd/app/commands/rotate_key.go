package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	kmsUseCase "github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
	"github.com/doktor-sys/mietrecht-kms/internal/validation"
)

// RunRotateKey rotates a key to a new version. The predecessor is retired and
// stays readable for decryption until its grace period ends; the successor
// becomes the tenant's active key for the purpose.
//
// Requirements: Database must be migrated and the key backend reachable.
func RunRotateKey(
	ctx context.Context,
	keyUseCase kmsUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID, operator, keyIDStr string,
	format string,
) error {
	// screened before it reaches any log line
	if err := validation.ValidateKeyID(keyIDStr); err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}
	keyID, err := uuid.Parse(keyIDStr)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	logger.Info("rotating key",
		slog.String("tenant_id", tenantID),
		slog.String("key_id", keyIDStr),
	)

	key, err := keyUseCase.RotateKey(ctx, cliRequestContext(tenantID, operator), keyID)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	if format == "json" {
		if err := outputKeyJSON(writer, key); err != nil {
			return err
		}
	} else {
		outputKeyText(writer, "Key rotated successfully", key)
	}

	logger.Info("key rotated",
		slog.String("key_id", key.ID.String()),
		slog.String("predecessor_id", keyIDStr),
		slog.Uint64("version", uint64(key.Version)),
	)

	return nil
}
