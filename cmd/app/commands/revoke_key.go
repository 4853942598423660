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

// RunRevokeKey immediately and irreversibly revokes a key. Revoked keys serve
// neither encryption nor decryption; the operation is idempotent.
//
// Requirements: Database must be migrated and accessible.
func RunRevokeKey(
	ctx context.Context,
	keyUseCase kmsUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID, operator, keyIDStr, reason string,
) error {
	// screened before it reaches any log line
	if err := validation.ValidateKeyID(keyIDStr); err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}
	keyID, err := uuid.Parse(keyIDStr)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	if reason == "" {
		return fmt.Errorf("a revocation reason is required")
	}

	logger.Info("revoking key",
		slog.String("tenant_id", tenantID),
		slog.String("key_id", keyIDStr),
		slog.String("reason", reason),
	)

	if err := keyUseCase.RevokeKey(ctx, cliRequestContext(tenantID, operator), keyID, reason); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Key %s revoked\n", keyIDStr)

	logger.Info("key revoked",
		slog.String("key_id", keyIDStr),
		slog.String("tenant_id", tenantID),
	)

	return nil
}
