// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/doktor-sys/mietrecht-kms/internal/app"
	kmsDomain "github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// cliServiceID identifies CLI-originated operations in the audit trail.
const cliServiceID = "kms-cli"

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// cliRequestContext builds the caller identity for CLI-originated operations.
// The operator name lands in the audit trail's user_id field.
func cliRequestContext(tenantID, operator string) kmsDomain.RequestContext {
	return kmsDomain.RequestContext{
		TenantID:  tenantID,
		ServiceID: cliServiceID,
		UserID:    operator,
	}
}

// parsePurpose converts a purpose string to kmsDomain.KeyPurpose.
// Returns an error if the purpose string is invalid.
func parsePurpose(purposeStr string) (kmsDomain.KeyPurpose, error) {
	for _, purpose := range kmsDomain.KeyPurposes {
		if purposeStr == string(purpose) {
			return purpose, nil
		}
	}
	return "", fmt.Errorf(
		"invalid purpose: %s (valid options: document-encryption, field-encryption, session-token)",
		purposeStr,
	)
}

// parseAlgorithm converts an algorithm string to kmsDomain.Algorithm.
// An empty string selects the default algorithm.
func parseAlgorithm(algorithmStr string) (kmsDomain.Algorithm, error) {
	if algorithmStr == "" {
		return kmsDomain.DefaultAlgorithm, nil
	}
	for _, algorithm := range kmsDomain.SupportedAlgorithms {
		if algorithmStr == string(algorithm) {
			return algorithm, nil
		}
	}
	return "", fmt.Errorf("invalid algorithm: %s (valid options: aes-256-gcm)", algorithmStr)
}

// parseState converts a state string to kmsDomain.KeyState for list filters.
// An empty string means no state constraint.
func parseState(stateStr string) (kmsDomain.KeyState, error) {
	switch stateStr {
	case "":
		return "", nil
	case "pending":
		return kmsDomain.StatePending, nil
	case "active":
		return kmsDomain.StateActive, nil
	case "retired":
		return kmsDomain.StateRetired, nil
	case "revoked":
		return kmsDomain.StateRevoked, nil
	case "expired":
		return kmsDomain.StateExpired, nil
	default:
		return "", fmt.Errorf(
			"invalid state: %s (valid options: pending, active, retired, revoked, expired)",
			stateStr,
		)
	}
}
