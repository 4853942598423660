package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditUseCase "github.com/doktor-sys/mietrecht-kms/internal/audit/usecase"
)

// RunCleanAuditLogs deletes audit entries older than the retention period.
// The use case enforces the regulatory retention floor; periods shorter than
// it are rejected, so this command can never purge entries that must be kept.
//
// Requirements: Database must be migrated and accessible.
func RunCleanAuditLogs(
	ctx context.Context,
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	retentionDays int,
	format string,
) error {
	if retentionDays < 0 {
		return fmt.Errorf("retention days must be a positive number, got: %d", retentionDays)
	}

	logger.Info("cleaning audit entries", slog.Int("retention_days", retentionDays))

	count, err := auditUC.CleanOlderThan(ctx, uint(retentionDays))
	if err != nil {
		return fmt.Errorf("failed to clean audit entries: %w", err)
	}

	if format == "json" {
		result := map[string]interface{}{
			"count":          count,
			"retention_days": retentionDays,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintf(writer,
			"Successfully deleted %d audit entries older than %d day(s)\n",
			count, retentionDays,
		)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("retention_days", retentionDays),
	)

	return nil
}
