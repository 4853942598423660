package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	kmsDomain "github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	kmsUseCase "github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
)

// RunCreateKey provisions a new key for a tenant. The key becomes the
// tenant's active key for the purpose; creation fails when the tenant already
// holds an active key for it, rotation being the only way to replace one.
//
// Requirements: Database must be migrated and the key backend reachable.
func RunCreateKey(
	ctx context.Context,
	keyUseCase kmsUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID, operator string,
	purposeStr, algorithmStr string,
	autoRotate bool,
	rotationIntervalDays int,
	expiresStr, metadataJSON string,
	format string,
) error {
	purpose, err := parsePurpose(purposeStr)
	if err != nil {
		return err
	}

	algorithm, err := parseAlgorithm(algorithmStr)
	if err != nil {
		return err
	}

	if rotationIntervalDays < 0 {
		return fmt.Errorf("rotation interval must be a positive number, got: %d", rotationIntervalDays)
	}

	var expiresAt *time.Time
	if expiresStr != "" {
		parsed, err := parseDate(expiresStr)
		if err != nil {
			return fmt.Errorf("invalid expiration date: %w", err)
		}
		expiresAt = &parsed
	}

	var metadata map[string]string
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return fmt.Errorf("invalid metadata JSON: %w", err)
		}
	}

	logger.Info("creating key",
		slog.String("tenant_id", tenantID),
		slog.String("purpose", string(purpose)),
		slog.String("algorithm", string(algorithm)),
	)

	key, err := keyUseCase.CreateKey(ctx, cliRequestContext(tenantID, operator), kmsUseCase.CreateKeyInput{
		Purpose:              purpose,
		Algorithm:            algorithm,
		AutoRotate:           autoRotate,
		RotationIntervalDays: uint(rotationIntervalDays),
		ExpiresAt:            expiresAt,
		Metadata:             metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	if format == "json" {
		if err := outputKeyJSON(writer, key); err != nil {
			return err
		}
	} else {
		outputKeyText(writer, "Key created successfully", key)
	}

	logger.Info("key created",
		slog.String("key_id", key.ID.String()),
		slog.String("tenant_id", key.TenantID),
		slog.Uint64("version", uint64(key.Version)),
	)

	return nil
}

// parseDate parses a date string in format "YYYY-MM-DD" or
// "YYYY-MM-DD HH:MM:SS" to time.Time in UTC.
func parseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", dateStr)
	if err == nil {
		return t, nil
	}

	t, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"invalid date format (expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS): %s",
			dateStr,
		)
	}

	return t, nil
}

// outputKeyText outputs a key in human-readable text format.
func outputKeyText(writer io.Writer, headline string, key *kmsDomain.Key) {
	_, _ = fmt.Fprintf(writer, "%s\n\n", headline)
	_, _ = fmt.Fprintf(writer, "ID:         %s\n", key.ID)
	_, _ = fmt.Fprintf(writer, "Tenant:     %s\n", key.TenantID)
	_, _ = fmt.Fprintf(writer, "Purpose:    %s\n", key.Purpose)
	_, _ = fmt.Fprintf(writer, "Algorithm:  %s\n", key.Algorithm)
	_, _ = fmt.Fprintf(writer, "State:      %s\n", key.State)
	_, _ = fmt.Fprintf(writer, "Version:    %d\n", key.Version)
	if key.AutoRotate {
		_, _ = fmt.Fprintf(writer, "Rotation:   every %d day(s)\n", key.RotationIntervalDays)
		if key.NextRotationAt != nil {
			_, _ = fmt.Fprintf(writer,
				"Next:       %s\n",
				key.NextRotationAt.Format("2006-01-02 15:04:05"),
			)
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Rotation:   manual\n")
	}
	if key.ExpiresAt != nil {
		_, _ = fmt.Fprintf(writer, "Expires:    %s\n", key.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(writer, "Created:    %s\n", key.CreatedAt.Format("2006-01-02 15:04:05"))
}

// outputKeyJSON outputs a key in JSON format for machine consumption.
func outputKeyJSON(writer io.Writer, key *kmsDomain.Key) error {
	jsonBytes, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
