package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	kmsDomain "github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	kmsUseCase "github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
)

// RunListKeys lists a tenant's keys, optionally filtered by purpose and state.
//
// Requirements: Database must be migrated and accessible.
func RunListKeys(
	ctx context.Context,
	keyUseCase kmsUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID, operator string,
	purposeStr, stateStr string,
	limit, offset int,
	format string,
) error {
	var purpose kmsDomain.KeyPurpose
	if purposeStr != "" {
		parsed, err := parsePurpose(purposeStr)
		if err != nil {
			return err
		}
		purpose = parsed
	}

	state, err := parseState(stateStr)
	if err != nil {
		return err
	}

	if limit < 0 || offset < 0 {
		return fmt.Errorf("limit and offset must be positive numbers")
	}

	logger.Info("listing keys",
		slog.String("tenant_id", tenantID),
		slog.String("purpose", purposeStr),
		slog.String("state", stateStr),
	)

	keys, err := keyUseCase.ListKeys(ctx, cliRequestContext(tenantID, operator), kmsDomain.KeyFilter{
		TenantID: tenantID,
		Purpose:  purpose,
		State:    state,
		Limit:    uint(limit),
		Offset:   uint(offset),
	})
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if format == "json" {
		jsonBytes, err := json.MarshalIndent(keys, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		outputKeyListText(writer, tenantID, keys)
	}

	logger.Info("keys listed",
		slog.String("tenant_id", tenantID),
		slog.Int("count", len(keys)),
	)

	return nil
}

// outputKeyListText outputs a key list in human-readable text format.
func outputKeyListText(writer io.Writer, tenantID string, keys []*kmsDomain.Key) {
	if len(keys) == 0 {
		_, _ = fmt.Fprintf(writer, "No keys found for tenant %s\n", tenantID)
		return
	}

	_, _ = fmt.Fprintf(writer, "Keys for tenant %s (%d):\n\n", tenantID, len(keys))
	for _, key := range keys {
		_, _ = fmt.Fprintf(writer, "%s  v%-3d %-20s %-8s %s\n",
			key.ID,
			key.Version,
			key.Purpose,
			key.State,
			key.CreatedAt.Format("2006-01-02"),
		)
	}
}
