package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	kmsDomain "github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	kmsMocks "github.com/doktor-sys/mietrecht-kms/internal/kms/usecase/mocks"
)

func TestRunListKeys(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	tenantID := "kanzlei-muster"
	rc := cliRequestContext(tenantID, "anwalt_7")

	t.Run("success-text", func(t *testing.T) {
		keys := []*kmsDomain.Key{sampleKey(tenantID), sampleKey(tenantID)}
		mockUseCase := &kmsMocks.MockKeyUseCase{}
		mockUseCase.On("ListKeys", ctx, rc, kmsDomain.KeyFilter{
			TenantID: tenantID,
			Limit:    100,
		}).Return(keys, nil)

		var out bytes.Buffer
		err := RunListKeys(
			ctx, mockUseCase, logger, &out,
			tenantID, "anwalt_7", "", "", 100, 0, "text",
		)

		require.NoError(t, err)
		require.Contains(t, out.String(), "Keys for tenant kanzlei-muster (2)")
		require.Contains(t, out.String(), keys[0].ID.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		keys := []*kmsDomain.Key{sampleKey(tenantID)}
		mockUseCase := &kmsMocks.MockKeyUseCase{}
		mockUseCase.On("ListKeys", ctx, rc, kmsDomain.KeyFilter{
			TenantID: tenantID,
			Purpose:  kmsDomain.PurposeDocumentEncryption,
			State:    kmsDomain.StateActive,
			Limit:    10,
		}).Return(keys, nil)

		var out bytes.Buffer
		err := RunListKeys(
			ctx, mockUseCase, logger, &out,
			tenantID, "anwalt_7", "document-encryption", "active", 10, 0, "json",
		)
		require.NoError(t, err)

		var result []map[string]interface{}
		err = json.Unmarshal(out.Bytes(), &result)
		require.NoError(t, err)
		require.Len(t, result, 1)
		require.Equal(t, keys[0].ID.String(), result[0]["id"])
		mockUseCase.AssertExpectations(t)
	})

	t.Run("empty-result", func(t *testing.T) {
		mockUseCase := &kmsMocks.MockKeyUseCase{}
		mockUseCase.On("ListKeys", ctx, rc, kmsDomain.KeyFilter{
			TenantID: tenantID,
			Limit:    100,
		}).Return([]*kmsDomain.Key{}, nil)

		var out bytes.Buffer
		err := RunListKeys(
			ctx, mockUseCase, logger, &out,
			tenantID, "anwalt_7", "", "", 100, 0, "text",
		)

		require.NoError(t, err)
		require.Contains(t, out.String(), "No keys found for tenant kanzlei-muster")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-state", func(t *testing.T) {
		err := RunListKeys(
			ctx, nil, logger, nil,
			tenantID, "", "", "melted", 100, 0, "text",
		)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid state")
	})

	t.Run("negative-pagination", func(t *testing.T) {
		err := RunListKeys(
			ctx, nil, logger, nil,
			tenantID, "", "", "", -1, 0, "text",
		)
		require.Error(t, err)
		require.Contains(t, err.Error(), "limit and offset must be positive")
	})
}
