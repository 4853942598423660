// Package integration provides integration tests for the key lifecycle and
// the audit chain against real databases.
package integration

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditRepository "github.com/doktor-sys/mietrecht-kms/internal/audit/repository"
	auditService "github.com/doktor-sys/mietrecht-kms/internal/audit/service"
	auditUseCase "github.com/doktor-sys/mietrecht-kms/internal/audit/usecase"
	"github.com/doktor-sys/mietrecht-kms/internal/database"
	apperrors "github.com/doktor-sys/mietrecht-kms/internal/errors"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/cache"
	kmsDomain "github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
	kmsRepository "github.com/doktor-sys/mietrecht-kms/internal/kms/repository"
	kmsService "github.com/doktor-sys/mietrecht-kms/internal/kms/service"
	kmsUseCase "github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
	"github.com/doktor-sys/mietrecht-kms/internal/testutil"
)

// testKeeperURI wraps key material with a fixed local master key.
const testKeeperURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

type lifecycleDeps struct {
	db      *sql.DB
	backend kmsService.KeyBackend
	keys    kmsUseCase.KeyUseCase
	audit   auditUseCase.AuditUseCase
}

func setupLifecycleDeps(t *testing.T, driver string, db *sql.DB) *lifecycleDeps {
	t.Helper()

	var (
		keyRepo   kmsUseCase.KeyRepository
		auditRepo auditUseCase.AuditEntryRepository
	)
	switch driver {
	case "postgres":
		keyRepo = kmsRepository.NewPostgreSQLKeyRepository(db)
		auditRepo = auditRepository.NewPostgreSQLAuditEntryRepository(db)
	case "mysql":
		keyRepo = kmsRepository.NewMySQLKeyRepository(db)
		auditRepo = auditRepository.NewMySQLAuditEntryRepository(db)
	default:
		t.Fatalf("unknown driver: %s", driver)
	}

	backend, err := kmsService.OpenKeeperBackend(context.Background(), testKeeperURI)
	require.NoError(t, err, "failed to open keeper backend")
	t.Cleanup(func() { _ = backend.Close() })

	signer, err := auditService.NewChainSigner([]byte("integration-audit-secret"))
	require.NoError(t, err, "failed to create chain signer")

	auditUC := auditUseCase.NewAuditUseCase(auditRepo, signer)
	keyUC := kmsUseCase.NewKeyUseCase(
		database.NewTxManager(db),
		keyRepo,
		backend,
		cache.New(time.Minute, 100),
		auditUC,
		slog.New(slog.DiscardHandler),
		90,
	)

	return &lifecycleDeps{db: db, backend: backend, keys: keyUC, audit: auditUC}
}

// TestKeyLifecycle_EndToEnd walks a key through creation, access, rotation,
// and revocation against a real database and verifies the audit chain the
// operations left behind.
func TestKeyLifecycle_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dbConfigs := []struct {
		name      string
		driver    string
		setup     func(t *testing.T) *sql.DB
		cleanup   func(t *testing.T, db *sql.DB)
		tamperSQL string
	}{
		{
			name:      "PostgreSQL",
			driver:    "postgres",
			setup:     testutil.SetupPostgresDB,
			cleanup:   testutil.CleanupPostgresDB,
			tamperSQL: `UPDATE audit_entries SET operation = 'expire' WHERE tenant_id = $1 AND operation = 'create'`,
		},
		{
			name:      "MySQL",
			driver:    "mysql",
			setup:     testutil.SetupMySQLDB,
			cleanup:   testutil.CleanupMySQLDB,
			tamperSQL: `UPDATE audit_entries SET operation = 'expire' WHERE tenant_id = ? AND operation = 'create'`,
		},
	}

	for _, dbConfig := range dbConfigs {
		t.Run(dbConfig.name, func(t *testing.T) {
			ctx := context.Background()

			db := dbConfig.setup(t)
			defer testutil.TeardownDB(t, db)
			dbConfig.cleanup(t, db)

			deps := setupLifecycleDeps(t, dbConfig.driver, db)

			tenantID := "kanzlei-muster"
			rc := kmsDomain.RequestContext{
				TenantID:  tenantID,
				ServiceID: "document-service",
				UserID:    "anwalt_7",
				SourceIP:  "10.1.2.3",
			}

			created, err := deps.keys.CreateKey(ctx, rc, kmsUseCase.CreateKeyInput{
				Purpose:    kmsDomain.PurposeDocumentEncryption,
				AutoRotate: true,
			})
			require.NoError(t, err, "failed to create key")
			assert.Equal(t, kmsDomain.StateActive, created.State)
			assert.Equal(t, uint(1), created.Version)
			assert.Equal(t, uint(90), created.RotationIntervalDays)

			t.Run("MaterialRoundTrip", func(t *testing.T) {
				material, err := deps.backend.FetchKeyMaterial(ctx, created)
				require.NoError(t, err, "failed to fetch key material")
				assert.Len(t, material, 32)
				defer kmsDomain.Zeroize(material)

				// the fetched material must drive a working cipher end to end
				aead, err := kmsService.NewAEADManager().CreateCipher(material, created.Algorithm)
				require.NoError(t, err, "failed to create cipher from key material")

				plaintext := []byte("Mietvertrag Musterstraße 1, Berlin")
				aad := []byte(created.ID.String())
				ciphertext, nonce, err := aead.Encrypt(plaintext, aad)
				require.NoError(t, err)
				assert.NotEqual(t, plaintext, ciphertext)

				decrypted, err := aead.Decrypt(ciphertext, nonce, aad)
				require.NoError(t, err)
				assert.Equal(t, plaintext, decrypted)

				// a foreign AAD must not authenticate
				_, err = aead.Decrypt(ciphertext, nonce, []byte("other-key-id"))
				assert.Error(t, err)
			})

			t.Run("TenantIsolation", func(t *testing.T) {
				stranger := kmsDomain.RequestContext{
					TenantID:  "kanzlei-nord",
					ServiceID: "document-service",
				}
				_, err := deps.keys.GetKey(ctx, stranger, created.ID)
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
			})

			t.Run("RotateAndRevoke", func(t *testing.T) {
				successor, err := deps.keys.RotateKey(ctx, rc, created.ID)
				require.NoError(t, err, "failed to rotate key")
				assert.Equal(t, uint(2), successor.Version)
				assert.Equal(t, kmsDomain.StateActive, successor.State)

				predecessor, err := deps.keys.GetKey(ctx, rc, created.ID)
				require.NoError(t, err)
				assert.Equal(t, kmsDomain.StateRetired, predecessor.State)
				assert.True(t, predecessor.Readable())
				assert.False(t, predecessor.Usable())

				active, err := deps.keys.GetActiveKey(ctx, rc, kmsDomain.PurposeDocumentEncryption)
				require.NoError(t, err)
				assert.Equal(t, successor.ID, active.ID)

				err = deps.keys.RevokeKey(ctx, rc, successor.ID, "integration cleanup")
				require.NoError(t, err, "failed to revoke key")

				_, err = deps.keys.GetActiveKey(ctx, rc, kmsDomain.PurposeDocumentEncryption)
				assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
			})

			t.Run("AuditChainIntact", func(t *testing.T) {
				result, err := deps.audit.VerifyChain(ctx, tenantID)
				require.NoError(t, err, "failed to verify audit chain")
				assert.True(t, result.Valid, "audit chain should verify")
				assert.Greater(t, result.Entries, 0)
			})

			t.Run("TamperDetection", func(t *testing.T) {
				_, err := db.ExecContext(ctx, dbConfig.tamperSQL, tenantID)
				require.NoError(t, err, "failed to tamper with audit entry")

				result, err := deps.audit.VerifyChain(ctx, tenantID)
				require.NoError(t, err, "verification walk should not error")
				assert.False(t, result.Valid, "tampered chain should fail verification")
				assert.NotEmpty(t, result.BrokenAt)
			})
		})
	}
}
