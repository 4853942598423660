package app

import (
	"encoding/base64"
	"fmt"
	"sync"

	auditRepository "github.com/doktor-sys/mietrecht-kms/internal/audit/repository"
	auditService "github.com/doktor-sys/mietrecht-kms/internal/audit/service"
	auditUsecase "github.com/doktor-sys/mietrecht-kms/internal/audit/usecase"
)

// auditComponents groups the audit trail dependencies inside the container.
type auditComponents struct {
	auditRepo    auditUsecase.AuditEntryRepository
	chainSigner  auditService.ChainSigner
	auditUseCase auditUsecase.AuditUseCase

	auditRepoInit    sync.Once
	chainSignerInit  sync.Once
	auditUseCaseInit sync.Once
}

// AuditRepository returns the audit entry repository instance.
func (c *Container) AuditRepository() (auditUsecase.AuditEntryRepository, error) {
	c.auditRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("auditRepo", fmt.Errorf("failed to get database for audit repository: %w", err))
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.auditRepo = auditRepository.NewMySQLAuditEntryRepository(db)
		case "postgres":
			c.auditRepo = auditRepository.NewPostgreSQLAuditEntryRepository(db)
		default:
			c.setInitError("auditRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("auditRepo"); err != nil {
		return nil, err
	}
	return c.auditRepo, nil
}

// ChainSigner returns the audit chain signer. The signing key is derived from
// the base64-encoded secret in configuration.
func (c *Container) ChainSigner() (auditService.ChainSigner, error) {
	c.chainSignerInit.Do(func() {
		if c.config.AuditHMACSecret == "" {
			c.setInitError("chainSigner", fmt.Errorf("KMS_AUDIT_HMAC_SECRET must be set"))
			return
		}
		secret, err := base64.StdEncoding.DecodeString(c.config.AuditHMACSecret)
		if err != nil {
			c.setInitError("chainSigner", fmt.Errorf("failed to decode audit HMAC secret: %w", err))
			return
		}
		signer, err := auditService.NewChainSigner(secret)
		if err != nil {
			c.setInitError("chainSigner", fmt.Errorf("failed to create chain signer: %w", err))
			return
		}
		c.chainSigner = signer
	})
	if err := c.initError("chainSigner"); err != nil {
		return nil, err
	}
	return c.chainSigner, nil
}

// AuditUseCase returns the audit use case instance.
func (c *Container) AuditUseCase() (auditUsecase.AuditUseCase, error) {
	c.auditUseCaseInit.Do(func() {
		repo, err := c.AuditRepository()
		if err != nil {
			c.setInitError("auditUseCase", fmt.Errorf("failed to get audit repository for audit use case: %w", err))
			return
		}
		signer, err := c.ChainSigner()
		if err != nil {
			c.setInitError("auditUseCase", fmt.Errorf("failed to get chain signer for audit use case: %w", err))
			return
		}
		c.auditUseCase = auditUsecase.NewAuditUseCase(repo, signer)
	})
	if err := c.initError("auditUseCase"); err != nil {
		return nil, err
	}
	return c.auditUseCase, nil
}
