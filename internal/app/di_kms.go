package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/doktor-sys/mietrecht-kms/internal/kms/cache"
	kmsRepository "github.com/doktor-sys/mietrecht-kms/internal/kms/repository"
	kmsService "github.com/doktor-sys/mietrecht-kms/internal/kms/service"
	kmsUsecase "github.com/doktor-sys/mietrecht-kms/internal/kms/usecase"
	"github.com/doktor-sys/mietrecht-kms/internal/metrics"
)

// kmsComponents groups the key management dependencies inside the container.
type kmsComponents struct {
	keyRepo       kmsUsecase.KeyRepository
	keeperBackend *kmsService.KeeperBackend
	keyBackend    kmsService.KeyBackend
	keyCache      *cache.KeyCache
	keyUseCase    kmsUsecase.KeyUseCase
	aeadManager   kmsService.AEADManager

	keyRepoInit     sync.Once
	keyBackendInit  sync.Once
	keyCacheInit    sync.Once
	keyUseCaseInit  sync.Once
	aeadManagerInit sync.Once
}

// KeyRepository returns the key repository instance.
func (c *Container) KeyRepository() (kmsUsecase.KeyRepository, error) {
	c.keyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("keyRepo", fmt.Errorf("failed to get database for key repository: %w", err))
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.keyRepo = kmsRepository.NewMySQLKeyRepository(db)
		case "postgres":
			c.keyRepo = kmsRepository.NewPostgreSQLKeyRepository(db)
		default:
			c.setInitError("keyRepo", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	if err := c.initError("keyRepo"); err != nil {
		return nil, err
	}
	return c.keyRepo, nil
}

// KeyBackend returns the key material backend. The backend is the
// vault-backed variant when vault is enabled in configuration, otherwise the
// keeper backend wrapping local material with the configured KMS key URI.
// Either variant is wrapped with retry and timeout handling.
func (c *Container) KeyBackend() (kmsService.KeyBackend, error) {
	c.keyBackendInit.Do(func() {
		backend, err := c.initKeyBackend()
		if err != nil {
			c.setInitError("keyBackend", err)
			return
		}
		c.keyBackend = kmsService.NewRetrier(
			backend,
			c.config.BackendTimeout,
			uint64(c.config.BackendMaxRetries),
		)
	})
	if err := c.initError("keyBackend"); err != nil {
		return nil, err
	}
	return c.keyBackend, nil
}

func (c *Container) initKeyBackend() (kmsService.KeyBackend, error) {
	if c.config.VaultEnabled {
		backend, err := kmsService.NewVaultBackend(
			c.config.VaultAddress,
			c.config.VaultToken,
			c.config.VaultMountPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create vault backend: %w", err)
		}
		return backend, nil
	}

	if c.config.KMSKeyURI == "" {
		return nil, fmt.Errorf("KMS_KEY_URI must be set when vault is disabled")
	}
	backend, err := kmsService.OpenKeeperBackend(context.Background(), c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open keeper backend: %w", err)
	}
	c.keeperBackend = backend
	return backend, nil
}

// AEADManager returns the AEAD cipher factory. Callers pair it with the key
// backend's FetchKeyMaterial to encrypt and decrypt payloads under a managed
// key.
func (c *Container) AEADManager() kmsService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = kmsService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyCache returns the key cache instance.
func (c *Container) KeyCache() *cache.KeyCache {
	c.keyCacheInit.Do(func() {
		c.keyCache = cache.New(c.config.CacheTTL, c.config.CacheMaxEntries)
	})
	return c.keyCache
}

// KeyUseCase returns the key use case with all its dependencies, wrapped with
// business metrics when metrics are enabled.
func (c *Container) KeyUseCase() (kmsUsecase.KeyUseCase, error) {
	c.keyUseCaseInit.Do(func() {
		useCase, err := c.initKeyUseCase()
		if err != nil {
			c.setInitError("keyUseCase", err)
			return
		}
		c.keyUseCase = useCase
	})
	if err := c.initError("keyUseCase"); err != nil {
		return nil, err
	}
	return c.keyUseCase, nil
}

func (c *Container) initKeyUseCase() (kmsUsecase.KeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}

	keyRepo, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key use case: %w", err)
	}

	backend, err := c.KeyBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to get key backend for key use case: %w", err)
	}

	auditUseCase, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for key use case: %w", err)
	}

	useCase := kmsUsecase.NewKeyUseCase(
		txManager,
		keyRepo,
		backend,
		c.KeyCache(),
		auditUseCase,
		c.Logger(),
		uint(c.config.DefaultRotationIntervalDays),
	)

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for key use case: %w", err)
	}
	if provider == nil {
		return useCase, nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(
		provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return kmsUsecase.NewKeyUseCaseWithMetrics(useCase, businessMetrics), nil
}
