// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/doktor-sys/mietrecht-kms/internal/config"
	"github.com/doktor-sys/mietrecht-kms/internal/database"
	"github.com/doktor-sys/mietrecht-kms/internal/http"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/scheduler"
	"github.com/doktor-sys/mietrecht-kms/internal/metrics"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider

	// Domain components live in di_kms.go and di_audit.go
	kmsComponents
	auditComponents

	// Servers and workers
	opsServer *http.Server
	scheduler *scheduler.Scheduler

	// Initialization flags and mutex for thread-safety
	mu               sync.Mutex
	loggerInit       sync.Once
	dbInit           sync.Once
	txManagerInit    sync.Once
	metricsInit      sync.Once
	opsServerInit    sync.Once
	schedulerInit    sync.Once
	initErrors       map[string]error
	initErrorsAccess sync.Mutex
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) setInitError(name string, err error) {
	c.initErrorsAccess.Lock()
	defer c.initErrorsAccess.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.initErrorsAccess.Lock()
	defer c.initErrorsAccess.Unlock()
	return c.initErrors[name]
}

// Logger returns the configured logger instance. It creates a new logger on
// first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection. It creates and configures the database
// connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.setInitError("db", err)
			return
		}
		c.db = db
	})
	if err := c.initError("db"); err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager. It requires a database connection
// to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("txManager", fmt.Errorf("failed to get database for tx manager: %w", err))
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err := c.initError("txManager"); err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are
// disabled in configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("metricsProvider", fmt.Errorf("failed to create metrics provider: %w", err))
			return
		}
		c.metricsProvider = provider
	})
	if err := c.initError("metricsProvider"); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// OpsServer returns the operational HTTP server serving health, readiness,
// and metrics endpoints.
func (c *Container) OpsServer() (*http.Server, error) {
	c.opsServerInit.Do(func() {
		keyUseCase, err := c.KeyUseCase()
		if err != nil {
			c.setInitError("opsServer", fmt.Errorf("failed to get key use case for ops server: %w", err))
			return
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("opsServer", fmt.Errorf("failed to get metrics provider for ops server: %w", err))
			return
		}
		c.opsServer = http.NewServer(
			c.config.OpsHost,
			c.config.OpsPort,
			c.Logger(),
			keyUseCase,
			provider,
		)
	})
	if err := c.initError("opsServer"); err != nil {
		return nil, err
	}
	return c.opsServer, nil
}

// Scheduler returns the key maintenance scheduler.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	c.schedulerInit.Do(func() {
		keyUseCase, err := c.KeyUseCase()
		if err != nil {
			c.setInitError("scheduler", fmt.Errorf("failed to get key use case for scheduler: %w", err))
			return
		}
		c.scheduler = scheduler.NewScheduler(scheduler.Config{
			Interval:    c.config.SchedulerInterval,
			GracePeriod: c.config.RetiredKeyGracePeriod,
			BatchSize:   schedulerBatchSize,
			SweepRate:   c.config.SchedulerScanRate,
		}, keyUseCase, c.Logger())
	})
	if err := c.initError("scheduler"); err != nil {
		return nil, err
	}
	return c.scheduler, nil
}

// schedulerBatchSize caps how many keys one maintenance sweep touches per
// category.
const schedulerBatchSize = 500

// Shutdown performs cleanup of all initialized resources. It should be called
// when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.opsServer != nil {
		if err := c.opsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("ops server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.keeperBackend != nil {
		if err := c.keeperBackend.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("keeper backend close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log
// level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
