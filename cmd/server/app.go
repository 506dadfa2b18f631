package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/phrazzld/scry-review/internal/config"
	"github.com/phrazzld/scry-review/internal/domain/srs"
	"github.com/phrazzld/scry-review/internal/platform/badgerstore"
	"github.com/phrazzld/scry-review/internal/platform/breakerstore"
	"github.com/phrazzld/scry-review/internal/platform/clock"
	"github.com/phrazzld/scry-review/internal/platform/jsonfile"
	"github.com/phrazzld/scry-review/internal/platform/memstore"
	"github.com/phrazzld/scry-review/internal/platform/postgres"
	"github.com/phrazzld/scry-review/internal/service/progress"
	"github.com/phrazzld/scry-review/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Backend handles owned by the application; nil unless the driver uses them
	db       *sql.DB
	badgerDB *badger.DB

	states  store.ReviewStateStore
	breaker *breakerstore.Store

	srsService srs.Service
	progress   progress.Service
}

// newApplication creates a new application instance with all dependencies initialized.
// A nil clock uses the system clock.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	clk clock.Clock,
) (*application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &application{
		config: cfg,
		logger: logger,
	}

	params, err := srs.NewParams(srs.ParamsConfig{
		DefaultEaseFactor: cfg.Scheduler.DefaultEase,
		MinEaseFactor:     cfg.Scheduler.MinEase,
		MaxEaseFactor:     cfg.Scheduler.MaxEase,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler configuration: %w", err)
	}
	app.srsService, err = srs.NewServiceWithParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}

	backend, err := app.setupStore(ctx)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.breaker = breakerstore.New(backend, breakerstore.Settings{
		Name:             cfg.Storage.Driver,
		FailureThreshold: uint32(cfg.Storage.BreakerFailures),
		Timeout:          time.Duration(cfg.Storage.BreakerTimeout) * time.Second,
	}, logger)
	app.states = app.breaker

	app.progress = progress.NewTracker(app.srsService, app.states, clk, logger)

	logger.Info("Application initialized successfully",
		"storage_driver", cfg.Storage.Driver,
		"default_ease", params.DefaultEaseFactor)
	return app, nil
}

// setupStore opens the backend selected by storage.driver.
func (app *application) setupStore(ctx context.Context) (store.ReviewStateStore, error) {
	cfg := app.config

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		app.logger.Warn("using in-memory storage; review progress is lost on restart")
		return memstore.New(app.logger), nil

	case config.DriverJSONFile:
		s, err := jsonfile.New(cfg.Storage.JSONDir, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSON file storage: %w", err)
		}
		return s, nil

	case config.DriverBadger:
		db, err := badgerstore.Open(cfg.Storage.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger storage: %w", err)
		}
		app.badgerDB = db
		return badgerstore.New(db, app.logger), nil

	case config.DriverPostgres:
		db, err := setupAppDatabase(ctx, cfg.Database.URL, app.logger)
		if err != nil {
			return nil, err
		}
		app.db = db
		return postgres.NewPostgresReviewStateStore(db, app.logger), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup closes the storage backends.
func (app *application) cleanup() {
	if app.badgerDB != nil {
		if err := app.badgerDB.Close(); err != nil {
			app.logger.Error("Error closing badger database", "error", err)
		}
		app.badgerDB = nil
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
		app.db = nil
	}

	app.logger.Info("Application shutdown completed")
}
