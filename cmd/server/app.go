package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/framefoundry/thumbgen-api/internal/config"
	"github.com/framefoundry/thumbgen-api/internal/dispatcher"
	"github.com/framefoundry/thumbgen-api/internal/events"
	"github.com/framefoundry/thumbgen-api/internal/platform/gemini"
	"github.com/framefoundry/thumbgen-api/internal/platform/postgres"
	"github.com/framefoundry/thumbgen-api/internal/service"
	"github.com/framefoundry/thumbgen-api/internal/service/auth"
	"github.com/framefoundry/thumbgen-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	titleStore     store.TitleStore
	ideaStore      store.IdeaStore
	thumbnailStore store.ThumbnailStore
	referenceStore store.ReferenceStore

	// Service interfaces
	jwtService       auth.JWTService
	thumbnailService service.ThumbnailService

	// Background generation
	notifier   *events.Notifier
	dispatcher *dispatcher.Dispatcher
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	// Initialize stores
	app.titleStore = postgres.NewPostgresTitleStore(db, logger)
	app.ideaStore = postgres.NewPostgresIdeaStore(db, logger)
	app.thumbnailStore = postgres.NewPostgresThumbnailStore(db, logger)
	app.referenceStore = postgres.NewPostgresReferenceStore(db, logger)

	// Create the generation providers
	ideaGenerator, err := gemini.NewIdeaGenerator(
		ctx,
		logger.With("component", "idea_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize idea generator: %w", err)
	}

	imageGenerator, err := gemini.NewImageGenerator(
		ctx,
		logger.With("component", "image_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image generator: %w", err)
	}
	logger.Info("Generation providers initialized",
		"idea_model", cfg.LLM.IdeaModel,
		"image_model", cfg.LLM.ImageModel)

	// Initialize the status notifier and the bounded dispatcher
	app.notifier = events.NewNotifier(logger)
	app.dispatcher = dispatcher.New(
		dispatcher.Config{
			MaxParallel: cfg.Dispatcher.MaxParallel,
			MaxRetries:  cfg.Dispatcher.MaxRetries,
			SettleDelay: cfg.Dispatcher.SettleDelay(),
		},
		app.thumbnailStore,
		imageGenerator,
		app.notifier,
		logger,
	)

	// Initialize thumbnail service
	app.thumbnailService, err = service.NewThumbnailService(
		db,
		app.titleStore,
		app.ideaStore,
		app.thumbnailStore,
		app.referenceStore,
		ideaGenerator,
		app.dispatcher,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. The dispatcher
// is drained first so in-flight generations can persist their outcomes.
func (app *application) cleanup(ctx context.Context) {
	if app.dispatcher != nil {
		if err := app.dispatcher.Shutdown(ctx); err != nil {
			app.logger.Error("Dispatcher shutdown incomplete", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
