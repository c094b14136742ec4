package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/openpulpit/sermon-api/internal/auth"
	"github.com/openpulpit/sermon-api/internal/config"
	"github.com/openpulpit/sermon-api/internal/platform/logger"
	"github.com/openpulpit/sermon-api/internal/platform/postgres"
	"github.com/openpulpit/sermon-api/internal/queue"
	"github.com/openpulpit/sermon-api/internal/summary"
	"github.com/openpulpit/sermon-api/internal/worker"
)

// application holds the assembled dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tokenService     auth.TokenService
	passwordVerifier auth.PasswordVerifier
	queueService     *queue.Service
	summarizer       *summary.Summarizer
}

// newApplication loads configuration and wires every component together.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_configured", cfg.Worker.Endpoint != "")

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sermonStore := postgres.NewPostgresSermonStore(db, log)
	queueStore := postgres.NewPostgresQueueStore(db, log)
	gateway := worker.NewHTTPGateway(cfg.Worker, log)

	queueService, err := queue.NewService(db, sermonStore, queueStore, gateway, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue service: %w", err)
	}

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	app := &application{
		config:           cfg,
		logger:           log,
		db:               db,
		tokenService:     tokenService,
		passwordVerifier: auth.NewBcryptVerifier(),
		queueService:     queueService,
	}

	// Summarization is optional; without an API key the endpoint is not
	// registered.
	if cfg.Summary.GeminiAPIKey != "" {
		summarizer, err := summary.NewSummarizer(ctx, log, cfg.Summary, sermonStore)
		if err != nil {
			return nil, fmt.Errorf("failed to create summarizer: %w", err)
		}
		app.summarizer = summarizer
	} else {
		log.Info("no Gemini API key configured, summarization disabled")
	}

	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
