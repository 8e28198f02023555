package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/longregen/geoqa/internal/adapters/http"
	"github.com/longregen/geoqa/internal/adapters/id"
	"github.com/longregen/geoqa/internal/adapters/metrics"
	"github.com/longregen/geoqa/internal/adapters/postgres"
	"github.com/longregen/geoqa/internal/adapters/tracing"
	"github.com/longregen/geoqa/internal/prompt"
	"github.com/spf13/cobra"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the geoqa HTTP API server.

The server exposes the geography predictor at POST /api/v1/predict, along with
health and prometheus endpoints.

Optional:
  - PostgreSQL (GEOQA_POSTGRES_URL) enables the dataset and evaluation routes
  - GEOQA_TRACING=true exports spans to stderr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer(ctx context.Context) error {
	logger.Info("starting geoqa API server",
		"http", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
		"llm", cfg.LLM.URL,
		"model", cfg.LLM.Model,
	)

	if cfg.RequiresAPIKey() {
		logger.Warn("no API key configured, predictions will fail", "llm", cfg.LLM.URL)
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(os.Stderr)
		if err != nil {
			logger.Warn("failed to initialize tracing", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error("error shutting down tracer", "error", err)
				}
			}()
			logger.Info("OpenTelemetry tracing initialized")
		}
	}

	predictor, llmService := newPredictor()
	collector := metrics.NewCollector()

	deps := http.Deps{
		Version:   version,
		Module:    predictor,
		Signature: prompt.GeographyQA,
		IDGen:     id.New(),
		LLM:       llmService,
		Metrics:   collector,
		Logger:    logger,
	}

	if cfg.IsDatabaseConfigured() {
		pool, err := initDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info("database connection established")

		deps.DB = pool
		deps.Repo = postgres.NewExampleRepository(pool)
	} else {
		logger.Info("database not configured, dataset routes disabled")
	}

	server := http.NewServer(cfg, deps)

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("server stopped")
		return nil
	}
}
