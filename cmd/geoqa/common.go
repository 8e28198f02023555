package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/geoqa/internal/adapters/metrics"
	"github.com/longregen/geoqa/internal/adapters/postgres"
	"github.com/longregen/geoqa/internal/adapters/tracing"
	"github.com/longregen/geoqa/internal/config"
	"github.com/longregen/geoqa/internal/llm"
	"github.com/longregen/geoqa/internal/prompt"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg       *config.Config
	logger    *slog.Logger
	llmClient *llm.Client
)

// newPredictor wires the geography signature to the configured model
func newPredictor() (*prompt.Predict, *llm.Service) {
	service := llm.NewService(llmClient,
		llm.WithRequestTimeout(cfg.LLM.Timeout()),
		llm.WithLogger(logger),
	)

	predictor := prompt.NewPredict(prompt.GeographyQA,
		prompt.WithLLM(prompt.NewLLMServiceAdapter(service)),
		prompt.WithTracer(tracing.NewTracer(nil)),
		prompt.WithMetrics(metrics.NewCollector()),
	)
	return predictor, service
}

func requireAPIKey() error {
	if cfg.RequiresAPIKey() {
		return fmt.Errorf("no API key for %s. Set OPENAI_API_KEY or GEOQA_LLM_API_KEY", cfg.LLM.URL)
	}
	return nil
}

// initDB opens the example store and makes sure its schema exists
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if !cfg.IsDatabaseConfigured() {
		return nil, fmt.Errorf("PostgreSQL connection required. Set GEOQA_POSTGRES_URL")
	}

	pool, err := postgres.Connect(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return nil, err
	}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus returns a status string for a boolean
func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
