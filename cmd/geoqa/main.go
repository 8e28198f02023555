package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/longregen/geoqa/internal/config"
	"github.com/longregen/geoqa/internal/llm"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "geoqa",
		Short: "geoqa - geography question answering with a typed signature",
		Long: `geoqa asks a language model geography questions through a declared
question -> answer signature, and evaluates it against stored datasets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.Log.SlogLevel(),
			}))
			slog.SetDefault(logger)

			llmClient = llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				llm.WithModel(cfg.LLM.Model),
				llm.WithMaxTokens(cfg.LLM.MaxTokens),
				llm.WithTemperature(cfg.LLM.Temperature),
				llm.WithTimeout(cfg.LLM.Timeout()),
			)

			return nil
		},
	}

	rootCmd.AddCommand(
		askCmd(),
		evalCmd(),
		datasetCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  Timeout:     %s\n", cfg.LLM.Timeout())
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Printf("  Status:     %s\n", boolStatus(cfg.IsDatabaseConfigured()))
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Address: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("  CORS:    %v\n", cfg.Server.CORSOrigins)
			fmt.Println()

			fmt.Println("Evaluation:")
			fmt.Printf("  Concurrency: %d\n", cfg.Eval.Concurrency)
			fmt.Printf("  Input Keys:  %v\n", cfg.Eval.InputKeys)
			fmt.Println()

			fmt.Printf("Log Level: %s\n", cfg.Log.Level)
			fmt.Printf("Tracing:   %t\n", cfg.Tracing.Enabled)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  GEOQA_CONFIG")
			fmt.Println("  GEOQA_LLM_URL, GEOQA_LLM_API_KEY (or OPENAI_API_KEY), GEOQA_LLM_MODEL")
			fmt.Println("  GEOQA_LLM_MAX_TOKENS, GEOQA_LLM_TEMPERATURE, GEOQA_LLM_TIMEOUT_SECONDS")
			fmt.Println("  GEOQA_POSTGRES_URL")
			fmt.Println("  GEOQA_SERVER_HOST, GEOQA_SERVER_PORT, GEOQA_CORS_ORIGINS")
			fmt.Println("  GEOQA_EVAL_CONCURRENCY, GEOQA_INPUT_KEYS")
			fmt.Println("  GEOQA_LOG_LEVEL, GEOQA_TRACING")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("geoqa %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
