package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for geoqa
type Config struct {
	LLM      LLMConfig      `json:"llm"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Eval     EvalConfig     `json:"eval"`
	Log      LogConfig      `json:"log"`
	Tracing  TracingConfig  `json:"tracing"`
}

// LLMConfig holds the OpenAI-compatible API configuration
type LLMConfig struct {
	URL            string  `json:"url"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// PostgresURL is optional; dataset commands and routes need it
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// EvalConfig holds evaluation defaults
type EvalConfig struct {
	Concurrency int      `json:"concurrency"`
	InputKeys   []string `json:"input_keys"` // applied to flat dataset records
}

type LogConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

type TracingConfig struct {
	Enabled bool `json:"enabled"`
}

const openAIURL = "https://api.openai.com/v1"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:            openAIURL,
			APIKey:         "",
			Model:          "gpt-4o-mini",
			MaxTokens:      1024,
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Eval: EvalConfig{
			Concurrency: 4,
			InputKeys:   []string{"question"},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load reads the config file, if any, then applies environment overrides and validates
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	envString("GEOQA_LLM_URL", &cfg.LLM.URL)
	// the conventional OpenAI variable is the fallback
	envString("OPENAI_API_KEY", &cfg.LLM.APIKey)
	envString("GEOQA_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("GEOQA_LLM_MODEL", &cfg.LLM.Model)
	envInt("GEOQA_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("GEOQA_LLM_TEMPERATURE", &cfg.LLM.Temperature)
	envInt("GEOQA_LLM_TIMEOUT_SECONDS", &cfg.LLM.TimeoutSeconds)

	envString("GEOQA_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("GEOQA_SERVER_HOST", &cfg.Server.Host)
	envInt("GEOQA_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("GEOQA_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	envInt("GEOQA_EVAL_CONCURRENCY", &cfg.Eval.Concurrency)
	envStringSlice("GEOQA_INPUT_KEYS", &cfg.Eval.InputKeys)

	envString("GEOQA_LOG_LEVEL", &cfg.Log.Level)
	envBool("GEOQA_TRACING", &cfg.Tracing.Enabled)
}

// IsDatabaseConfigured returns true if a PostgreSQL URL is set
func (c *Config) IsDatabaseConfigured() bool {
	return c.Database.PostgresURL != ""
}

// RequiresAPIKey reports whether the hosted OpenAI endpoint is selected without a key
func (c *Config) RequiresAPIKey() bool {
	return c.LLM.APIKey == "" && strings.HasPrefix(c.LLM.URL, "https://api.openai.com")
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SlogLevel maps Level to a slog level, defaulting to info
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.TimeoutSeconds < 1 {
		errs = append(errs, "LLM timeout_seconds must be positive")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "LLM model is required")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if c.Eval.Concurrency < 1 {
		errs = append(errs, "eval concurrency must be at least 1")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("GEOQA_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configPath := filepath.Join(homeDir, ".config", "geoqa", "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".geoqa", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
