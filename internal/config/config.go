// Package config loads the counsel engine's configuration the way the
// teacher's internal/config package does: nested structs with defaults
// applied in code, overridden by environment variables, with .env files
// loaded ahead of flag parsing.
package config

import (
	"os"
	"strconv"
)

// Config is the top-level configuration for the counsel engine, per
// spec.md §6 (LLM_ENDPOINT, EMBED_MODEL, EMBED_CONCURRENCY, DATA_DIR).
type Config struct {
	LLM     LLMConfig
	Embed   EmbedConfig
	Ingest  IngestConfig
	Ledger  LedgerConfig
	Logging LoggingConfig
}

// LLMConfig configures the pure-function LLM collaborator client.
type LLMConfig struct {
	Endpoint       string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// EmbedConfig configures the pure-function embedding collaborator client.
type EmbedConfig struct {
	Endpoint  string
	Model     string
	Dimension int
}

// IngestConfig configures ingestion concurrency and on-disk layout.
type IngestConfig struct {
	EmbedConcurrency int
	DataDir          string
	SchemaVersion    string
}

// LedgerConfig configures the append-only sqlite-backed ledger.
type LedgerConfig struct {
	Path string
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// Default returns the documented safe defaults from spec.md §6.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Endpoint:       "http://localhost:8080/v1/complete",
			Model:          "counsel-synthesis",
			TimeoutSeconds: 30,
			MaxRetries:     2,
		},
		Embed: EmbedConfig{
			Endpoint:  "http://localhost:8080/v1/embed",
			Model:     "counsel-embed",
			Dimension: 384,
		},
		Ingest: IngestConfig{
			EmbedConcurrency: 2,
			DataDir:          "./data",
			SchemaVersion:    "v1",
		},
		Ledger: LedgerConfig{
			Path: "./data/ledger.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FromEnv overlays environment variables onto the documented defaults.
// Matches the teacher's config-loading idiom: os.Getenv + strconv, no
// reflection-based binding library.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		cfg.Embed.Model = v
	}
	if v := os.Getenv("EMBED_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.Ingest.EmbedConcurrency = n
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Ingest.DataDir = v
		cfg.Ledger.Path = v + "/ledger.db"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return cfg
}
