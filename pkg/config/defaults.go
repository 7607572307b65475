package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/metador-go/ih5/internal/bytesize"
)

// GetDefaultConfig returns a Config populated entirely with defaults.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyChainDefaults(&cfg.Chain)
	applyCatalogDefaults(&cfg.Catalog)
	applyRegistryDefaults(&cfg.Registry)
	applyArchiveDefaults(&cfg.Archive)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyChainDefaults sets the chain defaults. These mirror chain.DefaultConfig,
// duplicated here because pkg/config must not import pkg/chain: the CLI layer
// translates ChainConfig into a chain.Config at the point of use.
func applyChainDefaults(cfg *ChainConfig) {
	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = "sha256"
	}
	if cfg.ReservedUserBlockSize == 0 {
		cfg.ReservedUserBlockSize = bytesize.ByteSize(4096)
	}
}

func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(getConfigDir(), "catalog.db")
	}
	if cfg.Type == "postgres" && cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 10
	}
}

func applyRegistryDefaults(cfg *RegistryConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
}

func applyArchiveDefaults(cfg *ArchiveConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
}
