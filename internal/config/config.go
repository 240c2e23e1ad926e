// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"diamond-token/internal/domain"
	"diamond-token/internal/ledger"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Oracle sources.
const (
	OracleHermes = "hermes"
	OracleStream = "stream"
	OracleStatic = "static"
)

// Config is the server configuration. Flags in main override these values.
type Config struct {
	HTTPAddr        string        `env:"DIAMOND_HTTP_ADDR"         envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"DIAMOND_SHUTDOWN_TIMEOUT"  envDefault:"30s"`
	Namespace       string        `env:"DIAMOND_METRICS_NAMESPACE" envDefault:"diamond_token"`

	Storage       string `env:"DIAMOND_STORAGE" envDefault:"memory"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	ProgramID string `env:"DIAMOND_PROGRAM_ID"`

	Oracle OracleConfig

	// Chain attestation runs only when RPCEndpoint is set.
	RPCEndpoint    string        `env:"SOLANA_RPC_ENDPOINT"`
	AttestInterval time.Duration `env:"DIAMOND_ATTEST_INTERVAL" envDefault:"5m"`
}

// OracleConfig selects and tunes the native asset price source.
type OracleConfig struct {
	Source     string        `env:"DIAMOND_ORACLE"             envDefault:"hermes"`
	HermesURL  string        `env:"HERMES_URL"                 envDefault:"https://hermes.pyth.network"`
	StreamURL  string        `env:"HERMES_STREAM_URL"          envDefault:"wss://hermes.pyth.network/ws"`
	Timeout    time.Duration `env:"DIAMOND_ORACLE_TIMEOUT"     envDefault:"10s"`
	MaxRetries int           `env:"DIAMOND_ORACLE_MAX_RETRIES" envDefault:"3"`

	// Static quote, used when Source is "static".
	StaticPrice int64  `env:"DIAMOND_STATIC_PRICE" envDefault:"15000000000"`
	StaticConf  uint64 `env:"DIAMOND_STATIC_CONF"  envDefault:"0"`
	StaticExpo  int32  `env:"DIAMOND_STATIC_EXPO"  envDefault:"-8"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for %s storage", c.Storage)
		}
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}

	switch c.Oracle.Source {
	case OracleHermes, OracleStream, OracleStatic:
	default:
		return fmt.Errorf("config: unknown oracle %q", c.Oracle.Source)
	}

	if c.RPCEndpoint != "" && c.AttestInterval <= 0 {
		return fmt.Errorf("config: DIAMOND_ATTEST_INTERVAL must be positive")
	}

	if c.ProgramID != "" {
		if _, err := domain.ParsePubkey(c.ProgramID); err != nil {
			return fmt.Errorf("config: program id: %w", err)
		}
	}
	return nil
}

// Program returns the configured program id, or the default.
func (c *Config) Program() domain.Pubkey {
	if c.ProgramID == "" {
		return ledger.DefaultProgramID
	}
	return domain.MustParsePubkey(c.ProgramID)
}
