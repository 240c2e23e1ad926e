package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-token/internal/ledger"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, OracleHermes, cfg.Oracle.Source)
	assert.Equal(t, 10*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, int32(-8), cfg.Oracle.StaticExpo)
	assert.Equal(t, ledger.DefaultProgramID, cfg.Program())
	assert.Equal(t, 5*time.Minute, cfg.AttestInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DIAMOND_STORAGE", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("DIAMOND_ORACLE", "static")
	t.Setenv("DIAMOND_PROGRAM_ID", "11111111111111111111111111111111")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, OracleStatic, cfg.Oracle.Source)
	assert.True(t, cfg.Program().IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown storage", Config{Storage: "redis", Oracle: OracleConfig{Source: OracleHermes}}},
		{"postgres without dsn", Config{Storage: StoragePostgres, Oracle: OracleConfig{Source: OracleHermes}}},
		{"unknown oracle", Config{Storage: StorageMemory, Oracle: OracleConfig{Source: "chainlink"}}},
		{"bad program id", Config{Storage: StorageMemory, Oracle: OracleConfig{Source: OracleHermes}, ProgramID: "not-base58-0OIl"}},
		{"attest without interval", Config{Storage: StorageMemory, Oracle: OracleConfig{Source: OracleHermes}, RPCEndpoint: "http://localhost:8899"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
