package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/srgjo27/ticket_marketplace/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad_YAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
storage:
  driver: memory
payment:
  provider: http
  base_url: https://pay.example.com
reclaimer:
  interval: 30s
tickets:
  code_key: yaml-key-0123456789abcdef
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("TICKET_CODE_KEY", "env-key-0123456789abcdef")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := config.MustLoad()

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "http", cfg.Payment.Provider)
	assert.Equal(t, 30*time.Second, cfg.Reclaimer.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Reclaimer.Threshold)
	assert.Equal(t, 30*time.Minute, cfg.Payment.SessionTTL)
	assert.Equal(t, "env-key-0123456789abcdef", cfg.Tickets.CodeKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestMustLoad_EnvOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("TICKET_CODE_KEY", "env-only-key-0123456789")
	t.Setenv("DB_HOST", "db.internal")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://postgres:@db.internal:5432/ticket_marketplace?sslmode=disable", cfg.Postgres.DSN())
}
