package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, "localhost:6379", c.Redis.Addr)
	assert.Equal(t, "p3.2xlarge", c.Target.Instance)
	assert.Equal(t, "us-east-1a", c.Target.Zone)
	assert.Equal(t, int64(1000), c.Learning.LogCap)
	assert.Equal(t, 5, c.Replay.StatusEvery)
	assert.Equal(t, 30*time.Second, c.Learning.LockTTL)
	assert.Equal(t, int64(42), c.Ingestion.HistorySeed)
	assert.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
redis:
  addr: redis:6379
oracle:
  timeout: 5s
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, 5*time.Second, c.Oracle.Timeout)
	assert.Equal(t, "oracle", c.Redis.Prefix)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("WANDB_API_KEY", "wb-key")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EIA_API_KEY", "eia-key")

	c, err := LoadWithEnv("")
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", c.Redis.Addr)
	assert.Equal(t, "wb-key", c.Oracle.APIKey)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "eia-key", c.Ingestion.EIAAPIKey)
	assert.Equal(t, "https://api.eia.gov/v2", c.Ingestion.EIABaseURL)
}

func TestOracleAPIKeyTakesPrecedence(t *testing.T) {
	t.Setenv("ORACLE_API_KEY", "direct")
	t.Setenv("WANDB_API_KEY", "fallback")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "direct", c.Oracle.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 70000
redis:
  max_retries: 0
clickhouse:
  enabled: true
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "redis.max_retries")
	assert.Contains(t, err.Error(), "clickhouse.host")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
