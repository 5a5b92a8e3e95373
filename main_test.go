package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"token": "abc",
		"redis": {"addr": "localhost:6379"},
		"postgres": {"host": "db", "port": 5433, "user": "bot", "database": "antispam"},
		"metricsAddr": ":9090"
	}`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Token)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
token: abc
postgres:
  host: db
  user: bot
  database: antispam
workers: 8
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Token)
	assert.Nil(t, cfg.Redis)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadConfig_TokenFromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	path := writeConfig(t, "config.json", `{"postgres": {"host": "db"}}`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "config.json", `{"token":`))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "config.yml", "postgres:\n  host: db\n"))
	assert.Error(t, err)
}
