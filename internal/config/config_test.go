package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 4, cfg.Ingest.DefaultTopK)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.False(t, cfg.Metrics.Broker)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
host = "10.0.0.5"
port = 9000

[ingest]
chunk_size = 500
default_top_k = 6

[metrics]
broker = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9000", cfg.HTTPAddr())
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 6, cfg.Ingest.DefaultTopK)
	assert.True(t, cfg.Metrics.Broker)
	// Untouched sections keep their defaults.
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "7777")
	t.Setenv("LLM_MODEL", "custom-model")
	t.Setenv("INGEST_CHUNK_SIZE", "250")
	t.Setenv("METRICS_BROKER", "true")
	t.Setenv("MYSQL_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.App.Port)
	assert.Equal(t, "custom-model", cfg.LLM.Model)
	assert.Equal(t, 250, cfg.Ingest.ChunkSize)
	assert.True(t, cfg.Metrics.Broker)
	assert.Contains(t, cfg.MySQLDSN(), ":secret@tcp(")
}

func TestBadEnvValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "not-a-number")
	t.Setenv("METRICS_BROKER", "perhaps")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultConfig().App.Port, cfg.App.Port)
	assert.False(t, cfg.Metrics.Broker)
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "pdfchat"
	cfg.MySQL.Params = "parseTime=True"

	assert.Equal(t, "app:pw@tcp(db:3307)/pdfchat?parseTime=True", cfg.MySQLDSN())
}
