package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Search.IncludeUnreviewed)
	assert.Empty(t, cfg.Search.MemcachedHost)
	assert.Equal(t, 100, cfg.BatchProcessing.MaxBatchSize)
	assert.Equal(t, 3, cfg.BatchProcessing.MaxRetries)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_QUERY_TIMEOUT", "750ms")
	t.Setenv("SEARCH_INCLUDE_UNREVIEWED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://lightbnb.example")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.QueryTimeout)
	assert.False(t, cfg.Search.IncludeUnreviewed)
	assert.Equal(t, []string{"http://localhost:3000", "https://lightbnb.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BATCH_MAX_SIZE=7\nSEED_PATH=fixtures/catalog.yaml\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("BATCH_MAX_SIZE")
		os.Unsetenv("SEED_PATH")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.BatchProcessing.MaxBatchSize)
	assert.Equal(t, "fixtures/catalog.yaml", cfg.Seed.Path)
}
