package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir())) // no config file in scope
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "veille.db", cfg.Store.DSN)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.Equal(t, 10, cfg.Scan.BatchSize)
	assert.Equal(t, 60, cfg.Scan.AlertThreshold)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.LLM.Key)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	t.Setenv("VEILLE_LLM_KEY", "sk-test")
	t.Setenv("VEILLE_STORE_DRIVER", "postgres")
	t.Setenv("VEILLE_SCAN_BATCH_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.Key)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 25, cfg.Scan.BatchSize)
}

func TestRegistryConfig_MinInterval(t *testing.T) {
	assert.Equal(t, "1.1s", RegistryConfig{MinIntervalMs: 1100}.MinInterval().String())
}

func TestGatherConfig_FetchTimeout(t *testing.T) {
	assert.Equal(t, "8s", GatherConfig{FetchTimeoutSecs: 8}.FetchTimeout().String())
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "chatty", Format: "json"}))
}
