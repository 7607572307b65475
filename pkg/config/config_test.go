package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultConfig(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

registry:
  port: 9000

catalog:
  type: sqlite
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 9000, cfg.Registry.Port)
	assert.Equal(t, "sha256", cfg.Chain.HashAlgorithm)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "sha256", cfg.Chain.HashAlgorithm)
	assert.Equal(t, 8080, cfg.Registry.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestGetDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8080, cfg.Registry.Port)
	assert.Equal(t, "sqlite", cfg.Catalog.Type)
	assert.NoError(t, Validate(cfg))
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Parallel()
	path := GetDefaultConfigPath()

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.yaml", filepath.Base(path))
}

func TestGetConfigDir(t *testing.T) {
	t.Parallel()
	dir := GetConfigDir()

	assert.Equal(t, "ih5", filepath.Base(dir))
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("IH5_LOGGING_LEVEL", "ERROR")
	t.Setenv("IH5_REGISTRY_PORT", "9191")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

registry:
  port: 8080

catalog:
  type: sqlite
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, 9191, cfg.Registry.Port)
}
