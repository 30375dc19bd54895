package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/config"
)

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := config.GetDefaultConfig()
	require.NoError(t, config.Validate(cfg))
	assert.Equal(t, ":2049", cfg.Server.ListenAddr)
	assert.Len(t, cfg.Exports, 1)
	assert.Equal(t, "/export", cfg.Exports[0].Path)
	assert.Equal(t, "memory", cfg.Exports[0].Backend)
}

func TestValidateRejectsEmptyExports(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Exports = nil
	assert.Error(t, config.Validate(cfg))
}

func TestValidateRejectsDuplicateExportPaths(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Exports = append(cfg.Exports, config.ExportConfig{Path: "/export", Backend: "memory"})
	assert.Error(t, config.Validate(cfg))
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, config.Validate(cfg))
}

func TestApplyDefaultsLowercasesLogLevel(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "DEBUG"}}
	config.ApplyDefaults(cfg)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	want := config.GetDefaultConfig()
	want.Server.ListenAddr = ":20490"
	require.NoError(t, config.SaveConfig(want, path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.Server.ListenAddr, got.Server.ListenAddr)
	assert.Equal(t, want.Exports, got.Exports)
}

func TestLoadOfMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	got, err := config.Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.GetDefaultConfig(), got)
}

func TestEnvironmentVariableOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(config.GetDefaultConfig(), path))

	t.Setenv("NFSD3_SERVER_LISTEN_ADDR", ":30490")
	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":30490", got.Server.ListenAddr)
}

func TestGetDefaultConfigPathRespectsXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "nfsd3", "config.yaml"), config.GetDefaultConfigPath())
}

func TestDefaultConfigExistsReflectsFilesystem(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.False(t, config.DefaultConfigExists())

	path := config.GetDefaultConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("logging: {}\n"), 0o644))
	assert.True(t, config.DefaultConfigExists())
}
