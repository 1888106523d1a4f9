package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 30, cfg.InstallerTimeoutMinutes)
	require.EqualValues(t, 5*1024*1024, cfg.Scan.MinFileSizeBytes)
	require.Equal(t, []string{".exe", ".msi"}, cfg.Scan.Extensions)
	require.InDelta(t, 0.5, cfg.Detection.HeuristicThreshold, 0.0001)
	require.Negative(t, cfg.Detection.Weights.UninstallHint)
	require.Contains(t, cfg.DefaultInstallCommands, ".msi")
	require.Contains(t, cfg.SemiSilentCommands[".msi"], "/passive")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().LogLevel, cfg.LogLevel)
	require.Equal(t, Default().Scan.MinFileSizeBytes, cfg.Scan.MinFileSizeBytes)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := `
LogLevel: debug
Scan:
  min_file_size_bytes: 1024
`
	require.NoError(t, os.WriteFile(path, []byte(partial), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.EqualValues(t, 1024, cfg.Scan.MinFileSizeBytes)

	// Unset sections fall back to the built-ins.
	require.Equal(t, Default().Scan.Extensions, cfg.Scan.Extensions)
	require.Equal(t, Default().Detection.Weights, cfg.Detection.Weights)
	require.Equal(t, Default().InstallerTimeoutMinutes, cfg.InstallerTimeoutMinutes)
	require.NotEmpty(t, cfg.LedgerPath)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Scan: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.CatalogPath = `C:\catalogs\programs.yaml`
	cfg.LogLevel = "warn"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.CatalogPath, loaded.CatalogPath)
	require.Equal(t, "warn", loaded.LogLevel)
	require.Equal(t, cfg.Detection.Weights, loaded.Detection.Weights)
}
