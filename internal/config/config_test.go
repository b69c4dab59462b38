package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Workers)
	assert.False(t, cfg.SaveLists)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadParsesJSON(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"workers":4,"save_lists":true,"log_level":"debug"}`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.SaveLists)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsNegativeWorkers(t *testing.T) {
	cfg := &Config{Workers: -1}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "verbose"}
	assert.Error(t, cfg.Validate())
}

func TestLoadEnvDefaultsOverlaysUnsetFields(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "HASHCOPY_WORKERS=8\nHASHCOPY_SAVE_LISTS=true\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o644))

	cfg := &Config{LogLevel: "info"}
	require.NoError(t, cfg.LoadEnvDefaults(envPath))
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.SaveLists)
}

func TestLoadEnvDefaultsMissingFileIsNotAnError(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.LoadEnvDefaults(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadEnvDefaultsDoesNotOverrideExplicitValues(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("HASHCOPY_WORKERS=99\n"), 0o644))

	cfg := &Config{Workers: 3}
	require.NoError(t, cfg.LoadEnvDefaults(envPath))
	assert.Equal(t, 3, cfg.Workers, "explicit workers must survive env overlay")
}
