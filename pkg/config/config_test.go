package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "database: ./test.agdb\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NotNil(t, cfg.ShrinkOnClose)
	assert.True(t, *cfg.ShrinkOnClose)
}

func TestLoadHonorsOverrides(t *testing.T) {
	path := writeConfig(t, "database: ./test.agdb\nmirror: true\nshrinkOnClose: false\nlog:\n  level: debug\n  json: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Mirror)
	require.NotNil(t, cfg.ShrinkOnClose)
	assert.False(t, *cfg.ShrinkOnClose)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadRequiresDatabase(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
