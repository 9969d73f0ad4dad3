package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFailValidationWithoutPlugins(t *testing.T) {
	_, err := Load("")
	require.Error(t, err, "no plugins declared: defaults alone are not a valid graph")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cleandns.yaml")
	yamlBody := `
bind: "127.0.0.1:5353"
entry: main
logging:
  level: debug
api:
  enabled: true
  port: 9090
plugins:
  - tag: main
    type: reject
    args:
      rcode: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:5353", cfg.Bind)
	require.Equal(t, "main", cfg.Entry)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.True(t, cfg.API.Enabled)
	require.Equal(t, 9090, cfg.API.Port)
	require.Len(t, cfg.Plugins, 1)
	require.Equal(t, "main", cfg.Plugins[0].Tag)
	require.Equal(t, "reject", cfg.Plugins[0].Type)
	require.Equal(t, 5, cfg.Plugins[0].Args["rcode"])
}

func TestLoadRejectsBadAPIPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cleandns.yaml")
	yamlBody := `
bind: "127.0.0.1:5353"
entry: main
api:
  enabled: true
  port: 0
plugins:
  - tag: main
    type: reject
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cleandns.yaml")
	yamlBody := `
bind: "127.0.0.1:5353"
entry: main
plugins:
  - tag: main
    type: reject
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	t.Setenv("CLEANDNS_BIND", "0.0.0.0:1053")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:1053", cfg.Bind)
}
