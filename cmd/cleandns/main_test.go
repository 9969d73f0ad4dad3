package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	f := parseFlags(nil)
	require.Equal(t, "", f.configPath)
	require.Equal(t, "", f.bind)
	require.False(t, f.debug)
}

func TestParseFlagsOverrides(t *testing.T) {
	f := parseFlags([]string{"-config", "/tmp/cleandns.yaml", "-bind", "0.0.0.0:1053", "-debug"})
	require.Equal(t, "/tmp/cleandns.yaml", f.configPath)
	require.Equal(t, "0.0.0.0:1053", f.bind)
	require.True(t, f.debug)
}

func TestApplyCLIOverrides(t *testing.T) {
	cfg := &config.Config{Bind: "0.0.0.0:53", Logging: config.LoggingConfig{Level: "INFO"}}
	applyCLIOverrides(cfg, cliFlags{bind: "127.0.0.1:5353", debug: true})
	require.Equal(t, "127.0.0.1:5353", cfg.Bind)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestApplyCLIOverridesLeavesDefaultsWhenUnset(t *testing.T) {
	cfg := &config.Config{Bind: "0.0.0.0:53", Logging: config.LoggingConfig{Level: "INFO"}}
	applyCLIOverrides(cfg, cliFlags{})
	require.Equal(t, "0.0.0.0:53", cfg.Bind)
	require.Equal(t, "INFO", cfg.Logging.Level)
}
