// Package config loads CleanDNS's startup configuration using Viper, the
// way HydraDNS's internal/config does: YAML file overridden by CLEANDNS_*
// environment variables, with hardcoded defaults at the bottom of the
// priority stack.
package config

import (
	"github.com/tigerzhang/clean-dns/internal/graph"
)

// LoggingConfig mirrors the teacher's logging section (structured slog
// output, level, optional PID tagging).
type LoggingConfig struct {
	Level            string `yaml:"level"             mapstructure:"level"`
	Structured       bool   `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool   `yaml:"include_pid"       mapstructure:"include_pid"`
}

// APIConfig controls the HTTP stats/health surface.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
}

// Config is the root configuration structure: where to listen, which tag is
// the plugin graph's entry point, and the graph's plugin declarations.
type Config struct {
	Bind    string               `yaml:"bind"    mapstructure:"bind"`
	Entry   string               `yaml:"entry"   mapstructure:"entry"`
	Logging LoggingConfig        `yaml:"logging" mapstructure:"logging"`
	API     APIConfig            `yaml:"api"     mapstructure:"api"`
	Plugins []graph.PluginConfig `yaml:"plugins" mapstructure:"plugins"`
}
