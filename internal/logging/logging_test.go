package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "default config", cfg: Config{Level: "INFO"}},
		{name: "debug level", cfg: Config{Level: "DEBUG"}},
		{name: "structured JSON", cfg: Config{Level: "INFO", Structured: true, StructuredFormat: "json"}},
		{name: "structured text", cfg: Config{Level: "INFO", Structured: true, StructuredFormat: "keyvalue"}},
		{name: "with PID", cfg: Config{Level: "INFO", IncludePID: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := Configure(tt.cfg)
			require.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DEBUG", "DEBUG"},
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"WARN", "WARN"},
		{"WARNING", "WARN"},
		{"ERROR", "ERROR"},
		{"invalid", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, parseLevel(tt.input).String())
		})
	}
}
