package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

type noopStats struct{}

func (noopStats) RecordRequest(string)              {}
func (noopStats) RecordResolution(string, []string) {}
func (noopStats) RecordCacheHit(string)             {}

func TestBuildSimpleSequence(t *testing.T) {
	configs := []PluginConfig{
		{Tag: "entry", Type: "sequence", Args: map[string]any{"exec": []any{"reject"}}},
		{Tag: "reject", Type: "reject", Args: map[string]any{"rcode": 5}},
	}
	g, err := Build("entry", configs, nil)
	require.NoError(t, err)

	pc := plugin.NewContext(dnsmsg.Question{Name: "example.com."}, nil, noopStats{})
	require.NoError(t, g.Run(context.Background(), pc))
	require.NotNil(t, pc.Response)
	require.Equal(t, dnsmsg.RCodeRefused, pc.Response.Header.RCode())
}

func TestBuildDetectsCycle(t *testing.T) {
	configs := []PluginConfig{
		{Tag: "a", Type: "sequence", Args: map[string]any{"exec": []any{"b"}}},
		{Tag: "b", Type: "sequence", Args: map[string]any{"exec": []any{"a"}}},
	}
	_, err := Build("a", configs, nil)
	require.Error(t, err)
}

func TestBuildUnknownTagFails(t *testing.T) {
	configs := []PluginConfig{
		{Tag: "entry", Type: "sequence", Args: map[string]any{"exec": []any{"missing"}}},
	}
	_, err := Build("entry", configs, nil)
	require.Error(t, err)
}

func TestBuildDuplicateTagFails(t *testing.T) {
	configs := []PluginConfig{
		{Tag: "entry", Type: "reject"},
		{Tag: "entry", Type: "reject"},
	}
	_, err := Build("entry", configs, nil)
	require.Error(t, err)
}

func TestBuildIfRequiresCondition(t *testing.T) {
	configs := []PluginConfig{
		{Tag: "entry", Type: "if", Args: map[string]any{"if": "notcond", "exec": []any{}}},
		{Tag: "notcond", Type: "reject"},
	}
	_, err := Build("entry", configs, nil)
	require.Error(t, err)
}

func TestBuildMatcherAsCondition(t *testing.T) {
	configs := []PluginConfig{
		{
			Tag:  "entry",
			Type: "if",
			Args: map[string]any{
				"if":   "cond",
				"exec": []any{"reject"},
			},
		},
		{Tag: "cond", Type: "matcher", Args: map[string]any{"domain": []any{"example.com"}}},
		{Tag: "reject", Type: "reject", Args: map[string]any{"rcode": 5}},
	}
	g, err := Build("entry", configs, nil)
	require.NoError(t, err)

	pc := plugin.NewContext(dnsmsg.Question{Name: "www.example.com."}, nil, noopStats{})
	require.NoError(t, g.Run(context.Background(), pc))
	require.NotNil(t, pc.Response)

	pc2 := plugin.NewContext(dnsmsg.Question{Name: "other.org."}, nil, noopStats{})
	require.NoError(t, g.Run(context.Background(), pc2))
	require.Nil(t, pc2.Response)
}
