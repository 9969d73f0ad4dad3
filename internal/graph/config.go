// Package graph builds an immutable plugin.Graph from a YAML-shaped list of
// tagged processor declarations, resolving tag references to direct handles
// and rejecting unknown tags, bad arguments, and cycles at build time rather
// than at request time — a bad config should fail startup, not a query.
package graph

// PluginConfig is one entry in the `plugins` list: a tagged processor
// declaration with type-specific arguments.
type PluginConfig struct {
	Tag  string         `yaml:"tag" mapstructure:"tag"`
	Type string         `yaml:"type" mapstructure:"type"`
	Args map[string]any `yaml:"args" mapstructure:"args"`
}
