package graph

import (
	"fmt"
	"log/slog"

	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/processors"
)

type buildState int

const (
	stateUnvisited buildState = iota
	stateVisiting
	stateDone
)

type builder struct {
	configs map[string]PluginConfig
	state   map[string]buildState
	built   map[string]plugin.Processor
	logger  *slog.Logger
}

// Build resolves entryTag and every config into a fully wired plugin.Graph.
// Cycle detection uses DFS coloring: a tag reached while still "visiting"
// its own dependency chain is a cycle, and graph construction fails rather
// than risk an unbounded recursion at request time. logger may be nil; it is
// handed to any plugin (resolver pool, cache) that wants to log ambiently.
func Build(entryTag string, configs []PluginConfig, logger *slog.Logger) (*plugin.Graph, error) {
	b := &builder{
		configs: make(map[string]PluginConfig, len(configs)),
		state:   make(map[string]buildState, len(configs)),
		built:   make(map[string]plugin.Processor, len(configs)),
		logger:  logger,
	}
	for _, c := range configs {
		if c.Tag == "" {
			return nil, fmt.Errorf("graph: plugin entry with empty tag")
		}
		if _, dup := b.configs[c.Tag]; dup {
			return nil, fmt.Errorf("graph: duplicate tag %q", c.Tag)
		}
		b.configs[c.Tag] = c
	}

	entry, err := b.resolve(entryTag)
	if err != nil {
		return nil, fmt.Errorf("graph: entry %q: %w", entryTag, err)
	}

	return &plugin.Graph{Entry: entry, Tags: b.built}, nil
}

// resolve returns the built processor for tag, building it (and its
// dependencies) on first use.
func (b *builder) resolve(tag string) (plugin.Processor, error) {
	if p, ok := b.built[tag]; ok {
		return p, nil
	}
	switch b.state[tag] {
	case stateVisiting:
		return nil, fmt.Errorf("cycle detected at tag %q", tag)
	case stateDone:
		// built map should have had it; defensive fallback
		return b.built[tag], nil
	}

	cfg, ok := b.configs[tag]
	if !ok {
		return nil, fmt.Errorf("unknown tag %q", tag)
	}

	b.state[tag] = stateVisiting
	p, err := b.construct(cfg)
	if err != nil {
		return nil, fmt.Errorf("tag %q (%s): %w", tag, cfg.Type, err)
	}
	b.state[tag] = stateDone
	b.built[tag] = p
	return p, nil
}

func (b *builder) resolveAll(tags []string) ([]plugin.Processor, error) {
	out := make([]plugin.Processor, 0, len(tags))
	for _, t := range tags {
		p, err := b.resolve(t)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// resolveCondition resolves tag and requires it to implement
// plugin.Condition, failing graph construction otherwise: only processors
// exposing the Condition capability may appear as an `if`'s condition.
func (b *builder) resolveCondition(tag string) (plugin.Condition, error) {
	p, err := b.resolve(tag)
	if err != nil {
		return nil, err
	}
	cond, ok := p.(plugin.Condition)
	if !ok {
		return nil, fmt.Errorf("tag %q does not implement Condition", tag)
	}
	return cond, nil
}

func (b *builder) construct(cfg PluginConfig) (plugin.Processor, error) {
	switch cfg.Type {
	case "sequence":
		return b.buildSequence(cfg)
	case "if":
		return b.buildIf(cfg)
	case "return":
		return processors.Return{}, nil
	case "reject":
		return b.buildReject(cfg)
	case "delay":
		return b.buildDelay(cfg)
	case "matcher":
		return b.buildMatcher(cfg)
	case "domain_set":
		return b.buildDomainSet(cfg)
	case "geosite":
		return b.buildGeosite(cfg)
	case "ip_set":
		return b.buildIPSet(cfg)
	case "hosts":
		return b.buildHosts(cfg)
	case "ttl":
		return b.buildTTL(cfg)
	case "forward":
		return b.buildForward(cfg)
	case "system":
		return processors.System{}, nil
	case "cache":
		return b.buildCache(cfg)
	case "fallback":
		return b.buildFallback(cfg)
	default:
		return nil, fmt.Errorf("unknown plugin type %q", cfg.Type)
	}
}
