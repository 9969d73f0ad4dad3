package graph

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tigerzhang/clean-dns/internal/dnscache"
	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/processors"
	"github.com/tigerzhang/clean-dns/internal/providers"
	"github.com/tigerzhang/clean-dns/internal/resolverpool"
	"github.com/tigerzhang/clean-dns/internal/upstream"
)

func (b *builder) buildSequence(cfg PluginConfig) (plugin.Processor, error) {
	tags, err := argStringSlice(cfg.Args, "exec")
	if err != nil {
		return nil, err
	}
	children, err := b.resolveAll(tags)
	if err != nil {
		return nil, err
	}
	return &processors.Sequence{Exec: children}, nil
}

func (b *builder) buildIf(cfg PluginConfig) (plugin.Processor, error) {
	condTag, ok := argString(cfg.Args, "if")
	if !ok || condTag == "" {
		return nil, fmt.Errorf("missing required string argument \"if\"")
	}
	cond, err := b.resolveCondition(condTag)
	if err != nil {
		return nil, err
	}

	execTags, err := argStringSlice(cfg.Args, "exec")
	if err != nil {
		return nil, err
	}
	elseTags, err := argStringSlice(cfg.Args, "else_exec")
	if err != nil {
		return nil, err
	}

	execChildren, err := b.resolveAll(execTags)
	if err != nil {
		return nil, err
	}
	elseChildren, err := b.resolveAll(elseTags)
	if err != nil {
		return nil, err
	}

	node := &processors.If{If: cond}
	if len(execChildren) > 0 {
		node.Exec = &processors.Sequence{Exec: execChildren}
	}
	if len(elseChildren) > 0 {
		node.ElseExec = &processors.Sequence{Exec: elseChildren}
	}
	return node, nil
}

func (b *builder) buildReject(cfg PluginConfig) (plugin.Processor, error) {
	rcode, err := argInt(cfg.Args, "rcode", int(dnsmsg.RCodeRefused))
	if err != nil {
		return nil, err
	}
	return processors.Reject{RCode: dnsmsg.RCode(rcode)}, nil
}

func (b *builder) buildDelay(cfg PluginConfig) (plugin.Processor, error) {
	ms, err := argInt(cfg.Args, "ms", 0)
	if err != nil {
		return nil, err
	}
	return processors.Delay{Duration: time.Duration(ms) * time.Millisecond}, nil
}

// providerHandle lets DomainSet/IpSet/Geosite providers sit in the same
// tag->Processor map as executable plugins: they have no run-time effect of
// their own, they're only ever looked up by matcher's provider references.
type providerHandle struct {
	domain providers.DomainMatcher
	ip     providers.IPMatcher
}

func (providerHandle) Run(context.Context, *plugin.Context) error { return nil }

func (b *builder) buildDomainSet(cfg PluginConfig) (plugin.Processor, error) {
	files, err := argStringSlice(cfg.Args, "files")
	if err != nil {
		return nil, err
	}
	ds, err := providers.LoadDomainSet(files)
	if err != nil {
		return nil, err
	}
	return &providerHandle{domain: ds}, nil
}

func (b *builder) buildGeosite(cfg PluginConfig) (plugin.Processor, error) {
	file, ok := argString(cfg.Args, "file")
	if !ok || file == "" {
		return nil, fmt.Errorf("missing required string argument \"file\"")
	}
	code, ok := argString(cfg.Args, "code")
	if !ok || code == "" {
		return nil, fmt.Errorf("missing required string argument \"code\"")
	}
	gs, err := providers.LoadGeosite(file, code)
	if err != nil {
		return nil, err
	}
	return &providerHandle{domain: gs}, nil
}

func (b *builder) buildIPSet(cfg PluginConfig) (plugin.Processor, error) {
	files, err := argStringSlice(cfg.Args, "files")
	if err != nil {
		return nil, err
	}
	is, err := providers.LoadIpSet(files)
	if err != nil {
		return nil, err
	}
	return &providerHandle{ip: is}, nil
}

func (b *builder) buildHosts(cfg PluginConfig) (plugin.Processor, error) {
	raw, err := argStringMap(cfg.Args, "hosts")
	if err != nil {
		return nil, err
	}
	entries := make(map[string][]net.IP, len(raw))
	for name, v := range raw {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("hosts entry %q must be a list of addresses", name)
		}
		ips := make([]net.IP, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("hosts entry %q has a non-string address: %v", name, item)
			}
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("hosts entry %q has an invalid address %q", name, s)
			}
			ips = append(ips, ip)
		}
		entries[dnsmsg.NormalizeName(name)] = ips
	}
	ttl, err := argInt(cfg.Args, "ttl", 0)
	if err != nil {
		return nil, err
	}
	return &processors.Hosts{Entries: entries, TTL: uint32(ttl)}, nil
}

func (b *builder) buildTTL(cfg PluginConfig) (plugin.Processor, error) {
	min, err := argInt(cfg.Args, "min", 0)
	if err != nil {
		return nil, err
	}
	max, err := argInt(cfg.Args, "max", 0)
	if err != nil {
		return nil, err
	}
	return processors.TTLClamp{Min: uint32(min), Max: uint32(max)}, nil
}

func (b *builder) buildMatcher(cfg PluginConfig) (plugin.Processor, error) {
	domainPatterns, err := b.buildDomainPatterns(cfg.Args, "domain")
	if err != nil {
		return nil, err
	}
	ipPatterns, err := b.buildIPPatterns(cfg.Args, "client_ip")
	if err != nil {
		return nil, err
	}
	return &processors.Matcher{Domain: domainPatterns, ClientIP: ipPatterns}, nil
}

func (b *builder) buildDomainPatterns(args map[string]any, key string) ([]processors.DomainPattern, error) {
	raw, err := argStringSlice(args, key)
	if err != nil {
		return nil, err
	}
	out := make([]processors.DomainPattern, 0, len(raw))
	for _, pat := range raw {
		if tag, ok := stripProviderPrefix(pat); ok {
			handle, err := b.resolveProviderTag(tag)
			if err != nil {
				return nil, err
			}
			if handle.domain == nil {
				return nil, fmt.Errorf("provider %q is not a domain provider", tag)
			}
			out = append(out, processors.DomainPattern{Provider: handle.domain})
			continue
		}
		out = append(out, processors.DomainPattern{Literal: pat})
	}
	return out, nil
}

func (b *builder) buildIPPatterns(args map[string]any, key string) ([]processors.IPPattern, error) {
	raw, err := argStringSlice(args, key)
	if err != nil {
		return nil, err
	}
	out := make([]processors.IPPattern, 0, len(raw))
	for _, pat := range raw {
		if tag, ok := stripProviderPrefix(pat); ok {
			handle, err := b.resolveProviderTag(tag)
			if err != nil {
				return nil, err
			}
			if handle.ip == nil {
				return nil, fmt.Errorf("provider %q is not an ip provider", tag)
			}
			out = append(out, processors.IPPattern{Provider: handle.ip})
			continue
		}
		_, cidr, err := net.ParseCIDR(pat)
		if err != nil {
			return nil, fmt.Errorf("bad CIDR %q: %w", pat, err)
		}
		out = append(out, processors.IPPattern{CIDR: cidr})
	}
	return out, nil
}

func stripProviderPrefix(pat string) (string, bool) {
	const prefix = "provider:"
	if len(pat) > len(prefix) && pat[:len(prefix)] == prefix {
		return pat[len(prefix):], true
	}
	return "", false
}

func (b *builder) resolveProviderTag(tag string) (*providerHandle, error) {
	p, err := b.resolve(tag)
	if err != nil {
		return nil, err
	}
	handle, ok := p.(*providerHandle)
	if !ok {
		return nil, fmt.Errorf("tag %q is not a provider", tag)
	}
	return handle, nil
}

func (b *builder) buildForward(cfg PluginConfig) (plugin.Processor, error) {
	specs, err := b.buildUpstreamSpecs(cfg.Args)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("forward requires at least one upstream")
	}
	concurrent, err := argInt(cfg.Args, "concurrent", 0)
	if err != nil {
		return nil, err
	}
	return &processors.Forward{Pool: resolverpool.NewPool(specs, concurrent, b.logger)}, nil
}

func (b *builder) buildUpstreamSpecs(args map[string]any) ([]upstream.Spec, error) {
	raw, ok := args["upstreams"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument \"upstreams\" must be a list")
	}
	socks5, _ := argString(args, "socks5")

	out := make([]upstream.Spec, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("each upstream must be a mapping with a \"type\" field")
		}
		typ, _ := argString(m, "type")
		switch typ {
		case "udp":
			addr, _ := argString(m, "addr")
			if addr == "" {
				return nil, fmt.Errorf("udp upstream requires \"addr\"")
			}
			out = append(out, upstream.Spec{Kind: upstream.KindUDP, Addr: addr, SOCKS5: socks5})
		case "doh":
			url, _ := argString(m, "url")
			if url == "" {
				return nil, fmt.Errorf("doh upstream requires \"url\"")
			}
			out = append(out, upstream.Spec{Kind: upstream.KindDoH, URL: url, SOCKS5: socks5})
		case "system":
			out = append(out, upstream.Spec{Kind: upstream.KindSystem})
		default:
			return nil, fmt.Errorf("unknown upstream type %q", typ)
		}
	}
	return out, nil
}

func (b *builder) buildCache(cfg PluginConfig) (plugin.Processor, error) {
	size, err := argInt(cfg.Args, "size", 0)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("cache requires a positive \"size\"")
	}
	singleFlight, err := argBool(cfg.Args, "single_flight", false)
	if err != nil {
		return nil, err
	}
	tags, err := argStringSlice(cfg.Args, "exec")
	if err != nil {
		return nil, err
	}
	children, err := b.resolveAll(tags)
	if err != nil {
		return nil, err
	}
	dcfg := dnscache.DefaultConfig(size)
	dcfg.SingleFlight = singleFlight
	dcfg.Logger = b.logger
	return &processors.Cache{
		Store: dnscache.New(dcfg),
		Exec:  &processors.Sequence{Exec: children},
	}, nil
}

func (b *builder) buildFallback(cfg PluginConfig) (plugin.Processor, error) {
	primaryTags, err := argStringSlice(cfg.Args, "primary")
	if err != nil {
		return nil, err
	}
	secondaryTags, err := argStringSlice(cfg.Args, "secondary")
	if err != nil {
		return nil, err
	}
	primary, err := b.resolveAll(primaryTags)
	if err != nil {
		return nil, err
	}
	secondary, err := b.resolveAll(secondaryTags)
	if err != nil {
		return nil, err
	}
	return &processors.Fallback{
		Primary:   &processors.Sequence{Exec: primary},
		Secondary: &processors.Sequence{Exec: secondary},
	}, nil
}
