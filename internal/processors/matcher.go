package processors

import (
	"context"
	"net"
	"strings"

	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/providers"
)

// DomainPattern is one entry in a matcher's domain dimension: either a
// literal suffix match or a reference to a domain_set/geosite provider.
type DomainPattern struct {
	Literal  string
	Provider providers.DomainMatcher
}

func (p DomainPattern) match(name string) bool {
	if p.Provider != nil {
		return p.Provider.Match(name)
	}
	want := strings.TrimSuffix(strings.ToLower(p.Literal), ".")
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	return name == want || strings.HasSuffix(name, "."+want)
}

// IPPattern is one entry in a matcher's client_ip dimension.
type IPPattern struct {
	CIDR     *net.IPNet
	Provider providers.IPMatcher
}

func (p IPPattern) match(ip net.IP) bool {
	if p.Provider != nil {
		return p.Provider.Contains(ip)
	}
	return p.CIDR != nil && p.CIDR.Contains(ip)
}

// Matcher is a Condition: true iff every declared, non-empty dimension
// matches. An empty dimension is ignored rather than treated as "match
// nothing", so a Matcher with only a domain list still works without an
// explicit client_ip wildcard.
type Matcher struct {
	Domain   []DomainPattern
	ClientIP []IPPattern
}

var _ plugin.Condition = (*Matcher)(nil)

func (m *Matcher) Check(_ context.Context, pc *plugin.Context) (bool, error) {
	if len(m.Domain) > 0 {
		ok := false
		for _, p := range m.Domain {
			if p.match(pc.Question.Name) {
				ok = true
				break
			}
		}
		if !ok {
			return false, nil
		}
	}
	if len(m.ClientIP) > 0 {
		ok := false
		for _, p := range m.ClientIP {
			if p.match(pc.ClientAddr) {
				ok = true
				break
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Run makes Matcher usable directly inside a sequence too: it has no
// side effect of its own, matching the teacher's policy-engine pattern of
// a pure decision function with no mutation.
func (m *Matcher) Run(_ context.Context, _ *plugin.Context) error { return nil }
