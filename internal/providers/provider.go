package providers

import "net"

// DomainMatcher is satisfied by any provider the matcher processor can use
// for a domain dimension: DomainSet and Geosite.
type DomainMatcher interface {
	Match(name string) bool
}

// IPMatcher is satisfied by any provider the matcher processor can use for
// a client_ip dimension: IpSet.
type IPMatcher interface {
	Contains(ip net.IP) bool
}

var (
	_ DomainMatcher = (*DomainSet)(nil)
	_ DomainMatcher = (*Geosite)(nil)
	_ IPMatcher     = (*IpSet)(nil)
)
