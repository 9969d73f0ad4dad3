// Package stats implements the per-qname statistics aggregator behind the
// /stats API: count, last_resolved_at, ips, and cache_hits per query name,
// kept in memory only and lost on restart.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// domainStats holds the mutable counters for one qname. Count and
// CacheHits are atomic so concurrent RecordRequest/RecordCacheHit calls for
// the same name never race; the IP set and timestamp are protected by a
// per-entry lock since they change shape, not just value.
type domainStats struct {
	count          atomic.Uint64
	cacheHits      atomic.Uint64
	mu             sync.Mutex
	lastResolvedAt time.Time
	ips            map[string]struct{}
}

// Aggregator is the shared stats handle every Context carries.
type Aggregator struct {
	mu      sync.RWMutex
	domains map[string]*domainStats
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{domains: make(map[string]*domainStats)}
}

func (a *Aggregator) entry(qname string) *domainStats {
	a.mu.RLock()
	d, ok := a.domains[qname]
	a.mu.RUnlock()
	if ok {
		return d
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := a.domains[qname]; ok {
		return d
	}
	d = &domainStats{ips: make(map[string]struct{})}
	a.domains[qname] = d
	return d
}

// RecordRequest increments the request count for qname and updates
// last_resolved_at.
func (a *Aggregator) RecordRequest(qname string) {
	d := a.entry(qname)
	d.count.Add(1)
	d.mu.Lock()
	d.lastResolvedAt = time.Now()
	d.mu.Unlock()
}

// RecordResolution records the A/AAAA addresses returned for qname.
func (a *Aggregator) RecordResolution(qname string, ips []string) {
	if len(ips) == 0 {
		return
	}
	d := a.entry(qname)
	d.mu.Lock()
	for _, ip := range ips {
		d.ips[ip] = struct{}{}
	}
	d.mu.Unlock()
}

// RecordCacheHit increments the cache-hit count for qname.
func (a *Aggregator) RecordCacheHit(qname string) {
	a.entry(qname).cacheHits.Add(1)
}

// DomainSnapshot is the JSON-serializable view of one qname's stats, as
// returned under the "domains" key of GET /stats.
type DomainSnapshot struct {
	Count          uint64    `json:"count"`
	LastResolvedAt time.Time `json:"last_resolved_at"`
	IPs            []string  `json:"ips"`
	CacheHits      uint64    `json:"cache_hits"`
}

// Snapshot returns a point-in-time copy of all recorded domains.
func (a *Aggregator) Snapshot() map[string]DomainSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]DomainSnapshot, len(a.domains))
	for qname, d := range a.domains {
		d.mu.Lock()
		ips := make([]string, 0, len(d.ips))
		for ip := range d.ips {
			ips = append(ips, ip)
		}
		last := d.lastResolvedAt
		d.mu.Unlock()

		out[qname] = DomainSnapshot{
			Count:          d.count.Load(),
			LastResolvedAt: last,
			IPs:            ips,
			CacheHits:      d.cacheHits.Load(),
		}
	}
	return out
}
