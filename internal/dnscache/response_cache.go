package dnscache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
)

// Key identifies a cached response by lowercased qname, qtype, and qclass.
type Key struct {
	Name  string
	Type  uint16
	Class uint16
}

// KeyFor builds the cache key for a question.
func KeyFor(q dnsmsg.Question) Key {
	return Key{Name: strings.ToLower(q.Name), Type: q.Type, Class: q.Class}
}

// Config bounds TTLs the cache assigns to inserted responses. Defaults: min
// 5s, max 1h positive, 30s negative.
type Config struct {
	Size         int
	MinTTL       time.Duration
	MaxTTL       time.Duration
	NegTTL       time.Duration
	SingleFlight bool
	Logger       *slog.Logger
}

// DefaultConfig returns CleanDNS's default TTL bounds.
func DefaultConfig(size int) Config {
	return Config{
		Size:   size,
		MinTTL: 5 * time.Second,
		MaxTTL: time.Hour,
		NegTTL: 30 * time.Second,
	}
}

// ResponseCache wraps TTLCache with the response-specific lookup/insert
// semantics the `cache` processor needs: clone-and-rewrite-id on hit,
// elapsed-time TTL decrement, and minimum-TTL-driven insertion.
type ResponseCache struct {
	cache *TTLCache[Key, dnsmsg.Packet]
	cfg   Config

	flightMu sync.Mutex
	flight   map[Key]*call
}

type call struct {
	done chan struct{}
	resp dnsmsg.Packet
	ok   bool
}

// New builds a ResponseCache per cfg.
func New(cfg Config) *ResponseCache {
	return &ResponseCache{
		cache:  NewTTLCache[Key, dnsmsg.Packet](cfg.Size),
		cfg:    cfg,
		flight: make(map[Key]*call),
	}
}

// Lookup returns a cache hit for q, with answer TTLs decremented by the
// elapsed time since insertion (floored at 0) and the id rewritten to
// reqID, ready to install into the response.
func (rc *ResponseCache) Lookup(q dnsmsg.Question, reqID uint16) (dnsmsg.Packet, bool) {
	key := KeyFor(q)
	cached, cachedAt, ok := rc.cache.Get(key)
	if !ok {
		return dnsmsg.Packet{}, false
	}

	elapsed := time.Since(cachedAt)
	resp := cached
	resp.Answers = make([]dnsmsg.Record, len(cached.Answers))
	for i, rr := range cached.Answers {
		resp.Answers[i] = decrementTTL(rr, elapsed)
	}
	resp.Header.ID = reqID
	return resp, true
}

func decrementTTL(rr dnsmsg.Record, elapsed time.Duration) dnsmsg.Record {
	delta := uint32(elapsed / time.Second)
	if delta >= rr.TTL {
		rr.TTL = 0
	} else {
		rr.TTL -= delta
	}
	return rr
}

// Insert stores resp for q if it qualifies for caching: rcode NOERROR or
// NXDOMAIN. Positive responses need at least one answer record; their TTL
// is the minimum answer TTL clamped to [MinTTL, MaxTTL]. NXDOMAIN responses
// get the fixed NegTTL.
func (rc *ResponseCache) Insert(q dnsmsg.Question, resp dnsmsg.Packet) {
	rcode := resp.Header.RCode()
	if !rcode.Acceptable() {
		return
	}

	var ttl time.Duration
	switch {
	case rcode == dnsmsg.RCodeNXDomain:
		ttl = rc.cfg.NegTTL
	case len(resp.Answers) > 0:
		ttl = clampTTL(minAnswerTTL(resp.Answers), rc.cfg.MinTTL, rc.cfg.MaxTTL)
	default:
		return // NOERROR with no answers: nothing worth caching
	}

	rc.cache.Set(KeyFor(q), resp, ttl)
	if rc.cfg.Logger != nil {
		rc.cfg.Logger.Debug("cache insert", "qname", q.Name, "rcode", rcode, "ttl", ttl)
	}
}

func minAnswerTTL(answers []dnsmsg.Record) time.Duration {
	min := answers[0].TTL
	for _, rr := range answers[1:] {
		if rr.TTL < min {
			min = rr.TTL
		}
	}
	return time.Duration(min) * time.Second
}

func clampTTL(ttl, min, max time.Duration) time.Duration {
	if ttl < min {
		return min
	}
	if max > 0 && ttl > max {
		return max
	}
	return ttl
}

// Stats returns cumulative hit/miss counters.
func (rc *ResponseCache) Stats() (hits, misses int) {
	return rc.cache.Stats()
}

// Len reports the current entry count.
func (rc *ResponseCache) Len() int {
	return rc.cache.Len()
}

// JoinOrLead implements optional single-flight dedup: the first caller for a
// miss on key becomes the leader and runs fn; concurrent callers for the
// same key block on its result instead of issuing their own upstream query.
// Grounded on the teacher's inflightCall pattern, generalized from a
// byte-slice cache to Packet.
func (rc *ResponseCache) JoinOrLead(key Key, fn func() (dnsmsg.Packet, bool)) (dnsmsg.Packet, bool) {
	if !rc.cfg.SingleFlight {
		return fn()
	}

	rc.flightMu.Lock()
	if c, ok := rc.flight[key]; ok {
		rc.flightMu.Unlock()
		<-c.done
		return c.resp, c.ok
	}
	c := &call{done: make(chan struct{})}
	rc.flight[key] = c
	rc.flightMu.Unlock()

	c.resp, c.ok = fn()
	close(c.done)

	rc.flightMu.Lock()
	delete(rc.flight, key)
	rc.flightMu.Unlock()

	return c.resp, c.ok
}
