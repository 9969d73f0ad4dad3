// Package resolverpool implements forward's concurrent upstream race:
// dispatch up to `concurrent` upstreams in parallel, the first acceptable
// response wins, the rest are cancelled.
package resolverpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/upstream"
)

// upstreamRecoveryDuration is how long a failed upstream is ordered behind
// healthy ones, grounded on the teacher's forwarding-resolver cooldown
// (internal/resolvers/forwarding_resolver.go). This only reorders dispatch
// among candidates when concurrent < len(upstreams); it never changes
// forward's documented race/cancel semantics.
const upstreamRecoveryDuration = time.Hour

// Pool dispatches races across a fixed set of upstreams, tracking recent
// failures so healthy upstreams are tried first.
type Pool struct {
	Upstreams  []upstream.Spec
	Concurrent int
	Logger     *slog.Logger

	mu       sync.Mutex
	failedAt map[string]time.Time
}

// NewPool builds a race pool. Concurrent defaults to len(upstreams) when
// unset or out of range. logger may be nil.
func NewPool(upstreams []upstream.Spec, concurrent int, logger *slog.Logger) *Pool {
	if concurrent <= 0 || concurrent > len(upstreams) {
		concurrent = len(upstreams)
	}
	return &Pool{
		Upstreams:  upstreams,
		Concurrent: concurrent,
		Logger:     logger,
		failedAt:   make(map[string]time.Time),
	}
}

type result struct {
	resp dnsmsg.Packet
	err  error
}

// Resolve races up to Concurrent upstreams (in health-sorted order) and
// returns the first acceptable response. If every dispatch fails or returns
// an unacceptable rcode, ok is false and forward must produce no response.
func (p *Pool) Resolve(ctx context.Context, query dnsmsg.Packet) (dnsmsg.Packet, bool) {
	candidates := p.orderedCandidates()
	if len(candidates) > p.Concurrent {
		candidates = candidates[:p.Concurrent]
	}
	if len(candidates) == 0 {
		return dnsmsg.Packet{}, false
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result, len(candidates))
	var wg sync.WaitGroup
	for _, spec := range candidates {
		wg.Add(1)
		go func(spec upstream.Spec) {
			defer wg.Done()
			resp, err := upstream.Resolve(raceCtx, spec, query)
			if err == nil {
				p.markHealthy(spec)
			} else {
				p.markFailed(spec)
				if p.Logger != nil {
					p.Logger.Debug("upstream dispatch failed", "upstream", spec.String(), "err", err)
				}
			}
			select {
			case results <- result{resp: resp, err: err}:
			case <-raceCtx.Done():
			}
		}(spec)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			continue
		}
		if !r.resp.Header.RCode().Acceptable() {
			continue
		}
		cancel() // stop remaining in-flight dispatches; they finish into the buffered channel, closed once all exit
		return r.resp, true
	}
	return dnsmsg.Packet{}, false
}

// orderedCandidates returns Upstreams with upstreams that failed recently
// moved to the back, so a healthy upstream is preferred when Concurrent
// truncates the candidate list.
func (p *Pool) orderedCandidates() []upstream.Spec {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := make([]upstream.Spec, 0, len(p.Upstreams))
	unhealthy := make([]upstream.Spec, 0)
	now := time.Now()
	for _, s := range p.Upstreams {
		if t, failed := p.failedAt[s.String()]; failed && now.Sub(t) < upstreamRecoveryDuration {
			unhealthy = append(unhealthy, s)
			continue
		}
		healthy = append(healthy, s)
	}
	return append(healthy, unhealthy...)
}

func (p *Pool) markFailed(s upstream.Spec) {
	p.mu.Lock()
	p.failedAt[s.String()] = time.Now()
	p.mu.Unlock()
}

func (p *Pool) markHealthy(s upstream.Spec) {
	p.mu.Lock()
	delete(p.failedAt, s.String())
	p.mu.Unlock()
}
