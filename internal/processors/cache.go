package processors

import (
	"context"

	"github.com/tigerzhang/clean-dns/internal/dnscache"
	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

// Cache wraps Exec with a response cache: a hit short-circuits Exec
// entirely, a miss runs Exec and inserts its result keyed by question.
type Cache struct {
	Store *dnscache.ResponseCache
	Exec  plugin.Processor
}

func (c *Cache) Run(ctx context.Context, pc *plugin.Context) error {
	// The id written here is a placeholder: the listener mirrors the
	// client's request id into the response right before sending, for
	// every response regardless of source.
	if hit, ok := c.Store.Lookup(pc.Question, 0); ok {
		pc.Response = &hit
		pc.Abort = true
		pc.Stats.RecordCacheHit(pc.Question.Name)
		return nil
	}

	// Concurrent misses on the same question join the first caller's
	// upstream work instead of each issuing their own when single-flight is
	// configured; otherwise JoinOrLead is a no-op pass-through.
	var runErr error
	resp, ok := c.Store.JoinOrLead(dnscache.KeyFor(pc.Question), func() (dnsmsg.Packet, bool) {
		if err := c.Exec.Run(ctx, pc); err != nil {
			runErr = err
			return dnsmsg.Packet{}, false
		}
		if pc.Response == nil {
			return dnsmsg.Packet{}, false
		}
		return *pc.Response, true
	})
	if runErr != nil {
		return runErr
	}
	if ok {
		pc.Response = &resp
		pc.Abort = true
		c.Store.Insert(pc.Question, resp)
	}
	return nil
}
