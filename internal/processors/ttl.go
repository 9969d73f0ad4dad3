package processors

import (
	"context"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

// TTLClamp clamps every answer-section record's TTL into [Min, Max].
// Authority/additional records are untouched; OPT is never modified even if
// it somehow ended up in the answer section.
type TTLClamp struct {
	Min uint32
	Max uint32 // 0 means unlimited
}

func (t TTLClamp) Run(_ context.Context, pc *plugin.Context) error {
	if pc.Response == nil {
		return nil
	}
	for i, rr := range pc.Response.Answers {
		if dnsmsg.RecordType(rr.Type) == dnsmsg.TypeOPT {
			continue
		}
		pc.Response.Answers[i].TTL = clamp(rr.TTL, t.Min, t.Max)
	}
	return nil
}

func clamp(ttl, min, max uint32) uint32 {
	if ttl < min {
		return min
	}
	if max > 0 && ttl > max {
		return max
	}
	return ttl
}
