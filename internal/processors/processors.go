// Package processors implements every plugin type the graph can wire:
// sequence, if, return, reject, delay, matcher, hosts, ttl, system, forward,
// cache, and fallback.
package processors

import (
	"context"
	"time"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

// Sequence runs children in order, stopping as soon as ctx.Abort is set.
// The abort flag is left set on exit; it's the caller's job to check it.
type Sequence struct {
	Exec []plugin.Processor
}

func (s *Sequence) Run(ctx context.Context, pc *plugin.Context) error {
	for _, child := range s.Exec {
		if pc.Abort {
			return nil
		}
		if err := child.Run(ctx, pc); err != nil {
			return err
		}
	}
	return nil
}

// If evaluates If as a Condition and runs Exec or ElseExec accordingly.
// Graph construction guarantees If implements Condition.
type If struct {
	If       plugin.Condition
	Exec     plugin.Processor
	ElseExec plugin.Processor
}

func (n *If) Run(ctx context.Context, pc *plugin.Context) error {
	ok, err := n.If.Check(ctx, pc)
	if err != nil {
		return err
	}
	if ok {
		if n.Exec != nil {
			return n.Exec.Run(ctx, pc)
		}
		return nil
	}
	if n.ElseExec != nil {
		return n.ElseExec.Run(ctx, pc)
	}
	return nil
}

// Return unconditionally aborts the sequence it's placed in.
type Return struct{}

func (Return) Run(_ context.Context, pc *plugin.Context) error {
	pc.Abort = true
	return nil
}

// Reject writes a synthetic rejection response with the configured rcode,
// defaulting to REFUSED.
type Reject struct {
	RCode dnsmsg.RCode
}

func (r Reject) Run(_ context.Context, pc *plugin.Context) error {
	resp := dnsmsg.Packet{
		Header:   dnsmsg.Header{ID: 0, Flags: dnsmsg.QRFlag}.WithRCode(r.RCode),
		Question: pc.Question,
	}
	pc.Response = &resp
	pc.Abort = true
	return nil
}

// Delay suspends for a fixed duration, cancellable via ctx.
type Delay struct {
	Duration time.Duration
}

func (d Delay) Run(ctx context.Context, _ *plugin.Context) error {
	t := time.NewTimer(d.Duration)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
