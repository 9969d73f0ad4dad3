package processors

import (
	"context"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/upstream"
)

// System resolves via the host's default resolver.
type System struct{}

func (System) Run(ctx context.Context, pc *plugin.Context) error {
	query := dnsmsg.Packet{
		Header:   dnsmsg.Header{},
		Question: pc.Question,
	}
	resp, err := upstream.Resolve(ctx, upstream.Spec{Kind: upstream.KindSystem}, query)
	if err != nil {
		return nil // transport error: no response, not fatal
	}
	resp.Header.Flags |= dnsmsg.QRFlag
	pc.Response = &resp
	pc.Abort = true
	return nil
}
