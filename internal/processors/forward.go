package processors

import (
	"context"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/resolverpool"
)

// Forward races its upstream pool and installs the winning response. On
// total failure it leaves ctx.Response/ctx.Abort untouched, letting a
// sibling processor in the same sequence take over.
type Forward struct {
	Pool *resolverpool.Pool
}

func (f *Forward) Run(ctx context.Context, pc *plugin.Context) error {
	query := dnsmsg.Packet{
		Header:   dnsmsg.Header{},
		Question: pc.Question,
	}
	resp, ok := f.Pool.Resolve(ctx, query)
	if !ok {
		return nil
	}
	resp.Header.Flags |= dnsmsg.QRFlag
	pc.Response = &resp
	pc.Abort = true
	return nil
}
