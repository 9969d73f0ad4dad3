package processors

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/dnscache"
	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

type countingExec struct {
	calls int
	ip    net.IP
}

func (e *countingExec) Run(_ context.Context, pc *plugin.Context) error {
	e.calls++
	rr, err := dnsmsg.NewA(pc.Question.Name, 60, e.ip)
	if err != nil {
		return err
	}
	pc.Response = &dnsmsg.Packet{
		Header:   dnsmsg.Header{Flags: dnsmsg.QRFlag},
		Question: pc.Question,
		Answers:  []dnsmsg.Record{rr},
	}
	pc.Abort = true
	return nil
}

func newTestCache(exec plugin.Processor) *Cache {
	return &Cache{Store: dnscache.New(dnscache.DefaultConfig(8)), Exec: exec}
}

func TestCacheMissThenHit(t *testing.T) {
	exec := &countingExec{ip: net.ParseIP("203.0.113.1")}
	c := newTestCache(exec)
	q := dnsmsg.Question{Name: "example.com.", Type: uint16(dnsmsg.TypeA), Class: uint16(dnsmsg.ClassIN)}

	pc := plugin.NewContext(q, nil, noopStats{})
	require.NoError(t, c.Run(context.Background(), pc))
	require.Equal(t, 1, exec.calls)
	require.NotNil(t, pc.Response)
	require.True(t, pc.Abort)

	pc2 := plugin.NewContext(q, nil, noopStats{})
	require.NoError(t, c.Run(context.Background(), pc2))
	require.Equal(t, 1, exec.calls, "second lookup should be served from cache, not re-exec")
	require.True(t, pc2.Abort)
}

type noopStats struct{}

func (noopStats) RecordRequest(string)              {}
func (noopStats) RecordResolution(string, []string) {}
func (noopStats) RecordCacheHit(string)             {}
