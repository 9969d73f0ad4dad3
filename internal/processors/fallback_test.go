package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

type fixedResponse struct {
	rcode dnsmsg.RCode
	ran   *bool
}

func (f fixedResponse) Run(_ context.Context, pc *plugin.Context) error {
	if f.ran != nil {
		*f.ran = true
	}
	pc.Response = &dnsmsg.Packet{
		Header:   dnsmsg.Header{Flags: dnsmsg.QRFlag}.WithRCode(f.rcode),
		Question: pc.Question,
	}
	return nil
}

type noResponse struct{ ran *bool }

func (n noResponse) Run(_ context.Context, _ *plugin.Context) error {
	if n.ran != nil {
		*n.ran = true
	}
	return nil
}

func TestFallbackUsesPrimaryWhenAcceptable(t *testing.T) {
	var secondaryRan bool
	f := &Fallback{
		Primary:   fixedResponse{rcode: dnsmsg.RCodeNoError},
		Secondary: noResponse{ran: &secondaryRan},
	}
	pc := plugin.NewContext(dnsmsg.Question{Name: "example.com."}, nil, noopStats{})
	require.NoError(t, f.Run(context.Background(), pc))
	require.False(t, secondaryRan)
	require.Equal(t, dnsmsg.RCodeNoError, pc.Response.Header.RCode())
}

func TestFallbackFallsBackOnUnacceptableRCode(t *testing.T) {
	var secondaryRan bool
	f := &Fallback{
		Primary:   fixedResponse{rcode: dnsmsg.RCodeServFail},
		Secondary: fixedResponse{rcode: dnsmsg.RCodeNoError, ran: &secondaryRan},
	}
	pc := plugin.NewContext(dnsmsg.Question{Name: "example.com."}, nil, noopStats{})
	require.NoError(t, f.Run(context.Background(), pc))
	require.True(t, secondaryRan)
	require.Equal(t, dnsmsg.RCodeNoError, pc.Response.Header.RCode())
}

func TestFallbackFallsBackOnNoResponse(t *testing.T) {
	var secondaryRan bool
	f := &Fallback{
		Primary:   noResponse{},
		Secondary: fixedResponse{rcode: dnsmsg.RCodeNoError, ran: &secondaryRan},
	}
	pc := plugin.NewContext(dnsmsg.Question{Name: "example.com."}, nil, noopStats{})
	require.NoError(t, f.Run(context.Background(), pc))
	require.True(t, secondaryRan)
	require.NotNil(t, pc.Response)
}
