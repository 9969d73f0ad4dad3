package dnscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
)

func question() dnsmsg.Question {
	return dnsmsg.Question{Name: "example.com.", Type: uint16(dnsmsg.TypeA), Class: uint16(dnsmsg.ClassIN)}
}

func TestResponseCacheInsertAndLookup(t *testing.T) {
	rc := New(DefaultConfig(10))
	q := question()
	rr, err := dnsmsg.NewA(q.Name, 100, []byte{93, 184, 216, 34})
	require.NoError(t, err)
	resp := dnsmsg.Packet{
		Header:   dnsmsg.Header{ID: 0}.WithRCode(dnsmsg.RCodeNoError),
		Question: q,
		Answers:  []dnsmsg.Record{rr},
	}

	rc.Insert(q, resp)
	hit, ok := rc.Lookup(q, 42)
	require.True(t, ok)
	require.Equal(t, uint16(42), hit.Header.ID)
	require.Len(t, hit.Answers, 1)
	require.LessOrEqual(t, hit.Answers[0].TTL, uint32(100))
}

func TestResponseCacheMinMaxTTLClamp(t *testing.T) {
	cfg := DefaultConfig(10)
	cfg.MinTTL = 10 * time.Second
	cfg.MaxTTL = 20 * time.Second
	rc := New(cfg)
	q := question()
	rr, err := dnsmsg.NewA(q.Name, 2, []byte{1, 2, 3, 4}) // below MinTTL
	require.NoError(t, err)
	resp := dnsmsg.Packet{
		Header:   dnsmsg.Header{}.WithRCode(dnsmsg.RCodeNoError),
		Question: q,
		Answers:  []dnsmsg.Record{rr},
	}
	rc.Insert(q, resp)

	hit, ok := rc.Lookup(q, 1)
	require.True(t, ok)
	// MinTTL raises how long the entry lives (10s), not the record's own TTL.
	require.Equal(t, uint32(2), hit.Answers[0].TTL)
}

func TestResponseCacheNXDomainUsesNegativeTTL(t *testing.T) {
	rc := New(DefaultConfig(10))
	q := question()
	resp := dnsmsg.Packet{
		Header:   dnsmsg.Header{}.WithRCode(dnsmsg.RCodeNXDomain),
		Question: q,
	}
	rc.Insert(q, resp)

	_, ok := rc.Lookup(q, 1)
	require.True(t, ok)
}

func TestResponseCacheRejectsServFail(t *testing.T) {
	rc := New(DefaultConfig(10))
	q := question()
	resp := dnsmsg.Packet{
		Header:   dnsmsg.Header{}.WithRCode(dnsmsg.RCodeServFail),
		Question: q,
	}
	rc.Insert(q, resp)

	_, ok := rc.Lookup(q, 1)
	require.False(t, ok)
}

func TestResponseCacheLRUEviction(t *testing.T) {
	rc := New(DefaultConfig(2))
	for i, name := range []string{"a.com.", "b.com.", "c.com."} {
		q := dnsmsg.Question{Name: name, Type: uint16(dnsmsg.TypeA), Class: uint16(dnsmsg.ClassIN)}
		rr, err := dnsmsg.NewA(name, 100, []byte{byte(i), 0, 0, 1})
		require.NoError(t, err)
		resp := dnsmsg.Packet{Header: dnsmsg.Header{}.WithRCode(dnsmsg.RCodeNoError), Question: q, Answers: []dnsmsg.Record{rr}}
		rc.Insert(q, resp)
	}

	_, ok := rc.Lookup(dnsmsg.Question{Name: "a.com.", Type: uint16(dnsmsg.TypeA), Class: uint16(dnsmsg.ClassIN)}, 1)
	require.False(t, ok, "oldest entry should have been evicted")

	_, ok = rc.Lookup(dnsmsg.Question{Name: "c.com.", Type: uint16(dnsmsg.TypeA), Class: uint16(dnsmsg.ClassIN)}, 1)
	require.True(t, ok)
}
