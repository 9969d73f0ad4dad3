package processors

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

func TestMatcherDomainSuffixMatch(t *testing.T) {
	m := &Matcher{Domain: []DomainPattern{{Literal: "example.com"}}}
	cases := []struct {
		name string
		want bool
	}{
		{"example.com.", true},
		{"www.example.com.", true},
		{"notexample.com.", false},
		{"example.org.", false},
	}
	for _, tc := range cases {
		pc := plugin.NewContext(dnsmsg.Question{Name: tc.name}, nil, noopStats{})
		ok, err := m.Check(context.Background(), pc)
		require.NoError(t, err)
		require.Equal(t, tc.want, ok, tc.name)
	}
}

func TestMatcherClientIPDimension(t *testing.T) {
	_, cidr, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	m := &Matcher{ClientIP: []IPPattern{{CIDR: cidr}}}

	pc := plugin.NewContext(dnsmsg.Question{Name: "example.com."}, net.ParseIP("10.1.2.3"), noopStats{})
	ok, err := m.Check(context.Background(), pc)
	require.NoError(t, err)
	require.True(t, ok)

	pc2 := plugin.NewContext(dnsmsg.Question{Name: "example.com."}, net.ParseIP("8.8.8.8"), noopStats{})
	ok, err = m.Check(context.Background(), pc2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatcherEmptyDimensionsAlwaysMatch(t *testing.T) {
	m := &Matcher{}
	pc := plugin.NewContext(dnsmsg.Question{Name: "anything."}, nil, noopStats{})
	ok, err := m.Check(context.Background(), pc)
	require.NoError(t, err)
	require.True(t, ok)
}
