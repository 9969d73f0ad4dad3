package providers

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIpSetLongestPrefixMatch(t *testing.T) {
	s := &IpSet{}
	require.NoError(t, s.loadReader(strings.NewReader("10.0.0.0/8\n10.0.1.0/24\n# comment\n\n2001:db8::/32\n")))

	require.True(t, s.Contains(net.ParseIP("10.0.1.5")))
	require.True(t, s.Contains(net.ParseIP("10.0.2.5")))
	require.False(t, s.Contains(net.ParseIP("192.168.1.1")))
	require.True(t, s.Contains(net.ParseIP("2001:db8::1")))
}

func TestIpSetBareHostRoute(t *testing.T) {
	s := &IpSet{}
	require.NoError(t, s.loadReader(strings.NewReader("192.0.2.10\n")))

	require.True(t, s.Contains(net.ParseIP("192.0.2.10")))
	require.False(t, s.Contains(net.ParseIP("192.0.2.11")))
}
