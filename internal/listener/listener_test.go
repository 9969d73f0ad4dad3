package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/processors"
	"github.com/tigerzhang/clean-dns/internal/stats"
)

func buildQuery(t *testing.T, id uint16, name string) []byte {
	t.Helper()
	pkt := dnsmsg.Packet{
		Header:   dnsmsg.Header{ID: id, Flags: dnsmsg.RDFlag},
		Question: dnsmsg.Question{Name: name, Type: uint16(dnsmsg.TypeA), Class: uint16(dnsmsg.ClassIN)},
	}
	b, err := pkt.Marshal()
	require.NoError(t, err)
	return b
}

func TestListenerHandleServesHostsAnswer(t *testing.T) {
	hosts := &processors.Hosts{
		Entries: map[string][]net.IP{
			"example.com.": {net.ParseIP("203.0.113.7")},
		},
		TTL: 60,
	}
	graph := &plugin.Graph{Entry: hosts, Tags: map[string]plugin.Processor{"hosts": hosts}}

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer clientConn.Close()

	l := &Listener{Graph: graph, Stats: stats.New()}

	req := buildQuery(t, 0x1234, "example.com.")
	serverAddr := serverConn.LocalAddr().(*net.UDPAddr)
	clientAddr := clientConn.LocalAddr().(*net.UDPAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		n, peer, err := serverConn.ReadFromUDP(buf)
		require.NoError(t, err)
		l.handle(context.Background(), serverConn, peer, buf[:n])
	}()

	_, err = clientConn.WriteToUDP(req, serverAddr)
	require.NoError(t, err)

	<-done

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, _, err := clientConn.ReadFromUDP(buf)
	require.NoError(t, err)

	resp, err := dnsmsg.ParsePacket(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), resp.Header.ID)
	require.True(t, resp.Header.QR())
	require.Equal(t, dnsmsg.RCodeNoError, resp.Header.RCode())
	require.Len(t, resp.Answers, 1)
	require.NotEqual(t, clientAddr, serverAddr)
}

func TestListenerHandleMalformedDatagramDropped(t *testing.T) {
	hosts := &processors.Hosts{Entries: map[string][]net.IP{}}
	graph := &plugin.Graph{Entry: hosts, Tags: map[string]plugin.Processor{"hosts": hosts}}

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer clientConn.Close()

	l := &Listener{Graph: graph, Stats: stats.New()}
	peer := clientConn.LocalAddr().(*net.UDPAddr)

	l.handle(context.Background(), serverConn, peer, []byte{0x01, 0x02})

	_ = clientConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 64)
	_, _, err = clientConn.ReadFromUDP(buf)
	require.Error(t, err, "malformed datagrams produce no reply")
}

func TestListenerHandleNoResponseSendsServFail(t *testing.T) {
	hosts := &processors.Hosts{Entries: map[string][]net.IP{}}
	graph := &plugin.Graph{Entry: hosts, Tags: map[string]plugin.Processor{"hosts": hosts}}

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer clientConn.Close()

	l := &Listener{Graph: graph, Stats: stats.New()}
	peer := clientConn.LocalAddr().(*net.UDPAddr)

	req := buildQuery(t, 0xABCD, "nowhere.example.")
	l.handle(context.Background(), serverConn, peer, req)

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, _, err := clientConn.ReadFromUDP(buf)
	require.NoError(t, err)

	resp, err := dnsmsg.ParsePacket(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint16(0xABCD), resp.Header.ID)
	require.Equal(t, dnsmsg.RCodeServFail, resp.Header.RCode())
}
