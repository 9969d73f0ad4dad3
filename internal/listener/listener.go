// Package listener implements the UDP front door: for each datagram, decode
// the request, build a plugin.Context, run it through the entry processor,
// and reply. It spawns one goroutine per datagram rather than dispatching
// through a fixed worker pool, so in-flight request handling is bounded only
// by OS resources, not a configured worker count. It keeps the
// SO_REUSEPORT multi-socket fan-out and large socket buffers a
// high-throughput UDP receiver needs to spread load across cores.
package listener

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
	"github.com/tigerzhang/clean-dns/internal/stats"
)

const (
	socketRecvBufferSize = 4 * 1024 * 1024
	socketSendBufferSize = 4 * 1024 * 1024
	maxUDPMessageSize    = 4096
)

// Listener runs the DNS request loop against a plugin.Graph.
type Listener struct {
	Logger *slog.Logger
	Graph  *plugin.Graph
	Stats  *stats.Aggregator

	conns []*net.UDPConn
	wg    sync.WaitGroup
}

// Run opens one SO_REUSEPORT UDP socket per CPU core at addr and serves
// until ctx is cancelled or a socket fails to open.
func (l *Listener) Run(ctx context.Context, addr string) error {
	socketCount := runtime.NumCPU()
	for range socketCount {
		conn, err := listenReusePort(addr)
		if err != nil {
			for _, c := range l.conns {
				_ = c.Close()
			}
			return err
		}
		_ = conn.SetReadBuffer(socketRecvBufferSize)
		_ = conn.SetWriteBuffer(socketSendBufferSize)
		l.conns = append(l.conns, conn)

		c := conn
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.recvLoop(ctx, c)
		}()
	}

	<-ctx.Done()
	return l.stop(5 * time.Second)
}

func (l *Listener) stop(timeout time.Duration) error {
	for _, c := range l.conns {
		_ = c.Close()
	}
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("listener: timeout waiting for handlers to exit")
	}
}

// recvLoop reads datagrams off one socket and spawns a handler goroutine
// per datagram — no worker pool, no drop-under-load.
func (l *Listener) recvLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, maxUDPMessageSize)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		msg := make([]byte, n)
		copy(msg, buf[:n])
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handle(ctx, conn, peer, msg)
		}()
	}
}

// handle decodes, resolves, and replies to a single datagram.
func (l *Listener) handle(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, msg []byte) {
	req, err := dnsmsg.ParsePacket(msg)
	if err != nil {
		// Malformed datagrams are dropped silently; there's no valid ID to
		// reply with.
		return
	}

	pc := plugin.NewContext(req.Question, peer.IP, l.Stats)
	l.Stats.RecordRequest(req.Question.Name)

	if err := l.Graph.Run(ctx, pc); err != nil {
		if l.Logger != nil {
			l.Logger.ErrorContext(ctx, "plugin graph error", "qname", req.Question.Name, "err", err)
		}
		l.reply(conn, peer, dnsmsg.Error(req, dnsmsg.RCodeServFail))
		return
	}

	if pc.Response == nil {
		l.reply(conn, peer, dnsmsg.Error(req, dnsmsg.RCodeServFail))
		return
	}

	resp := *pc.Response
	resp.Header.ID = req.Header.ID
	resp.Header.Flags |= dnsmsg.QRFlag
	resp.Header.Flags &^= dnsmsg.AAFlag | dnsmsg.TCFlag
	resp.Question = req.Question

	recordResolution(l.Stats, req.Question, resp)
	l.reply(conn, peer, resp)
}

func (l *Listener) reply(conn *net.UDPConn, peer *net.UDPAddr, p dnsmsg.Packet) {
	out, err := p.Marshal()
	if err != nil {
		return
	}
	_, _ = conn.WriteToUDP(out, peer)
}

// recordResolution feeds any A/AAAA answers back into stats.
func recordResolution(agg *stats.Aggregator, q dnsmsg.Question, resp dnsmsg.Packet) {
	var ips []string
	for _, rr := range resp.Answers {
		switch dnsmsg.RecordType(rr.Type) {
		case dnsmsg.TypeA, dnsmsg.TypeAAAA:
			if b, ok := rr.Data.([]byte); ok {
				ips = append(ips, net.IP(b).String())
			}
		}
	}
	if len(ips) > 0 {
		agg.RecordResolution(q.Name, ips)
	}
}

// listenReusePort opens a UDP socket with SO_REUSEPORT set, letting the
// kernel load-balance datagrams across one socket per core (grounded on
// the teacher's internal/server/udp_server.go listenReusePort).
func listenReusePort(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", udpAddr.String())
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
