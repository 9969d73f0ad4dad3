// Package upstream implements the single-shot transports forward dispatches
// against: plain UDP, DNS-over-HTTPS, and the host's system resolver. Each
// transport sends exactly one query and returns exactly one response or an
// error; racing across upstreams is forward's job, and nothing retries.
package upstream

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/socks5"
)

// DefaultTimeout is the per-upstream deadline used when a Spec doesn't
// override it.
const DefaultTimeout = 5 * time.Second

// Kind selects the transport a Spec uses.
type Kind int

const (
	KindUDP Kind = iota
	KindDoH
	KindSystem
)

// Spec names one upstream resolver: a plain UDP address, a DoH URL, or the
// host's system resolver, plus an optional SOCKS5 endpoint for the
// non-system variants.
type Spec struct {
	Kind    Kind
	Addr    string // for KindUDP: host:port
	URL     string // for KindDoH: https://...
	SOCKS5  string // optional proxy address, host:port
	Timeout time.Duration
}

func (s Spec) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

// String identifies the spec for logging and health tracking.
func (s Spec) String() string {
	switch s.Kind {
	case KindUDP:
		return "udp:" + s.Addr
	case KindDoH:
		return "doh:" + s.URL
	default:
		return "system"
	}
}

// Resolve dispatches a single query through the transport s names and
// returns the decoded response packet.
func Resolve(ctx context.Context, s Spec, query dnsmsg.Packet) (dnsmsg.Packet, error) {
	switch s.Kind {
	case KindUDP:
		return resolveUDP(ctx, s, query)
	case KindDoH:
		return resolveDoH(ctx, s, query)
	case KindSystem:
		return resolveSystem(ctx, s, query)
	default:
		return dnsmsg.Packet{}, fmt.Errorf("upstream: unknown kind %d", s.Kind)
	}
}

func freshID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("upstream: generate transaction id: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func withFreshID(query dnsmsg.Packet) (dnsmsg.Packet, uint16, error) {
	id, err := freshID()
	if err != nil {
		return dnsmsg.Packet{}, 0, err
	}
	out := query
	out.Header.ID = id
	return out, id, nil
}

// resolveUDP sends the query as a single UDP datagram and waits for a
// matching reply, optionally through a SOCKS5 UDP ASSOCIATE tunnel.
// Truncated responses are returned as-is; retrying over TCP is not
// implemented.
func resolveUDP(ctx context.Context, s Spec, query dnsmsg.Packet) (dnsmsg.Packet, error) {
	out, id, err := withFreshID(query)
	if err != nil {
		return dnsmsg.Packet{}, err
	}
	wire, err := out.Marshal()
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: encode query: %w", err)
	}

	deadline := time.Now().Add(s.timeout())
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if s.SOCKS5 != "" {
		return resolveUDPViaSocks5(ctx, s, wire, id)
	}

	addr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: resolve %s: %w", s.Addr, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: dial %s: %w", s.Addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(wire); err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: send to %s: %w", s.Addr, err)
	}
	return readMatchingUDPResponse(ctx, conn, id)
}

type udpReader interface {
	Read(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

func readMatchingUDPResponse(ctx context.Context, conn udpReader, wantID uint16) (dnsmsg.Packet, error) {
	buf := make([]byte, 65535)
	for {
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		n, err := conn.Read(buf)
		if err != nil {
			return dnsmsg.Packet{}, fmt.Errorf("upstream: read response: %w", err)
		}
		resp, err := dnsmsg.ParsePacket(buf[:n])
		if err != nil {
			continue // malformed datagram from the wire; keep waiting until deadline
		}
		if resp.Header.ID != wantID {
			continue // stray reply or an off-path spoof attempt
		}
		return resp, nil
	}
}

func resolveUDPViaSocks5(ctx context.Context, s Spec, wire []byte, id uint16) (dnsmsg.Packet, error) {
	addr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: resolve %s: %w", s.Addr, err)
	}
	session, err := socks5.Associate(ctx, s.SOCKS5, addr)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: socks5 associate: %w", err)
	}
	defer session.Close()

	if _, err := session.WriteTo(wire); err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: send via socks5: %w", err)
	}
	return readMatchingUDPResponse(ctx, session, id)
}

// resolveDoH issues a DNS-over-HTTPS POST, optionally tunneled through
// SOCKS5 CONNECT.
func resolveDoH(ctx context.Context, s Spec, query dnsmsg.Packet) (dnsmsg.Packet, error) {
	out, id, err := withFreshID(query)
	if err != nil {
		return dnsmsg.Packet{}, err
	}
	wire, err := out.Marshal()
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: encode query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	client := dohClient(s)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(wire))
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: build DoH request: %w", err)
	}
	req.Header.Set("Content-Type", "application/dns-message")
	req.Header.Set("Accept", "application/dns-message")

	resp, err := client.Do(req)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: DoH request to %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: DoH %s returned status %d", s.URL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && ct != "application/dns-message" {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: DoH %s returned unexpected content-type %q", s.URL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 65535))
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: read DoH body: %w", err)
	}

	decoded, err := dnsmsg.ParsePacket(body)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: decode DoH response: %w", err)
	}
	decoded.Header.ID = id // DoH ignores id on the wire; preserved at the message level
	return decoded, nil
}

func dohClient(s Spec) *http.Client {
	transport := &http.Transport{}
	if s.SOCKS5 != "" {
		proxy := s.SOCKS5
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return socks5.Dial(ctx, proxy, addr)
		}
	}
	return &http.Client{Transport: transport}
}

// resolveSystem resolves A and AAAA records using the host's default
// resolver and assembles a synthetic response from the results.
func resolveSystem(ctx context.Context, s Spec, query dnsmsg.Packet) (dnsmsg.Packet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	name := query.Question.Name
	var resolver net.Resolver
	ips, err := resolver.LookupIP(ctx, lookupNetwork(query.Question.Type), name)
	if err != nil {
		return dnsmsg.Packet{}, fmt.Errorf("upstream: system resolve %s: %w", name, err)
	}

	const systemTTL = 60
	resp := dnsmsg.Packet{
		Header:   query.Header,
		Question: query.Question,
	}
	for _, ip := range ips {
		var rr dnsmsg.Record
		var err error
		if ip4 := ip.To4(); ip4 != nil && dnsmsg.RecordType(query.Question.Type) == dnsmsg.TypeA {
			rr, err = dnsmsg.NewA(name, systemTTL, ip)
		} else if ip.To4() == nil && dnsmsg.RecordType(query.Question.Type) == dnsmsg.TypeAAAA {
			rr, err = dnsmsg.NewAAAA(name, systemTTL, ip)
		} else {
			continue
		}
		if err != nil {
			return dnsmsg.Packet{}, err
		}
		resp.Answers = append(resp.Answers, rr)
	}
	return resp, nil
}

func lookupNetwork(qtype uint16) string {
	switch dnsmsg.RecordType(qtype) {
	case dnsmsg.TypeA:
		return "ip4"
	case dnsmsg.TypeAAAA:
		return "ip6"
	default:
		return "ip"
	}
}
