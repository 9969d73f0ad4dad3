// Package socks5 implements the SOCKS5 client operations forward needs: TCP
// CONNECT for DoH upstreams, and UDP ASSOCIATE for UDP upstreams (RFC 1928).
// Authentication is always the "no auth required" method; the proxy is
// assumed to be a private tunnel endpoint, not a public relay.
package socks5

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	version5     = 0x05
	authNone     = 0x00
	cmdConnect   = 0x01
	cmdUDPAssoc  = 0x03
	atypIPv4     = 0x01
	atypDomain   = 0x03
	atypIPv6     = 0x04
	repSucceeded = 0x00
)

// ErrNoAcceptableAuth is returned when the proxy refuses the no-auth method.
// CleanDNS always offers no-auth and never falls back to username/password.
var ErrNoAcceptableAuth = errors.New("socks5: proxy requires authentication")

// Dial establishes a TCP CONNECT tunnel through the SOCKS5 proxy at
// proxyAddr to target, and returns the resulting connection. Used for DoH
// upstreams.
func Dial(ctx context.Context, proxyAddr, target string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5: dial proxy: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := handshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := requestConnect(conn, cmdConnect, target); err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

// Associate negotiates a UDP ASSOCIATE session against the proxy at
// proxyAddr, relaying datagrams destined for relayAddr, and returns a
// UDPSession holding the relay socket plus the control connection that must
// stay open for the session's lifetime.
//
// If the proxy does not support UDP ASSOCIATE, the enclosing upstream
// dispatch fails.
func Associate(ctx context.Context, proxyAddr string, relayAddr *net.UDPAddr) (*UDPSession, error) {
	var d net.Dialer
	ctrl, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5: dial proxy: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ctrl.SetDeadline(deadline)
	}

	if err := handshake(ctrl); err != nil {
		ctrl.Close()
		return nil, err
	}

	bindAddr, err := requestConnect(ctrl, cmdUDPAssoc, relayAddr.String())
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	_ = ctrl.SetDeadline(time.Time{})

	udpConn, err := net.DialUDP("udp", nil, bindAddr)
	if err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("socks5: dial relay %s: %w", bindAddr, err)
	}

	return &UDPSession{ctrl: ctrl, relay: udpConn, target: relayAddr}, nil
}

// UDPSession is an active UDP ASSOCIATE session. Close releases both the
// control TCP connection and the UDP relay socket.
type UDPSession struct {
	ctrl   net.Conn
	relay  *net.UDPConn
	target *net.UDPAddr
}

// Close tears down the session.
func (s *UDPSession) Close() error {
	relayErr := s.relay.Close()
	ctrlErr := s.ctrl.Close()
	if relayErr != nil {
		return relayErr
	}
	return ctrlErr
}

// WriteTo sends payload to the session's target address, wrapped in the
// SOCKS5 UDP request header (RFC 1928 §7).
func (s *UDPSession) WriteTo(payload []byte) (int, error) {
	header, err := udpRequestHeader(s.target)
	if err != nil {
		return 0, err
	}
	return s.relay.Write(append(header, payload...))
}

// SetReadDeadline forwards to the underlying relay socket.
func (s *UDPSession) SetReadDeadline(t time.Time) error { return s.relay.SetReadDeadline(t) }

// Read reads one relayed datagram and strips the SOCKS5 UDP header,
// returning the inner payload.
func (s *UDPSession) Read(buf []byte) (int, error) {
	raw := make([]byte, len(buf)+32)
	n, err := s.relay.Read(raw)
	if err != nil {
		return 0, err
	}
	payload, err := stripUDPHeader(raw[:n])
	if err != nil {
		return 0, err
	}
	copy(buf, payload)
	return len(payload), nil
}

func handshake(conn net.Conn) error {
	if _, err := conn.Write([]byte{version5, 1, authNone}); err != nil {
		return fmt.Errorf("socks5: send greeting: %w", err)
	}
	reply := make([]byte, 2)
	if _, err := readFull(conn, reply); err != nil {
		return fmt.Errorf("socks5: read greeting reply: %w", err)
	}
	if reply[0] != version5 {
		return fmt.Errorf("socks5: unexpected server version %d", reply[0])
	}
	if reply[1] != authNone {
		return ErrNoAcceptableAuth
	}
	return nil
}

// requestConnect sends a CONNECT or UDP ASSOCIATE request for target and
// returns the BND.ADDR/BND.PORT the proxy reports back.
func requestConnect(conn net.Conn, cmd byte, target string) (*net.UDPAddr, error) {
	req, err := encodeRequest(cmd, target)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("socks5: send request: %w", err)
	}

	hdr := make([]byte, 4)
	if _, err := readFull(conn, hdr); err != nil {
		return nil, fmt.Errorf("socks5: read reply header: %w", err)
	}
	if hdr[0] != version5 {
		return nil, fmt.Errorf("socks5: unexpected reply version %d", hdr[0])
	}
	if hdr[1] != repSucceeded {
		return nil, fmt.Errorf("socks5: request failed, reply code %d", hdr[1])
	}

	addr, port, err := readBindAddr(conn, hdr[3])
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: addr, Port: port}, nil
}

func encodeRequest(cmd byte, target string) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, fmt.Errorf("socks5: bad target %q: %w", target, err)
	}
	var port uint16
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return nil, fmt.Errorf("socks5: bad port %q: %w", portStr, err)
	}

	req := []byte{version5, cmd, 0x00}
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			req = append(req, atypIPv4)
			req = append(req, ip4...)
		} else {
			req = append(req, atypIPv6)
			req = append(req, ip.To16()...)
		}
	} else {
		if len(host) > 255 {
			return nil, fmt.Errorf("socks5: domain name too long: %s", host)
		}
		req = append(req, atypDomain, byte(len(host)))
		req = append(req, host...)
	}
	portBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(portBytes, port)
	return append(req, portBytes...), nil
}

func readBindAddr(conn net.Conn, atyp byte) (net.IP, int, error) {
	switch atyp {
	case atypIPv4:
		b := make([]byte, 4+2)
		if _, err := readFull(conn, b); err != nil {
			return nil, 0, fmt.Errorf("socks5: read IPv4 bind addr: %w", err)
		}
		return net.IP(b[:4]), int(binary.BigEndian.Uint16(b[4:6])), nil
	case atypIPv6:
		b := make([]byte, 16+2)
		if _, err := readFull(conn, b); err != nil {
			return nil, 0, fmt.Errorf("socks5: read IPv6 bind addr: %w", err)
		}
		return net.IP(b[:16]), int(binary.BigEndian.Uint16(b[16:18])), nil
	case atypDomain:
		lenB := make([]byte, 1)
		if _, err := readFull(conn, lenB); err != nil {
			return nil, 0, fmt.Errorf("socks5: read bind domain length: %w", err)
		}
		b := make([]byte, int(lenB[0])+2)
		if _, err := readFull(conn, b); err != nil {
			return nil, 0, fmt.Errorf("socks5: read bind domain: %w", err)
		}
		host := string(b[:len(b)-2])
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, 0, fmt.Errorf("socks5: resolve bind domain %q: %w", host, err)
		}
		return ips[0], int(binary.BigEndian.Uint16(b[len(b)-2:])), nil
	default:
		return nil, 0, fmt.Errorf("socks5: unsupported bind address type %d", atyp)
	}
}

func udpRequestHeader(dst *net.UDPAddr) ([]byte, error) {
	header := []byte{0x00, 0x00, 0x00}
	if ip4 := dst.IP.To4(); ip4 != nil {
		header = append(header, atypIPv4)
		header = append(header, ip4...)
	} else if ip16 := dst.IP.To16(); ip16 != nil {
		header = append(header, atypIPv6)
		header = append(header, ip16...)
	} else {
		return nil, fmt.Errorf("socks5: invalid UDP target address")
	}
	port := make([]byte, 2)
	binary.BigEndian.PutUint16(port, uint16(dst.Port))
	return append(header, port...), nil
}

func stripUDPHeader(b []byte) ([]byte, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("socks5: UDP datagram too short")
	}
	if b[2] != 0x00 {
		return nil, fmt.Errorf("socks5: fragmented UDP datagrams unsupported")
	}
	atyp := b[3]
	switch atyp {
	case atypIPv4:
		if len(b) < 4+4+2 {
			return nil, fmt.Errorf("socks5: truncated IPv4 UDP header")
		}
		return b[4+4+2:], nil
	case atypIPv6:
		if len(b) < 4+16+2 {
			return nil, fmt.Errorf("socks5: truncated IPv6 UDP header")
		}
		return b[4+16+2:], nil
	case atypDomain:
		if len(b) < 5 {
			return nil, fmt.Errorf("socks5: truncated domain UDP header")
		}
		dlen := int(b[4])
		if len(b) < 5+dlen+2 {
			return nil, fmt.Errorf("socks5: truncated domain UDP header")
		}
		return b[5+dlen+2:], nil
	default:
		return nil, fmt.Errorf("socks5: unsupported UDP address type %d", atyp)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
