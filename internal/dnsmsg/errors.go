// Package dnsmsg implements the RFC 1035 message model CleanDNS routes:
// header, question, record sections, and a wire codec for the record types
// the router actually needs to parse and synthesize.
package dnsmsg

import "errors"

// ErrMalformed marks a wire-decode failure. Callers that hit it while
// decoding a client datagram drop the packet silently rather than
// synthesizing an error response.
var ErrMalformed = errors.New("dnsmsg: malformed message")
