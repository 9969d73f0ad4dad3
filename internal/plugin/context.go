// Package plugin defines the runtime types the processor graph is built
// from: the per-request Context, the Processor/Condition capabilities, and
// the PluginGraph a built graph resolves down to.
package plugin

import (
	"net"
	"time"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
)

// StatsRecorder is the narrow view of the stats aggregator processors need.
// Defined here (not imported from internal/stats) to avoid a dependency
// cycle: internal/stats only needs to be visible to callers of plugin, not
// the other way around.
type StatsRecorder interface {
	RecordRequest(qname string)
	RecordResolution(qname string, ips []string)
	RecordCacheHit(qname string)
}

// Context is the per-request state threaded through a processor invocation:
// the question, client address, response built so far, an abort flag, a
// stats handle, and the time the request started. It is shared by all
// descendant tasks of one request; forward and fallback join their children
// before mutating it further.
type Context struct {
	Question   dnsmsg.Question
	ClientAddr net.IP
	Response   *dnsmsg.Packet
	Abort      bool
	Stats      StatsRecorder
	StartedAt  time.Time
}

// NewContext builds the initial Context for an incoming request.
func NewContext(q dnsmsg.Question, clientAddr net.IP, stats StatsRecorder) *Context {
	return &Context{
		Question:   q,
		ClientAddr: clientAddr,
		Stats:      stats,
		StartedAt:  time.Now(),
	}
}

// Reset clears Response and Abort, the state fallback restores before
// running its secondary branch.
func (c *Context) Reset() {
	c.Response = nil
	c.Abort = false
}
