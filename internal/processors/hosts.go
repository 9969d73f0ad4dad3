package processors

import (
	"context"
	"net"
	"strings"

	"github.com/tigerzhang/clean-dns/internal/dnsmsg"
	"github.com/tigerzhang/clean-dns/internal/plugin"
)

// defaultHostsTTL is the fixed TTL applied to synthetic hosts answers.
const defaultHostsTTL = 3600

// Hosts answers A/AAAA queries from a static name -> addresses table.
type Hosts struct {
	Entries map[string][]net.IP
	TTL     uint32
}

func (h *Hosts) Run(_ context.Context, pc *plugin.Context) error {
	ttl := h.TTL
	if ttl == 0 {
		ttl = defaultHostsTTL
	}

	name := strings.ToLower(pc.Question.Name)
	ips, ok := h.Entries[name]
	if !ok {
		return nil
	}

	qtype := dnsmsg.RecordType(pc.Question.Type)
	var answers []dnsmsg.Record
	for _, ip := range ips {
		switch {
		case qtype == dnsmsg.TypeA && ip.To4() != nil:
			rr, err := dnsmsg.NewA(name, ttl, ip)
			if err != nil {
				return err
			}
			answers = append(answers, rr)
		case qtype == dnsmsg.TypeAAAA && ip.To4() == nil:
			rr, err := dnsmsg.NewAAAA(name, ttl, ip)
			if err != nil {
				return err
			}
			answers = append(answers, rr)
		}
	}
	if len(answers) == 0 {
		return nil // qtype not aligned with any configured address family: no-op
	}

	resp := dnsmsg.Packet{
		Header:   dnsmsg.Header{Flags: dnsmsg.QRFlag}.WithRCode(dnsmsg.RCodeNoError),
		Question: pc.Question,
		Answers:  answers,
	}
	pc.Response = &resp
	pc.Abort = true
	return nil
}
