package dnsmsg

import "fmt"

// Packet is the full message CleanDNS exchanges with clients and upstreams:
// a header plus the four sections. CleanDNS only ever handles single-question
// messages, the overwhelmingly common case in practice; ParsePacket rejects
// anything else rather than carrying multi-question plumbing nothing sends.
type Packet struct {
	Header      Header
	Question    Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// ParsePacket decodes a complete wire-format DNS message. It is bounded by
// MaxQuestions/MaxRRPerSection so a corrupt or hostile count field cannot
// force a large allocation before the data backing it is verified to exist.
func ParsePacket(msg []byte) (Packet, error) {
	off := 0
	hdr, err := ParseHeader(msg, &off)
	if err != nil {
		return Packet{}, err
	}
	if hdr.QDCount != 1 {
		return Packet{}, fmt.Errorf("%w: expected exactly one question, got %d", ErrMalformed, hdr.QDCount)
	}
	if int(hdr.QDCount) > MaxQuestions || int(hdr.ANCount) > MaxRRPerSection ||
		int(hdr.NSCount) > MaxRRPerSection || int(hdr.ARCount) > MaxRRPerSection {
		return Packet{}, fmt.Errorf("%w: section count exceeds bound", ErrMalformed)
	}

	q, err := ParseQuestion(msg, &off)
	if err != nil {
		return Packet{}, err
	}

	answers, err := parseRecords(msg, &off, int(hdr.ANCount))
	if err != nil {
		return Packet{}, err
	}
	authorities, err := parseRecords(msg, &off, int(hdr.NSCount))
	if err != nil {
		return Packet{}, err
	}
	additionals, err := parseRecords(msg, &off, int(hdr.ARCount))
	if err != nil {
		return Packet{}, err
	}

	return Packet{
		Header:      hdr,
		Question:    q,
		Answers:     answers,
		Authorities: authorities,
		Additionals: additionals,
	}, nil
}

func parseRecords(msg []byte, off *int, count int) ([]Record, error) {
	if count == 0 {
		return nil, nil
	}
	out := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		rr, err := ParseRecord(msg, off)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, nil
}

// Marshal serializes the packet to wire format.
func (p Packet) Marshal() ([]byte, error) {
	hdr := p.Header
	hdr.QDCount = 1
	hdr.ANCount = uint16(len(p.Answers))
	hdr.NSCount = uint16(len(p.Authorities))
	hdr.ARCount = uint16(len(p.Additionals))

	out := hdr.Marshal()

	qWire, err := p.Question.Marshal()
	if err != nil {
		return nil, err
	}
	out = append(out, qWire...)

	for _, sec := range [][]Record{p.Answers, p.Authorities, p.Additionals} {
		for _, rr := range sec {
			b, err := rr.Marshal()
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// Error builds a response packet to req carrying rcode and no records, the
// shape the reject processor produces and the listener falls back to when a
// plugin graph run fails unexpectedly.
func Error(req Packet, rcode RCode) Packet {
	return Packet{
		Header:   req.Header.WithRCode(rcode).withResponseFlags(),
		Question: req.Question,
	}
}

// withResponseFlags sets QR and clears flags that only make sense on a
// query (AA, TC) while preserving RD/CD as echoed from the request.
func (h Header) withResponseFlags() Header {
	h.Flags |= QRFlag
	h.Flags &^= AAFlag | TCFlag
	return h
}
