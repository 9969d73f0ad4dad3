package dnsmsg

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Record is a single resource record (RFC 1035 §4.1.3): {name, type, class,
// ttl, rdata}. Data is type-specific:
//
//	A / AAAA / OPT: []byte (raw address / option bytes)
//	CNAME / NS / PTR: string (target name)
//	MX: MXData
//	TXT: []byte or []string
//	anything else: []byte (opaque)
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  any
}

// MXData is the RDATA of an MX record.
type MXData struct {
	Preference uint16
	Exchange   string
}

// SOAData is the RDATA of an SOA record. Minimum is the field RFC 2308 §5
// designates for bounding negative-answer TTLs, parsed here for completeness
// even though the cache currently applies a fixed configured TTL instead.
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// ParseRecord reads one resource record from msg at *off.
func ParseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Record{}, err
	}
	if *off+10 > len(msg) {
		return Record{}, fmt.Errorf("%w: short record header", ErrMalformed)
	}
	rrType := binary.BigEndian.Uint16(msg[*off : *off+2])
	rrClass := binary.BigEndian.Uint16(msg[*off+2 : *off+4])
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return Record{}, fmt.Errorf("%w: rdata overruns message", ErrMalformed)
	}

	var data any
	switch RecordType(rrType) {
	case TypeCNAME, TypeNS, TypePTR:
		n, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != rdlen {
			return Record{}, fmt.Errorf("%w: rdlength mismatch for name record", ErrMalformed)
		}
		data = n
	case TypeMX:
		if *off+2 > len(msg) {
			return Record{}, fmt.Errorf("%w: short MX preference", ErrMalformed)
		}
		pref := binary.BigEndian.Uint16(msg[*off : *off+2])
		*off += 2
		ex, err := DecodeName(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != rdlen {
			return Record{}, fmt.Errorf("%w: rdlength mismatch for MX record", ErrMalformed)
		}
		data = MXData{Preference: pref, Exchange: ex}
	case TypeSOA:
		soa, err := parseSOA(msg, off)
		if err != nil {
			return Record{}, err
		}
		if *off-start != rdlen {
			return Record{}, fmt.Errorf("%w: rdlength mismatch for SOA record", ErrMalformed)
		}
		data = soa
	default:
		b := make([]byte, rdlen)
		copy(b, msg[*off:*off+rdlen])
		*off += rdlen
		data = b
	}

	return Record{Name: name, Type: rrType, Class: rrClass, TTL: ttl, Data: data}, nil
}

func parseSOA(msg []byte, off *int) (SOAData, error) {
	mname, err := DecodeName(msg, off)
	if err != nil {
		return SOAData{}, err
	}
	rname, err := DecodeName(msg, off)
	if err != nil {
		return SOAData{}, err
	}
	if *off+20 > len(msg) {
		return SOAData{}, fmt.Errorf("%w: short SOA fixed fields", ErrMalformed)
	}
	soa := SOAData{
		MName:   mname,
		RName:   rname,
		Serial:  binary.BigEndian.Uint32(msg[*off : *off+4]),
		Refresh: binary.BigEndian.Uint32(msg[*off+4 : *off+8]),
		Retry:   binary.BigEndian.Uint32(msg[*off+8 : *off+12]),
		Expire:  binary.BigEndian.Uint32(msg[*off+12 : *off+16]),
		Minimum: binary.BigEndian.Uint32(msg[*off+16 : *off+20]),
	}
	*off += 20
	return soa, nil
}

// Marshal serializes a record to wire format. OPT pseudo-records carry the
// root name (0x00) regardless of rr.Name (RFC 6891 §6.1.2).
func (rr Record) Marshal() ([]byte, error) {
	nameWire := []byte{0}
	if RecordType(rr.Type) != TypeOPT {
		b, err := EncodeName(rr.Name)
		if err != nil {
			return nil, err
		}
		nameWire = b
	}

	rdata, err := rr.marshalRData()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(nameWire)+10+len(rdata))
	out = append(out, nameWire...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], rr.Type)
	binary.BigEndian.PutUint16(fixed[2:4], rr.Class)
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	out = append(out, fixed...)
	return append(out, rdata...), nil
}

func (rr Record) marshalRData() ([]byte, error) {
	switch RecordType(rr.Type) {
	case TypeA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 4 {
			return nil, fmt.Errorf("%w: A record data must be 4 bytes", ErrMalformed)
		}
		return b, nil
	case TypeAAAA:
		b, ok := rr.Data.([]byte)
		if !ok || len(b) != 16 {
			return nil, fmt.Errorf("%w: AAAA record data must be 16 bytes", ErrMalformed)
		}
		return b, nil
	case TypeMX:
		mx, ok := rr.Data.(MXData)
		if !ok {
			return nil, fmt.Errorf("%w: MX record data must be MXData", ErrMalformed)
		}
		ex, err := EncodeName(mx.Exchange)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 2+len(ex))
		binary.BigEndian.PutUint16(out[0:2], mx.Preference)
		copy(out[2:], ex)
		return out, nil
	case TypeCNAME, TypeNS, TypePTR:
		s, ok := rr.Data.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: name record data must be non-empty string", ErrMalformed)
		}
		return EncodeName(s)
	case TypeTXT:
		return marshalTXT(rr.Data)
	case TypeSOA:
		soa, ok := rr.Data.(SOAData)
		if !ok {
			return nil, fmt.Errorf("%w: SOA record data must be SOAData", ErrMalformed)
		}
		return marshalSOA(soa)
	case TypeOPT:
		if rr.Data == nil {
			return nil, nil
		}
		b, ok := rr.Data.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: OPT record data must be raw bytes", ErrMalformed)
		}
		return b, nil
	default:
		if b, ok := rr.Data.([]byte); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: unsupported record type %d for marshal", ErrMalformed, rr.Type)
	}
}

func marshalSOA(soa SOAData) ([]byte, error) {
	mname, err := EncodeName(soa.MName)
	if err != nil {
		return nil, err
	}
	rname, err := EncodeName(soa.RName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(mname)+len(rname)+20)
	out = append(out, mname...)
	out = append(out, rname...)
	fixed := make([]byte, 20)
	binary.BigEndian.PutUint32(fixed[0:4], soa.Serial)
	binary.BigEndian.PutUint32(fixed[4:8], soa.Refresh)
	binary.BigEndian.PutUint32(fixed[8:12], soa.Retry)
	binary.BigEndian.PutUint32(fixed[12:16], soa.Expire)
	binary.BigEndian.PutUint32(fixed[16:20], soa.Minimum)
	return append(out, fixed...), nil
}

func marshalTXT(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case []string:
		out := make([]byte, 0, len(t)*8)
		for _, s := range t {
			b := []byte(s)
			if len(b) > 255 {
				return nil, fmt.Errorf("%w: TXT chunk exceeds 255 bytes", ErrMalformed)
			}
			out = append(out, byte(len(b)))
			out = append(out, b...)
		}
		return out, nil
	case string:
		b := []byte(t)
		if len(b) > 255 {
			return nil, fmt.Errorf("%w: TXT string exceeds 255 bytes", ErrMalformed)
		}
		return append([]byte{byte(len(b))}, b...), nil
	default:
		return nil, fmt.Errorf("%w: TXT record data must be string, []string, or []byte", ErrMalformed)
	}
}

// NewA builds an A record for addr (which must be an IPv4 address).
func NewA(name string, ttl uint32, addr net.IP) (Record, error) {
	ip4 := addr.To4()
	if ip4 == nil {
		return Record{}, fmt.Errorf("%w: not an IPv4 address: %s", ErrMalformed, addr)
	}
	return Record{Name: NormalizeName(name), Type: uint16(TypeA), Class: uint16(ClassIN), TTL: ttl, Data: []byte(ip4)}, nil
}

// NewAAAA builds an AAAA record for addr (which must be an IPv6 address).
func NewAAAA(name string, ttl uint32, addr net.IP) (Record, error) {
	ip16 := addr.To16()
	if ip16 == nil || addr.To4() != nil {
		return Record{}, fmt.Errorf("%w: not an IPv6 address: %s", ErrMalformed, addr)
	}
	return Record{Name: NormalizeName(name), Type: uint16(TypeAAAA), Class: uint16(ClassIN), TTL: ttl, Data: []byte(ip16)}, nil
}

// IPv4 returns the dotted-quad string for an A record, if rr is one.
func (rr Record) IPv4() (string, bool) {
	if RecordType(rr.Type) != TypeA {
		return "", false
	}
	b, ok := rr.Data.([]byte)
	if !ok || len(b) != 4 {
		return "", false
	}
	return net.IPv4(b[0], b[1], b[2], b[3]).String(), true
}

// IPv6 returns the string form for an AAAA record, if rr is one.
func (rr Record) IPv6() (string, bool) {
	if RecordType(rr.Type) != TypeAAAA {
		return "", false
	}
	b, ok := rr.Data.([]byte)
	if !ok || len(b) != 16 {
		return "", false
	}
	return net.IP(b).String(), true
}
