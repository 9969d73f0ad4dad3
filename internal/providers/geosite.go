package providers

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Geosite wraps a single category extracted from a v2fly-format geosite
// bundle. It matches the same way a DomainSet does; the categories differ
// only in how they're loaded.
type Geosite struct {
	ds *DomainSet
}

// v2fly geosite.dat wire layout (github.com/v2fly/domain-list-community):
//
//	message Domain {
//	  enum Type { Plain = 0; Regex = 1; Domain = 2; Full = 3; }
//	  Type type = 1;
//	  string value = 2;
//	  repeated Attribute attribute = 3; // ignored here
//	}
//	message GeoSite {
//	  string country_code = 1;
//	  repeated Domain domain = 2;
//	}
//	message GeoSiteList {
//	  repeated GeoSite entry = 1;
//	}
//
// LoadGeosite decodes the bundle at path using the wire-level protobuf
// parser (no generated code needed) and returns the single category named
// by code, matched case-insensitively against country_code.
func LoadGeosite(path string, code string) (*Geosite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geosite: %s: %w", path, err)
	}

	want := strings.ToUpper(code)
	ds := &DomainSet{root: newDomainNode()}
	found := false

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("geosite: %s: %w", path, protowire.ParseError(n))
		}
		b = b[n:]
		if num != 1 || typ != protowire.BytesType {
			skip, err := skipField(b, typ)
			if err != nil {
				return nil, fmt.Errorf("geosite: %s: %w", path, err)
			}
			b = b[skip:]
			continue
		}
		entryBytes, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("geosite: %s: %w", path, protowire.ParseError(n))
		}
		b = b[n:]

		countryCode, domains, err := parseGeoSiteEntry(entryBytes)
		if err != nil {
			return nil, fmt.Errorf("geosite: %s: %w", path, err)
		}
		if strings.ToUpper(countryCode) != want {
			continue
		}
		found = true
		for _, d := range domains {
			switch d.typ {
			case domainTypeFull:
				ds.addNode(d.value, false)
			case domainTypeDomain:
				ds.addNode(d.value, true)
			case domainTypePlain:
				ds.keywords = append(ds.keywords, strings.ToLower(d.value))
			case domainTypeRegex:
				re, err := regexp.Compile(d.value)
				if err != nil {
					return nil, fmt.Errorf("geosite: %s: bad regex %q: %w", path, d.value, err)
				}
				ds.regexes = append(ds.regexes, re)
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("geosite: %s: category %q not found", path, code)
	}
	return &Geosite{ds: ds}, nil
}

type domainType int

const (
	domainTypePlain domainType = iota
	domainTypeRegex
	domainTypeDomain
	domainTypeFull
)

type geositeDomain struct {
	typ   domainType
	value string
}

func parseGeoSiteEntry(b []byte) (countryCode string, domains []geositeDomain, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", nil, protowire.ParseError(n)
			}
			countryCode = string(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", nil, protowire.ParseError(n)
			}
			b = b[n:]
			d, err := parseDomain(v)
			if err != nil {
				return "", nil, err
			}
			domains = append(domains, d)
		default:
			skip, err := skipField(b, typ)
			if err != nil {
				return "", nil, err
			}
			b = b[skip:]
		}
	}
	return countryCode, domains, nil
}

func parseDomain(b []byte) (geositeDomain, error) {
	d := geositeDomain{typ: domainTypePlain}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return d, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return d, protowire.ParseError(n)
			}
			d.typ = domainType(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return d, protowire.ParseError(n)
			}
			d.value = string(v)
			b = b[n:]
		default:
			skip, err := skipField(b, typ)
			if err != nil {
				return d, err
			}
			b = b[skip:]
		}
	}
	return d, nil
}

func skipField(b []byte, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

// Match reports whether name matches this category.
func (g *Geosite) Match(name string) bool {
	return g.ds.Match(name)
}
