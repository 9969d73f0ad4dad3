package providers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// CompileGeosite reads one domain-list file per category from sourceDir
// (each file named <CODE>.txt, one `[prefix:]pattern` rule per line in the
// same syntax domain_set accepts) and writes a v2fly-wire-compatible
// GeoSiteList bundle to outPath. It is the inverse of LoadGeosite, letting
// the pack round-trip without depending on a prebuilt bundle; the
// `make-geosite` CLI subcommand drives it.
func CompileGeosite(sourceDir, outPath string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("compile-geosite: reading %s: %w", sourceDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var list []byte
	for _, name := range files {
		code := strings.ToUpper(strings.TrimSuffix(name, ".txt"))
		domains, err := readDomainRules(filepath.Join(sourceDir, name))
		if err != nil {
			return err
		}
		entry := marshalGeoSite(code, domains)
		list = protowire.AppendTag(list, 1, protowire.BytesType)
		list = protowire.AppendBytes(list, entry)
	}

	if err := os.WriteFile(outPath, list, 0o644); err != nil {
		return fmt.Errorf("compile-geosite: writing %s: %w", outPath, err)
	}
	return nil
}

func readDomainRules(path string) ([]geositeDomain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compile-geosite: %s: %w", path, err)
	}
	defer f.Close()

	var out []geositeDomain
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prefix, value, hasPrefix := strings.Cut(line, ":")
		if !hasPrefix {
			out = append(out, geositeDomain{typ: domainTypeDomain, value: line})
			continue
		}
		switch strings.ToLower(prefix) {
		case "full":
			out = append(out, geositeDomain{typ: domainTypeFull, value: value})
		case "domain":
			out = append(out, geositeDomain{typ: domainTypeDomain, value: value})
		case "keyword":
			out = append(out, geositeDomain{typ: domainTypePlain, value: value})
		case "regexp", "regex":
			out = append(out, geositeDomain{typ: domainTypeRegex, value: value})
		default:
			out = append(out, geositeDomain{typ: domainTypeDomain, value: line})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("compile-geosite: %s: %w", path, err)
	}
	return out, nil
}

func marshalGeoSite(code string, domains []geositeDomain) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(code))
	for _, d := range domains {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalDomain(d))
	}
	return b
}

func marshalDomain(d geositeDomain) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.typ))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(d.value))
	return b
}
