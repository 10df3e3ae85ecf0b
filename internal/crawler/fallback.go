package crawler

import (
	"net/url"
	"strings"
)

// FallbackSeeds derives alternative seed URLs for a host whose DNS lookup
// failed. Order: hyphen simplification (tail half, then head half), then a
// .de to .com swap. Applied to seed URLs only.
func FallbackSeeds(seed string) []string {
	u, err := url.Parse(seed)
	if err != nil || u.Hostname() == "" {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	bare := strings.TrimPrefix(host, "www.")

	name := bare
	suffix := ""
	if i := strings.Index(bare, "."); i > 0 {
		name = bare[:i]
		suffix = bare[i:]
	}

	var hosts []string
	if i := strings.Index(name, "-"); i > 0 && i < len(name)-1 {
		tail := name[strings.LastIndex(name, "-")+1:]
		head := name[:i]
		hosts = append(hosts, tail+suffix)
		if head != tail {
			hosts = append(hosts, head+suffix)
		}
	}
	if strings.HasSuffix(bare, ".de") {
		hosts = append(hosts, strings.TrimSuffix(bare, ".de")+".com")
	}

	var out []string
	seen := map[string]bool{bare: true}
	for _, h := range hosts {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		alt := *u
		alt.Host = h
		out = append(out, alt.String())
	}
	return out
}
