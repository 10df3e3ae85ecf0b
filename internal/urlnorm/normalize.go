// Package urlnorm canonicalizes heterogeneous input URLs and derives the
// pathful and base canonical forms used as cache and aggregation keys.
package urlnorm

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// Resolver is the DNS lookup capability used for TLD probing.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Normalizer canonicalizes raw input URLs.
type Normalizer struct {
	probingTLDs []string
	resolver    Resolver
}

// New creates a Normalizer. A nil resolver falls back to net.DefaultResolver.
func New(probingTLDs []string, resolver Resolver) *Normalizer {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Normalizer{probingTLDs: probingTLDs, resolver: resolver}
}

// tldRe matches a host ending in a dot followed by two or more letters.
var tldRe = regexp.MustCompile(`\.[a-zA-Z]{2,}$`)

// commonIndexFiles are stripped from path tails during normalization so the
// directory URL and its index document share one cache entry.
var commonIndexFiles = []string{
	"index.html", "index.htm", "index.php", "default.html", "default.htm", "index.asp", "default.asp",
}

// Canonicalize cleans a raw input URL and derives its canonical forms,
// probing TLDs via DNS when the host carries none.
func (n *Normalizer) Canonicalize(ctx context.Context, rowID int, raw string) model.CanonicalMapping {
	m := model.CanonicalMapping{RowID: rowID}

	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		m.Determination = model.URLEmptyAfterClean
		return m
	}

	if !strings.Contains(cleaned, "://") {
		cleaned = "http://" + cleaned
	}

	u, err := url.Parse(cleaned)
	if err != nil || u.Host == "" {
		// Whitespace inside the host label is a common paste artifact.
		collapsed := collapseHostWhitespace(cleaned)
		if u2, err2 := url.Parse(collapsed); err2 == nil && u2.Host != "" {
			u = u2
		} else {
			m.Determination = model.URLInvalid
			m.DeterminedError = "unparseable URL"
			return m
		}
	}

	switch u.Scheme {
	case "http", "https":
	default:
		m.Determination = model.URLUnsupportedScheme
		m.DeterminedError = "unsupported scheme: " + u.Scheme
		return m
	}

	host := strings.ToLower(u.Hostname())
	host = strings.Join(strings.Fields(host), "")
	if host == "" || host == "localhost" {
		m.Determination = model.URLInvalid
		m.DeterminedError = "empty or local host"
		return m
	}
	if isMalformedIPLiteral(host) {
		m.Determination = model.URLInvalid
		m.DeterminedError = "malformed IP literal: " + host
		return m
	}

	m.Determination = model.URLDeterminedOK
	if !tldRe.MatchString(host) {
		probed, ok := n.probeTLDs(ctx, host)
		if ok {
			host = probed
			m.Determination = model.URLDeterminedProbed
		} else {
			m.ProbeWarning = true
			zap.L().Warn("urlnorm: TLD probing exhausted, keeping host as given",
				zap.Int("row_id", rowID),
				zap.String("host", host),
			)
		}
	}

	u.Host = hostWithPort(host, u.Port(), u.Scheme)
	m.InitialPathful = NormalizePathful(u.String())
	m.BaseCanonical = BaseOf(m.InitialPathful)
	return m
}

// probeTLDs synthesizes host.tld for each configured TLD and returns the
// first that resolves.
func (n *Normalizer) probeTLDs(ctx context.Context, host string) (string, bool) {
	for _, tld := range n.probingTLDs {
		candidate := host + "." + strings.TrimPrefix(tld, ".")
		if _, err := n.resolver.LookupHost(ctx, candidate); err == nil {
			zap.L().Info("urlnorm: TLD probe succeeded",
				zap.String("host", host),
				zap.String("resolved", candidate),
			)
			return candidate, true
		}
	}
	return "", false
}

// NormalizePathful normalizes a URL to its pathful canonical form:
// lowercased scheme and host, default ports dropped, fragment removed,
// index documents and trailing slashes stripped, query preserved.
// Percent-encoding in the path is left untouched. Returns the input
// unchanged when it cannot be parsed.
func NormalizePathful(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	u.Host = hostWithPort(host, u.Port(), u.Scheme)

	path := u.EscapedPath()
	for _, index := range commonIndexFiles {
		if strings.HasSuffix(path, "/"+index) {
			path = strings.TrimSuffix(path, index)
			break
		}
	}
	if path == "" {
		path = "/"
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	u.RawPath = ""
	u.Path = path

	return u.String()
}

// BaseOf reduces a pathful canonical URL to its base canonical form
// (scheme + host only).
func BaseOf(pathful string) string {
	u, err := url.Parse(pathful)
	if err != nil {
		return pathful
	}
	return u.Scheme + "://" + u.Host
}

// HostOf returns the lowercased host of a canonical URL, or "" on parse
// failure.
func HostOf(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// DomainLabel extracts a display label from a base canonical URL: the host
// without the www prefix and without the TLD suffix.
func DomainLabel(base string) string {
	host := HostOf(base)
	host = strings.TrimPrefix(host, "www.")
	if i := strings.LastIndex(host, "."); i > 0 {
		host = host[:i]
	}
	return host
}

func hostWithPort(host, port, scheme string) string {
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return host
	}
	return net.JoinHostPort(host, port)
}

// collapseHostWhitespace removes whitespace between the scheme separator and
// the first slash, where stray spaces break host parsing.
func collapseHostWhitespace(raw string) string {
	i := strings.Index(raw, "://")
	if i < 0 {
		return raw
	}
	rest := raw[i+3:]
	slash := strings.IndexByte(rest, '/')
	hostPart := rest
	tail := ""
	if slash >= 0 {
		hostPart = rest[:slash]
		tail = rest[slash:]
	}
	hostPart = strings.Join(strings.Fields(hostPart), "")
	return raw[:i+3] + hostPart + tail
}

// isMalformedIPLiteral reports whether host looks like a numeric IP literal
// but fails to parse as one.
func isMalformedIPLiteral(host string) bool {
	if host == "" {
		return false
	}
	looksNumeric := true
	for _, r := range host {
		if r != '.' && r != ':' && (r < '0' || r > '9') {
			looksNumeric = false
			break
		}
	}
	if !looksNumeric {
		return false
	}
	return net.ParseIP(host) == nil
}

// ErrNoCanonical is returned by callers when a mapping yielded no usable
// canonical form.
var ErrNoCanonical = eris.New("urlnorm: no canonical URL determined")
