package crawler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	schemeRe    = regexp.MustCompile(`^https?://`)
	unsafeRe    = regexp.MustCompile(`[^\w.-]`)
	wwwRe       = regexp.MustCompile(`^www\.`)
	hostCleanRe = regexp.MustCompile(`[^\w-]`)
)

// SafeCompanyName turns a company name or identifier into a filesystem-safe
// token: diacritics folded, scheme stripped, unsafe runes replaced with
// underscores, truncated to maxLen.
func SafeCompanyName(name string, maxLen int) string {
	name = foldDiacritics(name)
	name = schemeRe.ReplaceAllString(name, "")
	name = unsafeRe.ReplaceAllString(name, "_")
	if maxLen > 0 && len(name) > maxLen {
		name = name[:maxLen]
	}
	return name
}

// SafeURLName derives a short stable filename token from a URL: a sanitized
// host prefix plus a 16-hex-digit content hash. Distinct URLs on long hosts
// stay distinct through the hash.
func SafeURLName(rawURL string) string {
	hostPart := ""
	if u, err := url.Parse(rawURL); err == nil {
		hostPart = wwwRe.ReplaceAllString(u.Hostname(), "")
		hostPart = hostCleanRe.ReplaceAllString(hostPart, "")
		if len(hostPart) > 15 {
			hostPart = hostPart[:15]
		}
	}
	sum := sha256.Sum256([]byte(rawURL))
	return hostPart + "_" + hex.EncodeToString(sum[:])[:16]
}

// SafeSourceDir sanitizes a host into a directory name for cleaned pages.
func SafeSourceDir(host string) string {
	host = wwwRe.ReplaceAllString(strings.ToLower(host), "")
	return unsafeRe.ReplaceAllString(host, "_")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
