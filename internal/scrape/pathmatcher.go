package scrape

import (
	"net/url"
	"strings"
)

// defaultExcludePatterns are used when no custom patterns are provided.
var defaultExcludePatterns = []string{
	"/media/",
	"/blog/",
	"/wp-content/",
	"/video/",
}

// PathMatcher hard-excludes candidate links whose URL path contains any of
// the configured substrings, regardless of how well the link scores.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from path substrings (e.g. "/media/").
// Falls back to default patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL's path contains any exclude substring.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return m.isPathExcluded(u.EscapedPath())
}

func (m *PathMatcher) isPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		if strings.Contains(urlPath, pattern) {
			return true
		}
	}
	return false
}
