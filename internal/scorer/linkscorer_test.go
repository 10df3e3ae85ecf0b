package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
)

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		TargetLinkKeywords:       []string{"contact", "kontakt", "impressum", "about", "legal"},
		CriticalPriorityKeywords: []string{"impressum", "kontakt", "contact"},
		HighPriorityKeywords:     []string{"legal", "about-us", "about"},
		MaxKeywordPathSegments:   3,
		ExcludeLinkPathPatterns:  []string{"/media/", "/blog/"},
		MinScoreToQueue:          40,
	}
}

func TestScoreTiers(t *testing.T) {
	s := New(testConfig())

	tests := []struct {
		name     string
		path     string
		linkText string
		want     int
	}{
		{"critical exact segment", "/kontakt", "", 100},
		{"critical exact nested", "/de/kontakt", "", 100},
		{"high priority exact segment", "/legal", "", 90},
		{"critical deep path penalized", "/a/b/c/d/kontakt", "", 90}, // 100 - 2*5
		{"penalty capped at 20", "/a/b/c/d/e/f/g/h/kontakt", "", 80},
		{"substring in segment", "/unternehmen/contact-page", "", 50},
		{"anchor text only", "/page1", "kontaktieren sie uns", 40},
		{"no match", "/products", "buy now", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.path, tt.linkText))
		})
	}
}

func TestScoreNotAdditive(t *testing.T) {
	s := New(testConfig())

	// Both a critical and a high-priority keyword present: max wins, no sum.
	assert.Equal(t, 100, s.Score("/legal/kontakt", ""))
}

func TestFindInternalLinks(t *testing.T) {
	s := New(testConfig())

	html := `<html><body>
		<a href="/kontakt">Kontakt</a>
		<a href="/de/impressum/">Impressum</a>
		<a href="https://other.example.org/kontakt">External</a>
		<a href="/blog/contact-story">Blog</a>
		<a href="/products">Products</a>
		<a href="mailto:info@example.com">Mail</a>
		<a href="/kontakt#form">Kontakt anchor</a>
	</body></html>`

	links := s.FindInternalLinks(html, "https://www.example.com/")

	byURL := make(map[string]int)
	for _, l := range links {
		byURL[l.URL] = l.Score
	}

	require.Len(t, links, 2)
	assert.Equal(t, 100, byURL["https://www.example.com/kontakt"])
	assert.Equal(t, 100, byURL["https://www.example.com/de/impressum"])
}

func TestFindInternalLinksBelowThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.MinScoreToQueue = 60
	s := New(cfg)

	html := `<a href="/page1">kontaktieren</a>` // anchor-text-only scores 40

	assert.Empty(t, s.FindInternalLinks(html, "https://example.com/"))
}
