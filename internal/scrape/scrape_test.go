package scrape

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

func TestClassifyFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ScraperStatus
	}{
		{"nil", nil, model.StatusSuccess},
		{"deadline", context.DeadlineExceeded, model.StatusErrorTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "acme.de", IsNotFound: true}, model.StatusErrorDNS},
		{"chromium dns", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), model.StatusErrorDNS},
		{"chromium timeout", errors.New("page load error net::ERR_TIMED_OUT"), model.StatusErrorTimeout},
		{"chromium conn", errors.New("page load error net::ERR_CONNECTION_REFUSED"), model.StatusErrorNetwork},
		{"redirect loop", errors.New("net::ERR_TOO_MANY_REDIRECTS"), model.StatusErrorRedirects},
		{"other", errors.New("boom"), model.StatusErrorGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFetchError(tt.err))
		})
	}
}

func TestClassifyStatusCode(t *testing.T) {
	assert.Equal(t, model.StatusSuccess, ClassifyStatusCode(200))
	assert.Equal(t, model.StatusSuccess, ClassifyStatusCode(0)) // no document event captured
	assert.Equal(t, model.StatusErrorAccess, ClassifyStatusCode(403))
	assert.Equal(t, model.StatusErrorAccess, ClassifyStatusCode(429))
	assert.Equal(t, model.StatusErrorNotFound, ClassifyStatusCode(404))
	assert.Equal(t, model.StatusErrorGeneric, ClassifyStatusCode(500))
}

func TestPathMatcher(t *testing.T) {
	m := NewPathMatcher([]string{"/media/", "/Blog/"})

	assert.True(t, m.IsExcluded("https://example.com/media/images/1.png"))
	assert.True(t, m.IsExcluded("https://example.com/de/blog/post"))
	assert.False(t, m.IsExcluded("https://example.com/kontakt"))
	assert.True(t, m.IsExcluded("http://%zz"))
}

func TestPathMatcherDefaults(t *testing.T) {
	m := NewPathMatcher(nil)
	assert.NotEmpty(t, m.Patterns())
	assert.True(t, m.IsExcluded("https://example.com/wp-content/uploads/x"))
}

func TestCleanText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
		<script>var x = 1;</script>
		<h1>Kontakt</h1>
		<p>Tel:   +49 30 1234567</p>
		<noscript>enable js</noscript>
	</body></html>`

	text, err := CleanText(html)
	require.NoError(t, err)

	assert.Contains(t, text, "Kontakt")
	assert.Contains(t, text, "Tel: +49 30 1234567")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "enable js")
	assert.NotContains(t, text, "color:red")
}

func TestHostLimitersDisabled(t *testing.T) {
	h := newHostLimiters(0)
	assert.NoError(t, h.wait(context.Background(), "example.com"))
}

func TestFetchTimeouts(t *testing.T) {
	tests := []struct {
		name     string
		navCfg   time.Duration
		pageCfg  time.Duration
		wantNav  time.Duration
		wantPage time.Duration
	}{
		{"both set", 60 * time.Second, 30 * time.Second, 60 * time.Second, 30 * time.Second},
		{"nav unset falls back to page", 0, 30 * time.Second, 30 * time.Second, 30 * time.Second},
		{"page unset falls back to nav", 60 * time.Second, 0, 60 * time.Second, 60 * time.Second},
		{"both unset", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav, page := fetchTimeouts(config.ScraperConfig{
				NavigationTimeout: tt.navCfg,
				PageTimeout:       tt.pageCfg,
			})
			assert.Equal(t, tt.wantNav, nav)
			assert.Equal(t, tt.wantPage, page)
		})
	}
}
