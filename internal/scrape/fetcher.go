// Package scrape fetches pages with a headless browser pool and maps fetch
// failures onto the scraper status taxonomy.
package scrape

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// Result is the outcome of fetching a single page.
type Result struct {
	RequestedURL string
	FinalURL     string
	HTML         string
	StatusCode   int
}

// Fetcher retrieves a fully rendered page.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*Result, error)
	Close()
}

// ClassifyFetchError maps a fetch error to a scraper status.
func ClassifyFetchError(err error) model.ScraperStatus {
	if err == nil {
		return model.StatusSuccess
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.StatusErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.StatusErrorDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.StatusErrorTimeout
	}

	// Chromium reports failures as net:: error strings.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ERR_NAME_NOT_RESOLVED"), strings.Contains(msg, "ERR_NAME_RESOLUTION_FAILED"):
		return model.StatusErrorDNS
	case strings.Contains(msg, "ERR_TIMED_OUT"), strings.Contains(msg, "deadline exceeded"):
		return model.StatusErrorTimeout
	case strings.Contains(msg, "ERR_CONNECTION"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return model.StatusErrorNetwork
	case strings.Contains(msg, "ERR_TOO_MANY_REDIRECTS"):
		return model.StatusErrorRedirects
	}
	return model.StatusErrorGeneric
}

// ClassifyStatusCode maps an HTTP status code to a scraper status.
func ClassifyStatusCode(code int) model.ScraperStatus {
	switch {
	case code == 0 || (code >= 200 && code < 400):
		return model.StatusSuccess
	case code == 401 || code == 403 || code == 429:
		return model.StatusErrorAccess
	case code == 404 || code == 410:
		return model.StatusErrorNotFound
	default:
		return model.StatusErrorGeneric
	}
}
