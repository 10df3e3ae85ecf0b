package scrape

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsGate caches robots.txt per host and answers allow/deny for crawl
// candidates. An unreachable or unparseable robots.txt allows everything.
type RobotsGate struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.Group
}

// NewRobotsGate creates a gate with the robots user agent used for group
// matching.
func NewRobotsGate(userAgent string) *RobotsGate {
	return &RobotsGate{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether the URL may be fetched under the host's robots.txt.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	group := g.group(ctx, u.Scheme, u.Host)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (g *RobotsGate) group(ctx context.Context, scheme, host string) *robotstxt.Group {
	g.mu.Lock()
	group, ok := g.cache[host]
	g.mu.Unlock()
	if ok {
		return group
	}

	group = g.fetchGroup(ctx, scheme, host)
	g.mu.Lock()
	g.cache[host] = group
	g.mu.Unlock()
	return group
}

func (g *RobotsGate) fetchGroup(ctx context.Context, scheme, host string) *robotstxt.Group {
	robotsURL := scheme + "://" + host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := g.client.Do(req)
	if err != nil {
		zap.L().Debug("scrape: robots.txt unreachable, allowing all",
			zap.String("host", host),
			zap.Error(err),
		)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		zap.L().Debug("scrape: robots.txt unparseable, allowing all",
			zap.String("host", host),
			zap.Error(err),
		)
		return nil
	}
	return robots.FindGroup(g.userAgent)
}
