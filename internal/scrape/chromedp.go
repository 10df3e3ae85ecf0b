package scrape

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
)

// BrowserFetcher renders pages with a pool of headless Chromium instances.
// Tabs are created per fetch; browsers are shared round-robin.
type BrowserFetcher struct {
	cfg config.ScraperConfig

	mu             sync.Mutex
	browsers       []context.Context
	browserCancels []context.CancelFunc
	allocCancels   []context.CancelFunc
	next           int

	limiters *hostLimiters
}

// NewBrowserFetcher starts the browser pool. Instances that fail to launch
// are skipped; at least one must come up.
func NewBrowserFetcher(cfg config.ScraperConfig) (*BrowserFetcher, error) {
	f := &BrowserFetcher{
		cfg:      cfg,
		limiters: newHostLimiters(cfg.HostRequestsPerSec),
	}

	size := cfg.BrowserPoolSize
	if size <= 0 {
		size = 1
	}

	var lastErr error
	for i := 0; i < size; i++ {
		if err := f.launchBrowser(); err != nil {
			lastErr = err
			zap.L().Warn("scrape: browser instance failed to launch",
				zap.Int("index", i),
				zap.Error(err),
			)
		}
	}
	if len(f.browsers) == 0 {
		return nil, eris.Wrap(lastErr, "scrape: no browser instances available")
	}

	zap.L().Info("scrape: browser pool ready",
		zap.Int("requested", size),
		zap.Int("launched", len(f.browsers)),
	)
	return f, nil
}

func (f *BrowserFetcher) launchBrowser() error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	startCtx, startCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return eris.Wrap(err, "scrape: browser startup")
	}

	f.mu.Lock()
	f.browsers = append(f.browsers, browserCtx)
	f.browserCancels = append(f.browserCancels, browserCancel)
	f.allocCancels = append(f.allocCancels, allocCancel)
	f.mu.Unlock()
	return nil
}

func (f *BrowserFetcher) browser() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctx := f.browsers[f.next%len(f.browsers)]
	f.next = (f.next + 1) % len(f.browsers)
	return ctx
}

// Fetch renders targetURL and returns its HTML, final landed URL, and the
// HTTP status of the main document. Transient failures are retried with a
// fixed delay.
func (f *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (*Result, error) {
	if u, err := url.Parse(targetURL); err == nil {
		if err := f.limiters.wait(ctx, u.Hostname()); err != nil {
			return nil, eris.Wrap(err, "scrape: rate limit wait")
		}
	}

	attempts := f.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			zap.L().Debug("scrape: retrying fetch",
				zap.String("url", targetURL),
				zap.Int("attempt", attempt+1),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.cfg.RetryDelay):
			}
		}

		res, err := f.fetchOnce(ctx, targetURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *BrowserFetcher) fetchOnce(ctx context.Context, targetURL string) (*Result, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.browser())
	defer tabCancel()

	nav, page := fetchTimeouts(f.cfg)
	runCtx := tabCtx
	if dl, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(tabCtx, dl)
		defer cancel()
	}

	// The first document response on the tab is the main navigation.
	var (
		statusMu sync.Mutex
		status   int
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			statusMu.Lock()
			if status == 0 {
				status = int(resp.Response.Status)
			}
			statusMu.Unlock()
		}
	})

	settle := f.cfg.NetworkIdleTimeout
	var (
		html     string
		finalURL string
	)
	// Navigation and post-load work run under separate deadlines: a stalled
	// main-document load fails on the navigation budget, network settling
	// and content read-back on the page budget.
	err := chromedp.Run(runCtx,
		network.Enable(),
		withTimeout(nav, chromedp.Navigate(targetURL)),
		withTimeout(page, chromedp.Tasks{
			chromedp.Sleep(settle),
			chromedp.Location(&finalURL),
			chromedp.OuterHTML("html", &html),
		}),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", targetURL)
	}

	statusMu.Lock()
	code := status
	statusMu.Unlock()

	return &Result{
		RequestedURL: targetURL,
		FinalURL:     finalURL,
		HTML:         html,
		StatusCode:   code,
	}, nil
}

// fetchTimeouts resolves the two fetch deadlines: nav caps the
// main-document navigation, page caps the post-load settle and content
// read-back. Each falls back to the other when unset.
func fetchTimeouts(cfg config.ScraperConfig) (nav, page time.Duration) {
	nav = cfg.NavigationTimeout
	page = cfg.PageTimeout
	if nav <= 0 {
		nav = page
	}
	if page <= 0 {
		page = nav
	}
	return nav, page
}

// withTimeout runs an action under its own deadline derived from the tab
// context; a non-positive d leaves the action unbounded.
func withTimeout(d time.Duration, action chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return action.Do(ctx)
	})
}

// Close shuts down all browser instances.
func (f *BrowserFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cancel := range f.browserCancels {
		cancel()
	}
	for _, cancel := range f.allocCancels {
		cancel()
	}
	f.browsers = nil
	f.browserCancels = nil
	f.allocCancels = nil
}

// hostLimiters throttles requests per host.
type hostLimiters struct {
	mu       sync.Mutex
	perSec   float64
	limiters map[string]*rate.Limiter
}

func newHostLimiters(perSec float64) *hostLimiters {
	return &hostLimiters{
		perSec:   perSec,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *hostLimiters) wait(ctx context.Context, host string) error {
	if h.perSec <= 0 || host == "" {
		return nil
	}
	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(h.perSec), 1)
		h.limiters[host] = lim
	}
	h.mu.Unlock()
	return lim.Wait(ctx)
}
