// Package crawler drives the per-site fetch loop: a score-priority queue
// with a page budget, a high-priority bypass allowance, seed DNS fallbacks,
// and cleaned-text persistence.
package crawler

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scorer"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scrape"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/urlnorm"
)

// VisitedRegistry deduplicates landed URLs across site crawls in one run.
// Visit returns false when the URL was already claimed.
type VisitedRegistry interface {
	Visit(url string) bool
}

// NewVisitedSet returns a concurrency-safe VisitedRegistry.
func NewVisitedSet() VisitedRegistry {
	return &visitedSet{m: make(map[string]bool)}
}

type visitedSet struct {
	mu sync.Mutex
	m  map[string]bool
}

func (s *visitedSet) Visit(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m[url] {
		return false
	}
	s.m[url] = true
	return true
}

// SiteResult is the outcome of crawling one seed pathful URL.
type SiteResult struct {
	// Pages successfully fetched, cleaned, and persisted.
	Pages []model.ScrapedPage
	// PathfulStatuses maps each attempted pathful URL to its fetch status.
	PathfulStatuses map[string]model.ScraperStatus
	// Status is the best status across attempted pathfuls.
	Status model.ScraperStatus
	// CanonicalEntryURL is the normalized landed URL of the seed fetch.
	CanonicalEntryURL string
	// SeedUsed is the seed that produced the result, after any DNS fallback.
	SeedUsed string
}

// Crawler fetches one site at a time through a shared fetcher.
type Crawler struct {
	fetcher    scrape.Fetcher
	links      *scorer.LinkScorer
	robots     *scrape.RobotsGate
	classifier *Classifier
	cfg        config.ScraperConfig
	cleanedDir string
	nameMaxLen int
}

// New builds a Crawler. cleanedDir is the run-scoped directory that receives
// cleaned page text files; nameMaxLen bounds the company token in filenames.
func New(fetcher scrape.Fetcher, links *scorer.LinkScorer, robots *scrape.RobotsGate, classifier *Classifier, cfg config.ScraperConfig, cleanedDir string, nameMaxLen int) *Crawler {
	if classifier == nil {
		classifier = NewClassifier(nil, nil, nil, nil)
	}
	return &Crawler{
		fetcher:    fetcher,
		links:      links,
		robots:     robots,
		classifier: classifier,
		cfg:        cfg,
		cleanedDir: cleanedDir,
		nameMaxLen: nameMaxLen,
	}
}

// Crawl runs the crawl loop from seedURL. When the seed itself fails DNS
// resolution and fallbacks are enabled, alternative seeds are tried in order
// and the first productive one wins; its statuses are merged over the
// original attempt's.
func (c *Crawler) Crawl(ctx context.Context, seedURL, companyName string, reg VisitedRegistry) *SiteResult {
	res := c.crawlSite(ctx, seedURL, companyName, reg)

	if c.cfg.EnableDNSErrorFallbacks &&
		len(res.Pages) == 0 &&
		res.PathfulStatuses[res.SeedUsed] == model.StatusErrorDNS {
		for _, fb := range FallbackSeeds(seedURL) {
			zap.L().Info("crawler: trying DNS fallback seed",
				zap.String("original", seedURL),
				zap.String("fallback", fb),
			)
			fbRes := c.crawlSite(ctx, fb, companyName, reg)
			for u, st := range res.PathfulStatuses {
				if _, ok := fbRes.PathfulStatuses[u]; !ok {
					fbRes.PathfulStatuses[u] = st
				}
			}
			if len(fbRes.Pages) > 0 {
				return fbRes
			}
			res = fbRes
		}
	}
	return res
}

func (c *Crawler) crawlSite(ctx context.Context, seedURL, companyName string, reg VisitedRegistry) *SiteResult {
	seed := urlnorm.NormalizePathful(seedURL)
	res := &SiteResult{
		PathfulStatuses: make(map[string]model.ScraperStatus),
		SeedUsed:        seed,
	}

	companySafe := SafeCompanyName(companyName, c.nameMaxLen)

	queued := map[string]bool{seed: true}
	var q crawlQueue
	q.push(queueItem{url: seed, depth: 0, score: 100})

	pagesFetched := 0
	bypassFetched := 0

	for q.Len() > 0 {
		if ctx.Err() != nil {
			break
		}
		item := q.pop()

		if c.cfg.MaxPagesPerDomain > 0 && pagesFetched >= c.cfg.MaxPagesPerDomain {
			if item.score < c.cfg.ScoreThresholdForLimitBypass {
				zap.L().Debug("crawler: page budget reached, discarding",
					zap.String("url", item.url),
					zap.Int("score", item.score),
				)
				continue
			}
			if bypassFetched >= c.cfg.MaxHighPriorityPagesAfterLimit {
				zap.L().Debug("crawler: bypass allowance exhausted, discarding",
					zap.String("url", item.url),
					zap.Int("score", item.score),
				)
				continue
			}
		}

		if c.cfg.RespectRobotsTxt && c.robots != nil && !c.robots.Allowed(ctx, item.url) {
			zap.L().Info("crawler: disallowed by robots.txt", zap.String("url", item.url))
			res.PathfulStatuses[item.url] = model.StatusErrorRobots
			continue
		}

		fetched, err := c.fetcher.Fetch(ctx, item.url)
		if err != nil {
			status := scrape.ClassifyFetchError(err)
			res.PathfulStatuses[item.url] = status
			zap.L().Warn("crawler: fetch failed",
				zap.String("url", item.url),
				zap.String("status", string(status)),
				zap.Error(err),
			)
			continue
		}
		if status := scrape.ClassifyStatusCode(fetched.StatusCode); status != model.StatusSuccess {
			res.PathfulStatuses[item.url] = status
			zap.L().Warn("crawler: HTTP error",
				zap.String("url", item.url),
				zap.Int("code", fetched.StatusCode),
				zap.String("status", string(status)),
			)
			continue
		}

		res.PathfulStatuses[item.url] = model.StatusSuccess
		pagesFetched++
		if c.cfg.MaxPagesPerDomain > 0 && pagesFetched > c.cfg.MaxPagesPerDomain &&
			item.score >= c.cfg.ScoreThresholdForLimitBypass {
			bypassFetched++
		}

		landed := item.url
		if fetched.FinalURL != "" {
			landed = urlnorm.NormalizePathful(fetched.FinalURL)
		}
		if item.depth == 0 && res.CanonicalEntryURL == "" {
			res.CanonicalEntryURL = landed
		}

		// Landed URL, not the requested one, marks the page visited: two
		// pathfuls redirecting to the same document are one page.
		if reg != nil && !reg.Visit(landed) {
			zap.L().Info("crawler: landed URL already processed in this run",
				zap.String("requested", item.url),
				zap.String("landed", landed),
			)
			continue
		}
		queued[landed] = true

		page, err := c.persistPage(fetched.HTML, landed, item.url, companySafe)
		if err != nil {
			zap.L().Error("crawler: persisting cleaned page failed",
				zap.String("url", landed),
				zap.Error(err),
			)
		} else {
			res.Pages = append(res.Pages, page)
		}

		if item.depth < c.cfg.MaxDepthInternalLinks {
			added := 0
			for _, link := range c.links.FindInternalLinks(fetched.HTML, landed) {
				if queued[link.URL] {
					continue
				}
				queued[link.URL] = true
				q.push(queueItem{url: link.URL, depth: item.depth + 1, score: link.Score})
				added++
			}
			zap.L().Debug("crawler: queued internal links",
				zap.String("from", landed),
				zap.Int("added", added),
				zap.Int("queue_size", q.Len()),
			)
		}
	}

	statuses := make([]model.ScraperStatus, 0, len(res.PathfulStatuses))
	for _, st := range res.PathfulStatuses {
		statuses = append(statuses, st)
	}
	res.Status = model.BestStatus(statuses)

	zap.L().Info("crawler: site crawl finished",
		zap.String("seed", seed),
		zap.Int("pages", len(res.Pages)),
		zap.String("status", string(res.Status)),
	)
	return res
}

// persistPage cleans the HTML and writes it under
// cleanedDir/<source-host>/<company>__<url-token>_cleaned.txt.
func (c *Crawler) persistPage(html, landedURL, requestedURL, companySafe string) (model.ScrapedPage, error) {
	text, err := scrape.CleanText(html)
	if err != nil {
		return model.ScrapedPage{}, err
	}

	host := ""
	if u, perr := url.Parse(landedURL); perr == nil {
		host = u.Hostname()
	}
	dir := filepath.Join(c.cleanedDir, SafeSourceDir(host))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.ScrapedPage{}, eris.Wrap(err, "crawler: create cleaned pages dir")
	}

	name := companySafe + "__" + SafeURLName(landedURL) + "_cleaned.txt"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return model.ScrapedPage{}, eris.Wrap(err, "crawler: write cleaned page")
	}

	return model.ScrapedPage{
		SourceURL:       requestedURL,
		FinalLandedURL:  landedURL,
		CleanedTextPath: path,
		PageType:        c.classifier.Classify(landedURL),
	}, nil
}
