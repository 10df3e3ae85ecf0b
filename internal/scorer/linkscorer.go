// Package scorer extracts internal links from rendered pages and ranks them
// by how likely their path is to carry contact information.
package scorer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scrape"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/urlnorm"
)

// ScoredLink is an internal link that met the queueing threshold.
type ScoredLink struct {
	URL   string
	Score int
}

// LinkScorer scores same-host links against keyword tiers.
type LinkScorer struct {
	targetKeywords   []string
	criticalKeywords []string
	highKeywords     []string
	maxSegments      int
	minScore         int
	excluder         *scrape.PathMatcher
}

// New builds a LinkScorer from the scraper configuration.
func New(cfg config.ScraperConfig) *LinkScorer {
	return &LinkScorer{
		targetKeywords:   lowerAll(cfg.TargetLinkKeywords),
		criticalKeywords: lowerAll(cfg.CriticalPriorityKeywords),
		highKeywords:     lowerAll(cfg.HighPriorityKeywords),
		maxSegments:      cfg.MaxKeywordPathSegments,
		minScore:         cfg.MinScoreToQueue,
		excluder:         scrape.NewPathMatcher(cfg.ExcludeLinkPathPatterns),
	}
}

// FindInternalLinks parses the page, keeps same-host links that mention a
// target keyword, hard-excludes configured path patterns, and returns the
// links whose score meets the queueing threshold. Returned URLs are in
// pathful canonical form.
func (s *LinkScorer) FindInternalLinks(html, baseURL string) []ScoredLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Warn("scorer: unparseable HTML", zap.String("base_url", baseURL), zap.Error(err))
		return nil
	}

	base, err := url.Parse(urlnorm.NormalizePathful(baseURL))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []ScoredLink

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := urlnorm.NormalizePathful(base.ResolveReference(ref).String())
		parsed, err := url.Parse(link)
		if err != nil {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if !strings.EqualFold(parsed.Host, base.Host) {
			return
		}
		if seen[link] {
			return
		}

		linkText := strings.ToLower(strings.TrimSpace(sel.Text()))
		if !s.mentionsTargetKeyword(linkText, strings.ToLower(link)) {
			return
		}

		if s.excluder.IsExcluded(link) {
			zap.L().Info("scorer: link hard excluded",
				zap.String("url", link),
				zap.String("path", parsed.EscapedPath()),
			)
			return
		}

		score := s.Score(parsed.EscapedPath(), linkText)
		if score < s.minScore {
			zap.L().Debug("scorer: link below queue threshold",
				zap.String("url", link),
				zap.Int("score", score),
				zap.Int("min_score", s.minScore),
			)
			return
		}

		seen[link] = true
		out = append(out, ScoredLink{URL: link, Score: score})
	})

	zap.L().Info("scorer: internal links scored",
		zap.String("base_url", baseURL),
		zap.Int("queued", len(out)),
	)
	return out
}

func (s *LinkScorer) mentionsTargetKeyword(linkText, linkURL string) bool {
	for _, kw := range s.targetKeywords {
		if strings.Contains(linkText, kw) || strings.Contains(linkURL, kw) {
			return true
		}
	}
	return false
}

// Score ranks a link by tiered keyword matching on its path segments and
// anchor text. Tiers are maximal, not additive: a critical keyword as an
// exact segment scores 100, a high-priority keyword 90, either kind early in
// the path 80 minus 5 per segment of depth, a target keyword inside a
// segment 50, and a target keyword only in the anchor text 40. Paths deeper
// than the configured segment budget are penalized 5 per excess segment.
func (s *LinkScorer) Score(urlPath, linkText string) int {
	segments := splitSegments(urlPath)
	numSegments := len(segments)
	excess := numSegments - s.maxSegments

	score := 0

	for _, kw := range s.criticalKeywords {
		if containsSegment(segments, kw) {
			val := 100
			if excess > 0 {
				val -= minInt(20, excess*5)
			}
			score = maxInt(score, val)
			if score >= 100 {
				break
			}
		}
	}

	if score < 90 {
		for _, kw := range s.highKeywords {
			if containsSegment(segments, kw) {
				val := 90
				if excess > 0 {
					val -= minInt(20, excess*5)
				}
				score = maxInt(score, val)
				if score >= 90 {
					break
				}
			}
		}
	}

	if score < 80 {
		for _, kw := range append(append([]string{}, s.criticalKeywords...), s.highKeywords...) {
			for i, seg := range segments {
				if seg == kw {
					val := 80 - i*5
					if excess > 0 {
						val -= minInt(15, excess*5)
					}
					score = maxInt(score, val)
					break
				}
			}
			if score >= 80 {
				break
			}
		}
	}

	if score < 50 {
		for _, kw := range s.targetKeywords {
			if segmentContainsSubstring(segments, kw) {
				score = maxInt(score, 50)
				break
			}
		}
	}

	if score < 40 {
		for _, kw := range s.targetKeywords {
			if strings.Contains(linkText, kw) {
				score = maxInt(score, 40)
				break
			}
		}
	}

	return score
}

func splitSegments(urlPath string) []string {
	var out []string
	for _, seg := range strings.Split(strings.Trim(strings.ToLower(urlPath), "/"), "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func containsSegment(segments []string, kw string) bool {
	for _, seg := range segments {
		if seg == kw {
			return true
		}
	}
	return false
}

func segmentContainsSubstring(segments []string, kw string) bool {
	for _, seg := range segments {
		if strings.Contains(seg, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
