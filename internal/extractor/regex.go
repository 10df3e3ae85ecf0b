// Package extractor finds phone-like candidates in cleaned page text and
// classifies them through chunked LLM calls with an identity-enforcement
// retry protocol.
package extractor

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// phoneRe matches international and regional phone forms: optional +NN or
// 00NN country prefix, digit groups separated by spaces, hyphens, slashes,
// dots, or parentheses. Deliberately loose; the LLM sorts out dates and IDs.
var phoneRe = regexp.MustCompile(`(?:\+|00)?\(?\d{1,4}\)?(?:[\s\-/.]?\(?\d{1,6}\)?){2,8}`)

// RegexExtractor pulls candidate numbers with context snippets out of
// cleaned text.
type RegexExtractor struct {
	snippetChars int
	maxIdentical int
}

// NewRegexExtractor configures snippet width (total characters of context)
// and the per-page cap on identical numbers.
func NewRegexExtractor(snippetChars, maxIdentical int) *RegexExtractor {
	if snippetChars <= 0 {
		snippetChars = 300
	}
	if maxIdentical <= 0 {
		maxIdentical = 3
	}
	return &RegexExtractor{snippetChars: snippetChars, maxIdentical: maxIdentical}
}

// ExtractFromFile reads a cleaned-text file and extracts candidates from it.
func (e *RegexExtractor) ExtractFromFile(path, sourceURL, companyName string, targetHints []string) ([]model.PhoneCandidateItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extractor: read cleaned text %s", path)
	}
	return e.Extract(string(data), sourceURL, companyName, targetHints), nil
}

// Extract returns candidates in page order. Identical numbers on one page
// are capped at the configured occurrence limit.
func (e *RegexExtractor) Extract(text, sourceURL, companyName string, targetHints []string) []model.PhoneCandidateItem {
	matches := phoneRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	runes := []rune(text)
	half := e.snippetChars / 2
	occurrences := make(map[string]int)
	var out []model.PhoneCandidateItem

	for _, m := range matches {
		raw := strings.TrimSpace(text[m[0]:m[1]])
		digits := digitsOf(raw)
		if len(digits) < 7 || len(digits) > 15 {
			continue
		}

		key := digits
		occurrences[key]++
		if occurrences[key] > e.maxIdentical {
			zap.L().Debug("extractor: identical number cap reached",
				zap.String("number", raw),
				zap.String("source_url", sourceURL),
			)
			continue
		}

		out = append(out, model.PhoneCandidateItem{
			CompanyName:        companyName,
			SourceURL:          sourceURL,
			Number:             raw,
			Snippet:            snippetAround(text, runes, m[0], m[1], half),
			TargetCountryHints: targetHints,
		})
	}

	zap.L().Debug("extractor: regex candidates",
		zap.String("source_url", sourceURL),
		zap.Int("count", len(out)),
	)
	return out
}

// digitsOf strips everything but digits.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snippetAround returns up to half runes of context on each side of the
// byte range [start,end).
func snippetAround(text string, runes []rune, start, end, half int) string {
	// Convert byte offsets to rune offsets.
	rStart := len([]rune(text[:start]))
	rEnd := rStart + len([]rune(text[start:end]))

	from := rStart - half
	if from < 0 {
		from = 0
	}
	to := rEnd + half
	if to > len(runes) {
		to = len(runes)
	}
	return string(runes[from:to])
}
