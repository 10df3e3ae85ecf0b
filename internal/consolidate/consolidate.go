// Package consolidate deduplicates model-classified numbers per base
// canonical domain into E.164 form with aggregated sources.
package consolidate

import (
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// ineligibleTypes are number types excluded from the contact-focused report.
var ineligibleTypes = map[string]bool{
	"Unknown": true,
	"Fax":     true,
	"Mobile":  true,
	"Date":    true,
	"ID":      true,
}

// Result is the consolidation outcome for one base canonical domain.
type Result struct {
	Numbers []model.ConsolidatedNumber
	// FilteredAllOut is set when there was input but nothing survived
	// E.164 normalization.
	FilteredAllOut bool
	// DroppedUnparseable counts inputs that failed normalization.
	DroppedUnparseable int
}

// NormalizeE164 parses a raw number using each country hint in order, then
// the default region. Returns ok=false when no attempt yields a valid number.
func NormalizeE164(number string, hints []string, defaultRegion string) (string, bool) {
	if strings.TrimSpace(number) == "" {
		return "", false
	}
	regions := make([]string, 0, len(hints)+1)
	for _, h := range hints {
		regions = append(regions, strings.ToUpper(h))
	}
	if defaultRegion != "" {
		regions = append(regions, strings.ToUpper(defaultRegion))
	}

	for _, region := range regions {
		parsed, err := phonenumbers.Parse(number, region)
		if err != nil {
			continue
		}
		if phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164), true
		}
	}
	return "", false
}

// Consolidate normalizes, deduplicates, and ranks the union of LLM outputs
// for one base canonical domain. Error items never survive normalization
// selection into a better classification but are kept as sources when their
// number parses.
func Consolidate(outputs []model.PhoneNumberLLMOutput, hints []string, defaultRegion string) Result {
	var res Result
	if len(outputs) == 0 {
		return res
	}

	type agg struct {
		number      string
		bestClass   string
		bestType    string
		sources     []model.ConsolidatedSource
		sourceIndex map[model.ConsolidatedSource]int
	}
	byNumber := make(map[string]*agg)
	var order []string

	for _, out := range outputs {
		e164, ok := NormalizeE164(out.Number, hints, defaultRegion)
		if !ok {
			res.DroppedUnparseable++
			zap.L().Warn("consolidate: dropping unparseable number",
				zap.String("number", out.Number),
				zap.String("source_url", out.SourceURL),
			)
			continue
		}

		a, seen := byNumber[e164]
		if !seen {
			a = &agg{
				number:      e164,
				bestClass:   out.Classification,
				bestType:    out.Type,
				sourceIndex: make(map[model.ConsolidatedSource]int),
			}
			byNumber[e164] = a
			order = append(order, e164)
		} else if better(out.Classification, out.Type, a.bestClass, a.bestType) {
			a.bestClass = out.Classification
			a.bestType = out.Type
		}

		key := model.ConsolidatedSource{
			SourceURL:   out.SourceURL,
			Type:        out.Type,
			CompanyName: out.CompanyName,
		}
		if i, ok := a.sourceIndex[key]; ok {
			a.sources[i].Occurrences++
		} else {
			key.Occurrences = 1
			a.sourceIndex[key] = len(a.sources)
			a.sources = append(a.sources, key)
		}
	}

	for _, e164 := range order {
		a := byNumber[e164]
		res.Numbers = append(res.Numbers, model.ConsolidatedNumber{
			Number:         a.number,
			Classification: a.bestClass,
			Sources:        a.sources,
		})
	}

	sort.SliceStable(res.Numbers, func(i, j int) bool {
		a, b := res.Numbers[i], res.Numbers[j]
		ar, br := model.ClassificationRank(a.Classification), model.ClassificationRank(b.Classification)
		if ar != br {
			return ar < br
		}
		atr, btr := model.TypeRank(a.BestType()), model.TypeRank(b.BestType())
		if atr != btr {
			return atr < btr
		}
		return a.Number < b.Number
	})

	res.FilteredAllOut = len(res.Numbers) == 0
	return res
}

// better reports whether classification/type pair (c1, t1) outranks (c2, t2).
func better(c1, t1, c2, t2 string) bool {
	r1, r2 := model.ClassificationRank(c1), model.ClassificationRank(c2)
	if r1 != r2 {
		return r1 < r2
	}
	return model.TypeRank(t1) < model.TypeRank(t2)
}

// Eligible reports whether a consolidated number belongs in the
// contact-focused report: a non-error business classification and no source
// type in the excluded set. A number seen even once as Fax or Mobile is
// suppressed entirely.
func Eligible(c model.ConsolidatedNumber) bool {
	if c.Classification == "Non-Business" || strings.HasPrefix(c.Classification, "Error_") {
		return false
	}
	if len(c.Sources) == 0 {
		return false
	}
	for _, s := range c.Sources {
		if ineligibleTypes[s.Type] || strings.HasPrefix(s.Type, "Error_") {
			return false
		}
	}
	return true
}

// EligibleNumbers filters a consolidated list down to report-eligible
// entries, preserving order.
func EligibleNumbers(numbers []model.ConsolidatedNumber) []model.ConsolidatedNumber {
	var out []model.ConsolidatedNumber
	for _, n := range numbers {
		if Eligible(n) {
			out = append(out, n)
		}
	}
	return out
}
