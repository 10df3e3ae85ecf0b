// Package journey accumulates per-canonical-domain state across the pipeline
// checkpoints. Domains are independent; writes within one domain are
// serialized by a per-domain lock.
package journey

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// Tracker owns the per-domain journeys for one run.
type Tracker struct {
	mu       sync.Mutex
	journeys map[string]*model.CanonicalDomainJourney
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{journeys: make(map[string]*model.CanonicalDomainJourney)}
}

// get returns the journey for a base domain, creating it on first use.
// Callers must hold t.mu.
func (t *Tracker) get(base string) *model.CanonicalDomainJourney {
	j, ok := t.journeys[base]
	if !ok {
		j = &model.CanonicalDomainJourney{
			JourneyID:       uuid.NewString(),
			BaseDomain:      base,
			PathfulStatuses: make(map[string]model.ScraperStatus),
			PagesByType:     make(map[model.PageType]int),
		}
		t.journeys[base] = j
	}
	return j
}

// RecordRow associates an input row with a base domain after URL
// normalization.
func (t *Tracker) RecordRow(base string, rowID int, companyName, givenURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.get(base)
	j.InputRowIDs = append(j.InputRowIDs, rowID)
	j.CompanyNames = append(j.CompanyNames, companyName)
	j.GivenURLs = append(j.GivenURLs, givenURL)
}

// RecordPathfulStatus records one pathful fetch attempt and its status.
func (t *Tracker) RecordPathfulStatus(base, pathful string, status model.ScraperStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.get(base)
	if _, seen := j.PathfulStatuses[pathful]; !seen {
		j.PathfulsAttempted = append(j.PathfulsAttempted, pathful)
	}
	j.PathfulStatuses[pathful] = status
}

// RecordPage counts one scraped page by its classification.
func (t *Tracker) RecordPage(base string, pageType model.PageType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(base).PagesByType[pageType]++
}

// RecordRegexOutcome records whether regex extraction found any candidate
// anywhere under the base domain. Sticky once true.
func (t *Tracker) RecordRegexOutcome(base string, foundAny bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.get(base)
	j.RegexFoundAnyCandidate = j.RegexFoundAnyCandidate || foundAny
}

// RecordLLMResult records the extraction aggregate for the domain.
func (t *Tracker) RecordLLMResult(base string, callMade bool, rawCount int, usage model.TokenUsage, errMsgs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.get(base)
	j.LLMCallMade = j.LLMCallMade || callMade
	j.RawLLMNumberCount += rawCount
	j.TokenUsage.Add(usage)
	if len(errMsgs) > 0 {
		j.LLMErrorEncountered = true
		j.LLMErrorMessages = append(j.LLMErrorMessages, errMsgs...)
	}
}

// RecordConsolidation records the consolidation outcome for the domain.
func (t *Tracker) RecordConsolidation(base string, numbers []model.ConsolidatedNumber, filteredAllOut bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.get(base)
	j.ConsolidatedNumberCount = len(numbers)
	j.FilteredAllOut = filteredAllOut
	if len(numbers) > 0 {
		j.ConsolidatedTypeCounts = make(map[string]int)
		for _, n := range numbers {
			for _, typ := range n.Types() {
				j.ConsolidatedTypeCounts[typ]++
			}
		}
	}
}

// SetOutcome finalizes the domain outcome fields.
func (t *Tracker) SetOutcome(base, reason, fault string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := t.get(base)
	j.FinalDomainOutcomeReason = reason
	j.PrimaryFaultCategory = fault
}

// Journey returns a snapshot pointer for a base domain, or nil when the
// domain was never recorded. The returned journey must be treated as
// read-only once Pass 2 begins.
func (t *Tracker) Journey(base string) *model.CanonicalDomainJourney {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.journeys[base]
}

// Domains returns all recorded base domains, sorted for deterministic
// iteration.
func (t *Tracker) Domains() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.journeys))
	for base := range t.journeys {
		out = append(out, base)
	}
	sort.Strings(out)
	return out
}
