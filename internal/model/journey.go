package model

// CanonicalDomainJourney aggregates everything observed for one canonical
// base domain during Pass 1. Mutated only through the journey tracker;
// read-only in Pass 2.
type CanonicalDomainJourney struct {
	// JourneyID is a run-unique identifier assigned when the journey is
	// first opened. It ties log lines and failure-log details together.
	JourneyID  string `json:"journey_id"`
	BaseDomain string `json:"base_domain"`

	InputRowIDs  []int    `json:"input_row_ids"`
	CompanyNames []string `json:"company_names"`
	GivenURLs    []string `json:"given_urls"`

	PathfulsAttempted []string                 `json:"pathfuls_attempted"`
	PathfulStatuses   map[string]ScraperStatus `json:"pathful_statuses"`

	PagesByType map[PageType]int `json:"pages_by_type"`

	RegexFoundAnyCandidate bool `json:"regex_found_any_candidate"`

	LLMCallMade         bool       `json:"llm_call_made"`
	LLMErrorEncountered bool       `json:"llm_error_encountered"`
	LLMErrorMessages    []string   `json:"llm_error_messages,omitempty"`
	RawLLMNumberCount   int        `json:"raw_llm_number_count"`
	TokenUsage          TokenUsage `json:"token_usage"`

	ConsolidatedNumberCount int            `json:"consolidated_number_count"`
	ConsolidatedTypeCounts  map[string]int `json:"consolidated_type_counts,omitempty"`
	FilteredAllOut          bool           `json:"filtered_all_out"`

	FinalDomainOutcomeReason string `json:"final_domain_outcome_reason,omitempty"`
	PrimaryFaultCategory     string `json:"primary_fault_category,omitempty"`
}

// OverallStatus derives the domain status as the best pathful status.
func (j *CanonicalDomainJourney) OverallStatus() ScraperStatus {
	statuses := make([]ScraperStatus, 0, len(j.PathfulStatuses))
	for _, s := range j.PathfulStatuses {
		statuses = append(statuses, s)
	}
	return BestStatus(statuses)
}

// TotalPagesScraped sums scraped pages across page types.
func (j *CanonicalDomainJourney) TotalPagesScraped() int {
	total := 0
	for _, n := range j.PagesByType {
		total += n
	}
	return total
}

// HasRelevantPage reports whether any scraped page carries a contact-bearing
// classification.
func (j *CanonicalDomainJourney) HasRelevantPage() bool {
	for _, pt := range RelevantPageTypes() {
		if j.PagesByType[pt] > 0 {
			return true
		}
	}
	return false
}
