package model

import "strings"

// PhoneCandidateItem is a regex-extracted phone-like string with bounded
// context, sent to the LLM in chunks.
type PhoneCandidateItem struct {
	CompanyName        string   `json:"company_name"`
	SourceURL          string   `json:"source_url"`
	Number             string   `json:"number"`
	Snippet            string   `json:"snippet"`
	TargetCountryHints []string `json:"target_country_hints,omitempty"`
}

// PhoneNumberLLMOutput is one model output per input candidate.
type PhoneNumberLLMOutput struct {
	Number         string `json:"number"`
	Type           string `json:"type"`
	Classification string `json:"classification"`
	SourceURL      string `json:"source_url"`
	CompanyName    string `json:"company_name"`
}

// IsError reports whether the item is an error substitute rather than a
// genuine model classification.
func (o PhoneNumberLLMOutput) IsError() bool {
	return strings.HasPrefix(o.Type, "Error_") || strings.HasPrefix(o.Classification, "Error_")
}

// Classification priority, highest first. Error_* ranks below everything.
var classificationRank = map[string]int{
	"Primary":       0,
	"Secondary":     1,
	"Support":       2,
	"Low-Relevance": 3,
	"Non-Business":  4,
}

// ClassificationRank returns the priority rank of a classification; lower is
// better. Unknown and Error_* classifications rank last.
func ClassificationRank(classification string) int {
	if r, ok := classificationRank[classification]; ok {
		return r
	}
	return len(classificationRank)
}

// Type priority for tie-breaking within one classification.
var typeRank = map[string]int{
	"Main Line":        0,
	"Sales":            1,
	"Customer Service": 2,
	"Support":          3,
	"Info-Hotline":     4,
}

// TypeRank returns the priority rank of a number type; lower is better.
// Types outside the named set rank after them, with Non-Priority-Country
// Contact and Unknown last.
func TypeRank(numberType string) int {
	if r, ok := typeRank[numberType]; ok {
		return r
	}
	switch numberType {
	case "Non-Priority-Country Contact":
		return len(typeRank) + 1
	case "Unknown":
		return len(typeRank) + 2
	}
	return len(typeRank)
}

// ConsolidatedSource is one origin of a consolidated number.
type ConsolidatedSource struct {
	SourceURL   string `json:"source_url"`
	Type        string `json:"type"`
	CompanyName string `json:"company_name"`
	Occurrences int    `json:"occurrences"`
}

// ConsolidatedNumber is a deduplicated E.164 number within one canonical
// base domain, with aggregated sources and the best classification.
type ConsolidatedNumber struct {
	Number         string               `json:"number"` // E.164
	Classification string               `json:"classification"`
	Sources        []ConsolidatedSource `json:"sources"`
}

// BestType returns the highest-priority type among the sources.
func (c ConsolidatedNumber) BestType() string {
	best := ""
	bestRank := int(^uint(0) >> 1)
	for _, s := range c.Sources {
		if r := TypeRank(s.Type); r < bestRank {
			best = s.Type
			bestRank = r
		}
	}
	return best
}

// Types returns the distinct source types in priority order.
func (c ConsolidatedNumber) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, s := range c.Sources {
		if s.Type == "" || seen[s.Type] {
			continue
		}
		seen[s.Type] = true
		types = append(types, s.Type)
	}
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && TypeRank(types[j]) < TypeRank(types[j-1]); j-- {
			types[j], types[j-1] = types[j-1], types[j]
		}
	}
	return types
}

// TokenUsage tracks aggregated token consumption for LLM calls.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
