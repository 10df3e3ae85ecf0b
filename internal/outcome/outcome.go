// Package outcome derives final outcome reasons and fault categories for
// input rows and canonical domains from recorded pipeline state. Pure
// functions; all state is passed in.
package outcome

import (
	"strings"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// Row outcome reasons, in derivation priority order.
const (
	ReasonInputURLInvalid        = "Input_URL_Invalid"
	ReasonSkippedMaxRedirects    = "Pipeline_Skipped_MaxRedirects_ForInputURL"
	ReasonNoCanonicalDetermined  = "Unknown_NoCanonicalURLDetermined"
	ReasonCanonicalDuplicate     = "Canonical_Duplicate_SkippedProcessing"
	ReasonAllFailedNetwork       = "Scraping_AllAttemptsFailed_Network"
	ReasonAllFailedAccessDenied  = "Scraping_AllAttemptsFailed_AccessDenied"
	ReasonAllContentNotFound     = "Scraping_ContentNotFound_AllAttempts"
	ReasonNoRelevantContentPages = "Scraping_Success_NoRelevantContentPagesFound"
	ReasonNoRegexCandidates      = "Canonical_NoRegexCandidatesFound"
	ReasonLLMProcessingError     = "LLM_Processing_Error_AllAttempts"
	ReasonLLMNoNumbersFound      = "LLM_Output_NoNumbersFound_AllAttempts"
	ReasonLLMNoneRelevant        = "LLM_Output_NumbersFound_NoneRelevant_AllAttempts"
	ReasonContactExtracted       = "Contact_Successfully_Extracted"
	ReasonProcessingGap          = "Unknown_Processing_Gap_NoContact"
)

// Fault categories.
const (
	FaultInputData     = "Input Data Issue"
	FaultWebsite       = "Website Issue"
	FaultPipelineLogic = "Pipeline Logic/Configuration"
	FaultLLM           = "LLM Issue"
	FaultPipelineError = "Pipeline Error"
	FaultUnknown       = "Unknown"
	FaultNone          = "N/A"
)

// faultByReason is the fixed outcome-to-fault mapping. Keys are row-level
// reasons; domain reasons are looked up with their suffix stripped.
var faultByReason = map[string]string{
	ReasonInputURLInvalid:        FaultInputData,
	ReasonSkippedMaxRedirects:    FaultWebsite,
	ReasonNoCanonicalDetermined:  FaultUnknown,
	ReasonCanonicalDuplicate:     FaultPipelineLogic,
	ReasonAllFailedNetwork:       FaultWebsite,
	ReasonAllFailedAccessDenied:  FaultWebsite,
	ReasonAllContentNotFound:     FaultWebsite,
	ReasonNoRelevantContentPages: FaultWebsite,
	ReasonNoRegexCandidates:      FaultPipelineLogic,
	ReasonLLMProcessingError:     FaultLLM,
	ReasonLLMNoNumbersFound:      FaultLLM,
	ReasonLLMNoneRelevant:        FaultLLM,
	ReasonContactExtracted:       FaultNone,
	ReasonProcessingGap:          FaultUnknown,
}

// FaultFor returns the fault category for a row or domain outcome reason.
func FaultFor(reason string) string {
	if f, ok := faultByReason[strings.TrimSuffix(reason, "_ForDomain")]; ok {
		return f
	}
	return FaultUnknown
}

// RowState is everything outcome derivation needs to know about one input
// row after both passes.
type RowState struct {
	Mapping model.CanonicalMapping
	// Journey for the row's base canonical domain; nil when no base was
	// determined.
	Journey *model.CanonicalDomainJourney
	// DuplicateOfProcessedBase is set when this row's initial pathful hit
	// the processed cache while another row's processing of the same base
	// succeeded.
	DuplicateOfProcessedBase bool
	// EligibleCount is the report-eligible consolidated number count for
	// the row's base domain.
	EligibleCount int
	// AllLLMChunksErrored is set when every LLM chunk covering the base
	// domain's candidates failed (transport, parse, or persistent
	// mismatch) with no usable classification.
	AllLLMChunksErrored bool
}

// DeriveRow classifies an input row. First matching rule wins.
func DeriveRow(s RowState) (reason, fault string) {
	defer func() { fault = FaultFor(reason) }()

	if !s.Mapping.Determined() {
		return ReasonInputURLInvalid, ""
	}
	if s.Journey != nil &&
		s.Journey.PathfulStatuses[s.Mapping.InitialPathful] == model.StatusErrorRedirects &&
		s.Journey.TotalPagesScraped() == 0 {
		return ReasonSkippedMaxRedirects, ""
	}
	if s.Journey == nil || s.Mapping.BaseCanonical == "" {
		return ReasonNoCanonicalDetermined, ""
	}
	if s.DuplicateOfProcessedBase && s.EligibleCount == 0 {
		return ReasonCanonicalDuplicate, ""
	}
	if r := scrapeFailureReason(s.Journey); r != "" {
		return r, ""
	}
	if s.Journey.TotalPagesScraped() > 0 && !s.Journey.HasRelevantPage() {
		return ReasonNoRelevantContentPages, ""
	}
	if !s.Journey.RegexFoundAnyCandidate {
		return ReasonNoRegexCandidates, ""
	}
	if s.AllLLMChunksErrored {
		return ReasonLLMProcessingError, ""
	}
	if s.Journey.RawLLMNumberCount == 0 {
		return ReasonLLMNoNumbersFound, ""
	}
	if s.EligibleCount == 0 {
		return ReasonLLMNoneRelevant, ""
	}
	if s.EligibleCount >= 1 {
		return ReasonContactExtracted, ""
	}
	return ReasonProcessingGap, ""
}

// DomainState is the aggregate view used for per-domain classification.
type DomainState struct {
	Journey             *model.CanonicalDomainJourney
	EligibleCount       int
	AllLLMChunksErrored bool
}

// DeriveDomain classifies a base canonical domain. Reasons carry the
// _ForDomain suffix; the rule order mirrors DeriveRow from the scraping
// checks down.
func DeriveDomain(s DomainState) (reason, fault string) {
	defer func() { fault = FaultFor(reason) }()

	if s.Journey == nil {
		return ReasonNoCanonicalDetermined + "_ForDomain", ""
	}
	if r := scrapeFailureReason(s.Journey); r != "" {
		return r + "_ForDomain", ""
	}
	if s.Journey.TotalPagesScraped() > 0 && !s.Journey.HasRelevantPage() {
		return ReasonNoRelevantContentPages + "_ForDomain", ""
	}
	if !s.Journey.RegexFoundAnyCandidate {
		return ReasonNoRegexCandidates + "_ForDomain", ""
	}
	if s.AllLLMChunksErrored {
		return ReasonLLMProcessingError + "_ForDomain", ""
	}
	if s.Journey.RawLLMNumberCount == 0 {
		return ReasonLLMNoNumbersFound + "_ForDomain", ""
	}
	if s.EligibleCount == 0 {
		return ReasonLLMNoneRelevant + "_ForDomain", ""
	}
	return ReasonContactExtracted + "_ForDomain", ""
}

// scrapeFailureReason returns a scraping-failure reason when every recorded
// pathful status falls in one failure set, or "" otherwise. AlreadyProcessed
// entries are neutral and excluded from the check.
func scrapeFailureReason(j *model.CanonicalDomainJourney) string {
	allNetwork, allAccess, allNotFound := true, true, true
	checked := 0
	for _, status := range j.PathfulStatuses {
		if status == model.StatusAlreadyProcessed {
			continue
		}
		checked++
		if !status.IsNetworkError() {
			allNetwork = false
		}
		if !status.IsAccessDenied() {
			allAccess = false
		}
		if !status.IsContentNotFound() {
			allNotFound = false
		}
	}
	if checked == 0 {
		return ""
	}
	switch {
	case allNetwork:
		return ReasonAllFailedNetwork
	case allAccess:
		return ReasonAllFailedAccessDenied
	case allNotFound:
		return ReasonAllContentNotFound
	}
	return ""
}

// OriginalNumberStatus reports how the row's given phone number relates to
// the extracted contacts. Best-effort mapping; normalizedGiven is empty when
// the given number failed E.164 normalization.
func OriginalNumberStatus(givenRaw, normalizedGiven string, eligible []model.ConsolidatedNumber, rowReason string) string {
	if strings.TrimSpace(givenRaw) == "" {
		return "Original_Not_Provided"
	}
	if normalizedGiven == "" {
		return "Original_InvalidFormat"
	}
	top := eligible
	if len(top) > 3 {
		top = top[:3]
	}
	for _, n := range top {
		if n.Number == normalizedGiven {
			return "Verified"
		}
	}
	if len(eligible) > 0 {
		return "Corrected"
	}
	switch rowReason {
	case ReasonLLMNoNumbersFound, ReasonLLMNoneRelevant:
		return "LLM_OutputEmpty_Or_NoRelevant_For_Canonical"
	case ReasonLLMProcessingError, ReasonAllFailedNetwork, ReasonAllFailedAccessDenied,
		ReasonAllContentNotFound, ReasonNoCanonicalDetermined:
		return "LLM_Not_Run_Or_NoOutput_For_Canonical"
	}
	return "No Relevant Match Found by LLM"
}

// OverallVerificationStatus derives the summary-report verification cell
// from the row outcome and the domain's scraper status. redirectedTo is the
// base canonical when it differs from the base derived from the given URL,
// empty otherwise.
func OverallVerificationStatus(rowReason string, domainStatus model.ScraperStatus, redirectedTo string) string {
	status := "Unverified"
	switch rowReason {
	case ReasonContactExtracted:
		status = "Verified_LLM_Match_Found"
	case ReasonAllFailedNetwork, ReasonAllFailedAccessDenied, ReasonAllContentNotFound:
		status = "Unverified_Scrape_" + string(domainStatus)
	case ReasonLLMNoNumbersFound, ReasonLLMNoneRelevant:
		status = "Unverified_LLM_NoRelevantNumbers"
	case ReasonLLMProcessingError:
		status = "Error_LLM_Processing_For_Canonical"
	}
	if redirectedTo != "" {
		status = "RedirectedTo[" + redirectedTo + "]_" + status
	}
	return status
}
