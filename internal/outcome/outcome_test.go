package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

func mapping(det model.URLDeterminationStatus) model.CanonicalMapping {
	return model.CanonicalMapping{
		RowID:          1,
		InitialPathful: "http://example.com/",
		BaseCanonical:  "http://example.com",
		Determination:  det,
	}
}

func journeyWith(mutate func(*model.CanonicalDomainJourney)) *model.CanonicalDomainJourney {
	j := &model.CanonicalDomainJourney{
		BaseDomain: "http://example.com",
		PathfulStatuses: map[string]model.ScraperStatus{
			"http://example.com/": model.StatusSuccess,
		},
		PagesByType: map[model.PageType]int{model.PageTypeContact: 1},
	}
	if mutate != nil {
		mutate(j)
	}
	return j
}

func TestDeriveRowOrder(t *testing.T) {
	tests := []struct {
		name       string
		state      RowState
		wantReason string
		wantFault  string
	}{
		{
			name:       "invalid input url",
			state:      RowState{Mapping: mapping(model.URLInvalid)},
			wantReason: ReasonInputURLInvalid,
			wantFault:  FaultInputData,
		},
		{
			name: "max redirects on input url",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.PathfulStatuses["http://example.com/"] = model.StatusErrorRedirects
					j.PagesByType = nil
				}),
			},
			wantReason: ReasonSkippedMaxRedirects,
			wantFault:  FaultWebsite,
		},
		{
			name:       "no canonical determined",
			state:      RowState{Mapping: mapping(model.URLDeterminedOK)},
			wantReason: ReasonNoCanonicalDetermined,
			wantFault:  FaultUnknown,
		},
		{
			name: "duplicate of processed base without contacts",
			state: RowState{
				Mapping:                  mapping(model.URLDeterminedOK),
				Journey:                  journeyWith(nil),
				DuplicateOfProcessedBase: true,
			},
			wantReason: ReasonCanonicalDuplicate,
			wantFault:  FaultPipelineLogic,
		},
		{
			name: "all network failures",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.PathfulStatuses = map[string]model.ScraperStatus{
						"http://example.com/":   model.StatusErrorDNS,
						"http://example.com/k/": model.StatusErrorTimeout,
					}
					j.PagesByType = nil
				}),
			},
			wantReason: ReasonAllFailedNetwork,
			wantFault:  FaultWebsite,
		},
		{
			name: "all access denied",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.PathfulStatuses = map[string]model.ScraperStatus{
						"http://example.com/":  model.StatusErrorAccess,
						"http://example.com/k": model.StatusErrorRobots,
					}
					j.PagesByType = nil
				}),
			},
			wantReason: ReasonAllFailedAccessDenied,
			wantFault:  FaultWebsite,
		},
		{
			name: "all content not found",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.PathfulStatuses = map[string]model.ScraperStatus{
						"http://example.com/": model.StatusErrorNotFound,
					}
					j.PagesByType = nil
				}),
			},
			wantReason: ReasonAllContentNotFound,
			wantFault:  FaultWebsite,
		},
		{
			name: "pages scraped but none relevant",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.PagesByType = map[model.PageType]int{model.PageTypeGeneral: 2}
				}),
			},
			wantReason: ReasonNoRelevantContentPages,
			wantFault:  FaultWebsite,
		},
		{
			name: "no regex candidates",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(nil),
			},
			wantReason: ReasonNoRegexCandidates,
			wantFault:  FaultPipelineLogic,
		},
		{
			name: "all llm chunks errored",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.RegexFoundAnyCandidate = true
					j.LLMCallMade = true
					j.LLMErrorEncountered = true
				}),
				AllLLMChunksErrored: true,
			},
			wantReason: ReasonLLMProcessingError,
			wantFault:  FaultLLM,
		},
		{
			name: "llm found no numbers",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.RegexFoundAnyCandidate = true
					j.LLMCallMade = true
				}),
			},
			wantReason: ReasonLLMNoNumbersFound,
			wantFault:  FaultLLM,
		},
		{
			name: "numbers found but none relevant",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.RegexFoundAnyCandidate = true
					j.LLMCallMade = true
					j.RawLLMNumberCount = 4
				}),
			},
			wantReason: ReasonLLMNoneRelevant,
			wantFault:  FaultLLM,
		},
		{
			name: "contact extracted",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.RegexFoundAnyCandidate = true
					j.LLMCallMade = true
					j.RawLLMNumberCount = 4
				}),
				EligibleCount: 2,
			},
			wantReason: ReasonContactExtracted,
			wantFault:  FaultNone,
		},
		{
			name: "duplicate row shares extracted contacts",
			state: RowState{
				Mapping: mapping(model.URLDeterminedOK),
				Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
					j.RegexFoundAnyCandidate = true
					j.LLMCallMade = true
					j.RawLLMNumberCount = 1
				}),
				DuplicateOfProcessedBase: true,
				EligibleCount:            1,
			},
			wantReason: ReasonContactExtracted,
			wantFault:  FaultNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, fault := DeriveRow(tt.state)
			assert.Equal(t, tt.wantReason, reason)
			assert.Equal(t, tt.wantFault, fault)
		})
	}
}

func TestDeriveRowMixedStatusesNotAllFailed(t *testing.T) {
	// One success among failures: no all-failed rule fires.
	reason, _ := DeriveRow(RowState{
		Mapping: mapping(model.URLDeterminedOK),
		Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
			j.PathfulStatuses = map[string]model.ScraperStatus{
				"http://example.com/":        model.StatusErrorDNS,
				"http://example.com/kontakt": model.StatusSuccess,
			}
		}),
	})
	assert.Equal(t, ReasonNoRegexCandidates, reason)
}

func TestDeriveRowAlreadyProcessedNeutral(t *testing.T) {
	// AlreadyProcessed entries do not defeat the all-network check.
	reason, _ := DeriveRow(RowState{
		Mapping: mapping(model.URLDeterminedOK),
		Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
			j.PathfulStatuses = map[string]model.ScraperStatus{
				"http://example.com/":      model.StatusErrorDNS,
				"http://example.com/start": model.StatusAlreadyProcessed,
			}
			j.PagesByType = nil
		}),
	})
	assert.Equal(t, ReasonAllFailedNetwork, reason)
}

func TestDeriveDomain(t *testing.T) {
	reason, fault := DeriveDomain(DomainState{
		Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
			j.RegexFoundAnyCandidate = true
			j.LLMCallMade = true
			j.RawLLMNumberCount = 2
		}),
		EligibleCount: 1,
	})
	assert.Equal(t, "Contact_Successfully_Extracted_ForDomain", reason)
	assert.Equal(t, FaultNone, fault)

	reason, fault = DeriveDomain(DomainState{
		Journey: journeyWith(func(j *model.CanonicalDomainJourney) {
			j.PathfulStatuses = map[string]model.ScraperStatus{
				"http://example.com/": model.StatusErrorTimeout,
			}
			j.PagesByType = nil
		}),
	})
	assert.Equal(t, "Scraping_AllAttemptsFailed_Network_ForDomain", reason)
	assert.Equal(t, FaultWebsite, fault)

	reason, fault = DeriveDomain(DomainState{})
	assert.Equal(t, "Unknown_NoCanonicalURLDetermined_ForDomain", reason)
	assert.Equal(t, FaultUnknown, fault)
}

func TestFaultForStripsDomainSuffix(t *testing.T) {
	assert.Equal(t, FaultLLM, FaultFor("LLM_Output_NoNumbersFound_AllAttempts_ForDomain"))
	assert.Equal(t, FaultUnknown, FaultFor("Something_Else_Entirely"))
}

func TestOriginalNumberStatus(t *testing.T) {
	eligible := []model.ConsolidatedNumber{
		{Number: "+4930123456"},
		{Number: "+4930777777"},
	}

	assert.Equal(t, "Original_Not_Provided", OriginalNumberStatus("", "", eligible, ReasonContactExtracted))
	assert.Equal(t, "Original_InvalidFormat", OriginalNumberStatus("abc", "", eligible, ReasonContactExtracted))
	assert.Equal(t, "Verified", OriginalNumberStatus("030 123456", "+4930123456", eligible, ReasonContactExtracted))
	assert.Equal(t, "Corrected", OriginalNumberStatus("030 999999", "+4930999999", eligible, ReasonContactExtracted))
	assert.Equal(t, "LLM_OutputEmpty_Or_NoRelevant_For_Canonical",
		OriginalNumberStatus("030 1", "+49301", nil, ReasonLLMNoNumbersFound))
	assert.Equal(t, "LLM_Not_Run_Or_NoOutput_For_Canonical",
		OriginalNumberStatus("030 1", "+49301", nil, ReasonAllFailedNetwork))
	assert.Equal(t, "No Relevant Match Found by LLM",
		OriginalNumberStatus("030 1", "+49301", nil, ReasonNoRegexCandidates))
}

func TestOverallVerificationStatus(t *testing.T) {
	assert.Equal(t, "Verified_LLM_Match_Found",
		OverallVerificationStatus(ReasonContactExtracted, model.StatusSuccess, ""))
	assert.Equal(t, "Unverified_Scrape_Error_DNS",
		OverallVerificationStatus(ReasonAllFailedNetwork, model.StatusErrorDNS, ""))
	assert.Equal(t, "Unverified_LLM_NoRelevantNumbers",
		OverallVerificationStatus(ReasonLLMNoneRelevant, model.StatusSuccess, ""))
	assert.Equal(t, "RedirectedTo[https://www.example.com]_Verified_LLM_Match_Found",
		OverallVerificationStatus(ReasonContactExtracted, model.StatusSuccess, "https://www.example.com"))
	assert.Equal(t, "Unverified",
		OverallVerificationStatus(ReasonProcessingGap, model.StatusSuccess, ""))
}
