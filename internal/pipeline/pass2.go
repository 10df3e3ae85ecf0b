package pipeline

import (
	"strings"
	"time"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/consolidate"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/outcome"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/report"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/urlnorm"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/pkg/anthropic"
)

// composeRows is Pass 2: it walks the input rows in order, joins each with
// its domain result, derives the final outcome fields, and accumulates the
// run metrics. Domain state is read-only here.
func (p *Pipeline) composeRows(rows []model.InputRow, mappings map[int]model.CanonicalMapping, duplicates map[int]bool, data *report.RunData) {
	now := time.Now()

	for _, row := range rows {
		m := mappings[row.ID]
		d := data.Domains[m.BaseCanonical]

		var j *model.CanonicalDomainJourney
		eligible := 0
		chunksErrored := false
		entryURL := ""
		llmErrSummary := ""
		if d != nil {
			j = d.Journey
			eligible = len(d.Eligible)
			entryURL = d.CanonicalEntryURL
			chunksErrored = domainChunksErrored(d)
			if j != nil {
				llmErrSummary = strings.Join(j.LLMErrorMessages, " | ")
			}
		}

		reason, fault := outcome.DeriveRow(outcome.RowState{
			Mapping:                  m,
			Journey:                  j,
			DuplicateOfProcessedBase: duplicates[row.ID],
			EligibleCount:            eligible,
			AllLLMChunksErrored:      chunksErrored,
		})

		status := model.StatusInvalidURL
		switch {
		case j != nil && duplicates[row.ID] && reason == outcome.ReasonCanonicalDuplicate:
			status = model.StatusAlreadyProcessed
		case j != nil:
			status = j.OverallStatus()
		}

		hints := row.TargetCountryCodes
		if len(hints) == 0 {
			hints = p.cfg.Phone.TargetCountryCodes
		}
		normalizedGiven, _ := consolidate.NormalizeE164(row.GivenPhoneNumber, hints, p.cfg.Phone.DefaultRegionCode)

		var elig []model.ConsolidatedNumber
		if d != nil {
			elig = d.Eligible
		}
		origStatus := outcome.OriginalNumberStatus(row.GivenPhoneNumber, normalizedGiven, elig, reason)

		redirectedTo := ""
		if entryBase := urlnorm.BaseOf(entryURL); entryBase != "" && m.BaseCanonical != "" && entryBase != m.BaseCanonical {
			redirectedTo = entryBase
		}
		verification := outcome.OverallVerificationStatus(reason, status, redirectedTo)

		data.Rows = append(data.Rows, report.RowResult{
			Row:                  row,
			Mapping:              m,
			NormalizedGivenPhone: normalizedGiven,
			ScrapingStatus:       status,
			CanonicalEntryURL:    entryURL,
			OutcomeReason:        reason,
			FaultCategory:        fault,
			OriginalNumberStatus: origStatus,
			VerificationStatus:   verification,
			LLMErrorSummary:      llmErrSummary,
			DeterminedAt:         now,
		})

		if reason == outcome.ReasonContactExtracted {
			data.Metrics.ContactsFound++
		} else {
			data.Metrics.AttritionByFault[fault]++
		}

		// Rows whose site never yielded a page belong in the failure log
		// with the scrape stage; duplicates of a processed base do not.
		switch reason {
		case outcome.ReasonAllFailedNetwork, outcome.ReasonAllFailedAccessDenied, outcome.ReasonAllContentNotFound:
			data.Failed = append(data.Failed, report.FailedRow{
				Timestamp:   now,
				RowID:       row.ID,
				CompanyName: row.CompanyName,
				GivenURL:    row.GivenURL,
				Stage:       stageScraping,
				Reason:      reason,
				DetailsJSON: detailsJSON(map[string]string{"domain_status": string(status)}),
				PathfulURL:  m.InitialPathful,
			})
		}
	}

	// Domain-level aggregates for the metrics document.
	for _, d := range data.Domains {
		if d.Journey == nil {
			continue
		}
		data.Metrics.PagesScraped += d.Journey.TotalPagesScraped()
		for pt, n := range d.Journey.PagesByType {
			data.Metrics.PagesByType[pt] += n
		}
		if d.Journey.LLMCallMade {
			data.Metrics.LLMCallsMade++
		}
		data.Metrics.TokenUsage.Add(d.Journey.TokenUsage)
	}
	data.Metrics.EstimatedUSD = anthropic.TokenUsage{
		InputTokens:  int64(data.Metrics.TokenUsage.PromptTokens),
		OutputTokens: int64(data.Metrics.TokenUsage.CompletionTokens),
	}.EstimateCost(p.cfg.LLM.ModelName)
}

// domainChunksErrored mirrors the Pass 1 all-chunks-errored judgement from
// the recorded journey state alone.
func domainChunksErrored(d *report.DomainResult) bool {
	if d.Journey == nil || !d.Journey.LLMErrorEncountered {
		return false
	}
	for _, out := range d.RawOutputs {
		if !out.IsError() {
			return false
		}
	}
	return d.Journey.LLMCallMade
}
