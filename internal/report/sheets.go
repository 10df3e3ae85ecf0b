package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/urlnorm"
)

// Column orders below are output contracts; do not reorder.

var summaryHeader = []string{
	"InputRowID", "CompanyName", "GivenURL", "GivenPhoneNumber",
	"NormalizedGivenPhoneNumber", "Description", "CanonicalEntryURL",
	"ScrapingStatus", "Original_Number_Status", "Overall_VerificationStatus",
	"Top_Number_1", "Top_Type_1", "Top_SourceURL_1",
	"Top_Number_2", "Top_Type_2", "Top_SourceURL_2",
	"Top_Number_3", "Top_Type_3", "Top_SourceURL_3",
	"Final_Row_Outcome_Reason", "Determined_Fault_Category",
	"TargetCountryCodes", "RunID",
}

func summaryRows(data *RunData) [][]string {
	rows := make([][]string, 0, len(data.Rows))
	for _, r := range data.Rows {
		cells := []string{
			strconv.Itoa(r.Row.ID),
			r.Row.CompanyName,
			r.Row.GivenURL,
			r.Row.GivenPhoneNumber,
			r.NormalizedGivenPhone,
			r.Row.Description,
			r.CanonicalEntryURL,
			string(r.ScrapingStatus),
			r.OriginalNumberStatus,
			r.VerificationStatus,
		}
		eligible := eligibleFor(data, r.Mapping.BaseCanonical)
		for i := 0; i < 3; i++ {
			if i < len(eligible) {
				n := eligible[i]
				cells = append(cells, n.Number, n.BestType(), bestSourceURL(n))
			} else {
				cells = append(cells, "", "", "")
			}
		}
		cells = append(cells,
			r.OutcomeReason,
			r.FaultCategory,
			strings.Join(r.Row.TargetCountryCodes, ", "),
			data.RunID,
		)
		rows = append(rows, cells)
	}
	return rows
}

var llmExtractionsHeader = []string{
	"CompanyName", "Number", "LLM_Type", "LLM_Classification",
	"LLM_Source_URL", "ScrapingStatus", "TargetCountryCodes", "RunID",
}

// llmExtractionsRows emits one row per source of each consolidated number,
// repeated per input row that maps to the same base canonical domain. The
// Number column is E.164, so every contacts-report number reappears here.
func llmExtractionsRows(data *RunData) [][]string {
	var rows [][]string
	for _, r := range data.Rows {
		d := data.Domains[r.Mapping.BaseCanonical]
		if d == nil {
			continue
		}
		for _, n := range d.Consolidated {
			for _, s := range n.Sources {
				rows = append(rows, []string{
					r.Row.CompanyName,
					n.Number,
					s.Type,
					n.Classification,
					s.SourceURL,
					string(r.ScrapingStatus),
					strings.Join(r.Row.TargetCountryCodes, ", "),
					data.RunID,
				})
			}
		}
	}
	return rows
}

var finalContactsHeader = []string{
	"CompanyName", "GivenURL", "CanonicalEntryURL", "ScrapingStatus",
	"PhoneNumber_1", "SourceURL_1",
	"PhoneNumber_2", "SourceURL_2",
	"PhoneNumber_3", "SourceURL_3",
}

// finalContactsRows emits exactly one row per base canonical domain; the
// phone cells stay blank when no eligible number survived. CompanyName is
// the base URL followed by every distinct input company that mapped to it.
func finalContactsRows(data *RunData) [][]string {
	var rows [][]string
	for _, base := range sortedBases(data) {
		d := data.Domains[base]

		var companies, givenURLs []string
		seenCompany := make(map[string]bool)
		seenURL := make(map[string]bool)
		for _, r := range data.Rows {
			if r.Mapping.BaseCanonical != base {
				continue
			}
			if name := strings.TrimSpace(r.Row.CompanyName); name != "" && !seenCompany[name] {
				seenCompany[name] = true
				companies = append(companies, name)
			}
			if u := strings.TrimSpace(r.Row.GivenURL); u != "" && !seenURL[u] {
				seenURL[u] = true
				givenURLs = append(givenURLs, u)
			}
		}

		status := model.StatusErrorGeneric
		if d.Journey != nil {
			status = d.Journey.OverallStatus()
		}

		cells := []string{
			strings.Join(append([]string{base}, companies...), " - "),
			strings.Join(givenURLs, ", "),
			d.CanonicalEntryURL,
			string(status),
		}
		for i := 0; i < 3; i++ {
			if i < len(d.Eligible) {
				n := d.Eligible[i]
				cells = append(cells, formatContactCell(n), bestSourceURL(n))
			} else {
				cells = append(cells, "", "")
			}
		}
		rows = append(rows, cells)
	}
	return rows
}

// formatContactCell renders "{E164} ({TypesCsv}) [{CompaniesCsv}]".
func formatContactCell(n model.ConsolidatedNumber) string {
	var companies []string
	seen := make(map[string]bool)
	for _, s := range n.Sources {
		if s.CompanyName == "" || seen[s.CompanyName] {
			continue
		}
		seen[s.CompanyName] = true
		companies = append(companies, s.CompanyName)
	}
	return n.Number +
		" (" + strings.Join(n.Types(), ", ") + ")" +
		" [" + strings.Join(companies, ", ") + "]"
}

var processedContactsHeader = []string{
	"Company Name", "URL", "Number", "Number Type", "Number Found At",
}

// processedContactsRows emits one row per eligible consolidated number per
// base canonical domain.
func processedContactsRows(data *RunData) [][]string {
	var rows [][]string
	for _, base := range sortedBases(data) {
		d := data.Domains[base]
		label := urlnorm.DomainLabel(base)
		for _, n := range d.Eligible {
			rows = append(rows, []string{
				label,
				base,
				n.Number,
				n.BestType(),
				bestSourceURL(n),
			})
		}
	}
	return rows
}

var attritionHeader = []string{
	"InputRowID", "CompanyName", "GivenURL", "Derived_Input_CanonicalURL",
	"Final_Processed_Canonical_Domain", "Link_To_Canonical_Domain_Outcome",
	"Final_Row_Outcome_Reason", "Determined_Fault_Category",
	"Relevant_Canonical_URLs", "LLM_Error_Detail_Summary",
	"Input_CompanyName_Total_Count", "Input_CanonicalURL_Total_Count",
	"Is_Input_CompanyName_Duplicate", "Is_Input_CanonicalURL_Duplicate",
	"Is_Input_Row_Considered_Duplicate", "Timestamp_Of_Determination",
}

// attritionRows emits one row per input row that did not end in a
// successfully extracted contact.
func attritionRows(data *RunData) [][]string {
	companyCounts := make(map[string]int)
	urlCounts := make(map[string]int)
	for _, r := range data.Rows {
		if name := strings.TrimSpace(r.Row.CompanyName); name != "" {
			companyCounts[name]++
		}
		if r.Mapping.BaseCanonical != "" {
			urlCounts[r.Mapping.BaseCanonical]++
		}
	}

	var rows [][]string
	for _, r := range data.Rows {
		if r.OutcomeReason == "Contact_Successfully_Extracted" {
			continue
		}

		domainOutcome := ""
		if d := data.Domains[r.Mapping.BaseCanonical]; d != nil {
			domainOutcome = d.OutcomeReason
		}

		companyCount := companyCounts[strings.TrimSpace(r.Row.CompanyName)]
		urlCount := urlCounts[r.Mapping.BaseCanonical]
		dupCompany := companyCount > 1
		dupURL := r.Mapping.BaseCanonical != "" && urlCount > 1

		rows = append(rows, []string{
			strconv.Itoa(r.Row.ID),
			r.Row.CompanyName,
			r.Row.GivenURL,
			r.Mapping.InitialPathful,
			r.Mapping.BaseCanonical,
			domainOutcome,
			r.OutcomeReason,
			r.FaultCategory,
			r.Mapping.BaseCanonical,
			r.LLMErrorSummary,
			strconv.Itoa(companyCount),
			strconv.Itoa(urlCount),
			yesNo(dupCompany),
			yesNo(dupURL),
			yesNo(dupCompany && dupURL),
			r.DeterminedAt.Format("2006-01-02T15:04:05"),
		})
	}
	return rows
}

var domainSummaryHeader = []string{
	"Canonical_Domain", "Input_Row_IDs", "Input_CompanyNames", "Input_GivenURLs",
	"Pathful_URLs_Attempted_List", "Overall_Scraper_Status_For_Domain",
	"Total_Pages_Scraped_For_Domain", "Scraped_Pages_Details_Aggregated",
	"Regex_Candidates_Found_For_Any_Pathful", "LLM_Calls_Made_For_Domain",
	"LLM_Total_Raw_Numbers_Extracted", "LLM_Total_Consolidated_Numbers_Found",
	"LLM_Consolidated_Number_Types_Summary",
	"LLM_Processing_Error_Encountered_For_Domain", "LLM_Error_Messages_Aggregated",
	"Final_Domain_Outcome_Reason", "Primary_Fault_Category_For_Domain",
}

func domainSummaryRows(data *RunData) [][]string {
	var rows [][]string
	for _, base := range sortedBases(data) {
		d := data.Domains[base]
		j := d.Journey
		if j == nil {
			continue
		}

		ids := make([]string, len(j.InputRowIDs))
		for i, id := range j.InputRowIDs {
			ids[i] = strconv.Itoa(id)
		}

		rows = append(rows, []string{
			base,
			strings.Join(ids, ", "),
			strings.Join(j.CompanyNames, ", "),
			strings.Join(j.GivenURLs, ", "),
			strings.Join(j.PathfulsAttempted, ", "),
			string(j.OverallStatus()),
			strconv.Itoa(j.TotalPagesScraped()),
			pagesByTypeSummary(j.PagesByType),
			yesNo(j.RegexFoundAnyCandidate),
			yesNo(j.LLMCallMade),
			strconv.Itoa(j.RawLLMNumberCount),
			strconv.Itoa(j.ConsolidatedNumberCount),
			countSummary(j.ConsolidatedTypeCounts),
			yesNo(j.LLMErrorEncountered),
			strings.Join(j.LLMErrorMessages, " | "),
			d.OutcomeReason,
			d.FaultCategory,
		})
	}
	return rows
}

func eligibleFor(data *RunData, base string) []model.ConsolidatedNumber {
	if d := data.Domains[base]; d != nil {
		return d.Eligible
	}
	return nil
}

// bestSourceURL prefers the source matching the number's best type.
func bestSourceURL(n model.ConsolidatedNumber) string {
	best := n.BestType()
	for _, s := range n.Sources {
		if s.Type == best {
			return s.SourceURL
		}
	}
	if len(n.Sources) > 0 {
		return n.Sources[0].SourceURL
	}
	return ""
}

func sortedBases(data *RunData) []string {
	bases := make([]string, 0, len(data.Domains))
	for base := range data.Domains {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	return bases
}

func pagesByTypeSummary(byType map[model.PageType]int) string {
	keys := make([]string, 0, len(byType))
	for pt := range byType {
		keys = append(keys, string(pt))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + strconv.Itoa(byType[model.PageType(k)])
	}
	return strings.Join(parts, "; ")
}

func countSummary(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + strconv.Itoa(counts[k])
	}
	return strings.Join(parts, "; ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
