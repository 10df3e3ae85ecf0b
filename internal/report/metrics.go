package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// Metrics aggregates run-level counters for the markdown summary.
type Metrics struct {
	RunStart time.Time
	RunEnd   time.Time

	RowsRead      int
	RowsProcessed int
	RowsSkipped   int

	DomainsProcessed int
	PagesScraped     int
	PagesByType      map[model.PageType]int

	Pass1Duration time.Duration
	LLMDuration   time.Duration
	Pass2Duration time.Duration

	LLMCallsMade int
	TokenUsage   model.TokenUsage
	EstimatedUSD float64

	// FailuresByStage counts failure-log entries per stage_of_failure.
	FailuresByStage map[string]int
	// AttritionByFault counts non-extracted rows per fault category.
	AttritionByFault map[string]int
	ContactsFound    int
}

// FormatMetrics renders the run-metrics markdown document.
func FormatMetrics(data *RunData) string {
	m := data.Metrics
	var b strings.Builder

	fmt.Fprintf(&b, "# Run Metrics: %s\n\n", data.RunID)
	fmt.Fprintf(&b, "Started: %s\n", m.RunStart.Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished: %s\n", m.RunEnd.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total duration: %s\n\n", m.RunEnd.Sub(m.RunStart).Round(time.Second))

	b.WriteString("## Stages\n")
	fmt.Fprintf(&b, "- Rows read: %d\n", m.RowsRead)
	fmt.Fprintf(&b, "- Rows processed: %d\n", m.RowsProcessed)
	fmt.Fprintf(&b, "- Rows skipped: %d\n", m.RowsSkipped)
	fmt.Fprintf(&b, "- Canonical domains processed: %d\n", m.DomainsProcessed)
	fmt.Fprintf(&b, "- Rows with extracted contact: %d\n\n", m.ContactsFound)

	b.WriteString("## Durations\n")
	fmt.Fprintf(&b, "- Pass 1 (scrape + extract): %s\n", m.Pass1Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- LLM + consolidation: %s\n", m.LLMDuration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Pass 2 (reports): %s\n\n", m.Pass2Duration.Round(time.Millisecond))

	b.WriteString("## Scraping\n")
	fmt.Fprintf(&b, "- Pages scraped: %d\n", m.PagesScraped)
	if len(m.PagesByType) > 0 {
		b.WriteString("- Pages by type:\n")
		keys := make([]string, 0, len(m.PagesByType))
		for pt := range m.PagesByType {
			keys = append(keys, string(pt))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s: %d\n", k, m.PagesByType[model.PageType(k)])
		}
	}
	b.WriteString("\n")

	b.WriteString("## LLM Usage\n")
	fmt.Fprintf(&b, "- Calls made: %d\n", m.LLMCallsMade)
	fmt.Fprintf(&b, "- Prompt tokens: %d\n", m.TokenUsage.PromptTokens)
	fmt.Fprintf(&b, "- Completion tokens: %d\n", m.TokenUsage.CompletionTokens)
	fmt.Fprintf(&b, "- Total tokens: %d\n", m.TokenUsage.TotalTokens)
	if m.DomainsProcessed > 0 {
		fmt.Fprintf(&b, "- Avg tokens per domain: %d\n", m.TokenUsage.TotalTokens/m.DomainsProcessed)
	}
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n\n", m.EstimatedUSD)

	b.WriteString("## Failures\n")
	if len(m.FailuresByStage) == 0 {
		b.WriteString("No failures logged.\n")
	} else {
		keys := make([]string, 0, len(m.FailuresByStage))
		for k := range m.FailuresByStage {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", k, m.FailuresByStage[k])
		}
	}
	b.WriteString("\n")

	b.WriteString("## Attrition by Fault Category\n")
	if len(m.AttritionByFault) == 0 {
		b.WriteString("No attrition.\n")
	} else {
		keys := make([]string, 0, len(m.AttritionByFault))
		for k := range m.AttritionByFault {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", k, m.AttritionByFault[k])
		}
	}

	return b.String()
}
