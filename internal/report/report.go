// Package report writes the run output files: the tabular XLSX reports, the
// run-metrics markdown, and the failure-log CSV. Everything lands under
// {OutputBaseDir}/{RunID}/. Writers are pure functions of the collected run
// data, so re-running them over the same inputs produces identical files.
package report

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// RowResult is the per-input-row view assembled in Pass 2.
type RowResult struct {
	Row                  model.InputRow
	Mapping              model.CanonicalMapping
	NormalizedGivenPhone string // empty when not provided or unparseable
	ScrapingStatus       model.ScraperStatus
	CanonicalEntryURL    string
	OutcomeReason        string
	FaultCategory        string
	OriginalNumberStatus string
	VerificationStatus   string
	LLMErrorSummary      string
	DeterminedAt         time.Time
}

// DomainResult is the per-base-canonical-domain view after consolidation.
type DomainResult struct {
	Base              string
	CanonicalEntryURL string
	Journey           *model.CanonicalDomainJourney
	Consolidated      []model.ConsolidatedNumber
	Eligible          []model.ConsolidatedNumber
	RawOutputs        []model.PhoneNumberLLMOutput
	OutcomeReason     string
	FaultCategory     string
}

// FailedRow is one failure-log entry.
type FailedRow struct {
	Timestamp   time.Time
	RowID       int
	CompanyName string
	GivenURL    string
	Stage       string
	Reason      string
	DetailsJSON string
	PathfulURL  string
}

// RunData is everything the writers consume.
type RunData struct {
	RunID   string
	Rows    []RowResult
	Domains map[string]*DomainResult
	Failed  []FailedRow
	Metrics Metrics
}

// GenerateRunID returns the timestamp-based run identifier.
func GenerateRunID(now time.Time) string {
	return now.Format("20060102_150405")
}

// Writer writes all run outputs into one run directory.
type Writer struct {
	cfg   config.OutputConfig
	runID string
	dir   string
}

// NewWriter creates the run directory and returns a writer bound to it.
func NewWriter(cfg config.OutputConfig, runID string) (*Writer, error) {
	dir := filepath.Join(cfg.BaseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "report: create run directory")
	}
	return &Writer{cfg: cfg, runID: runID, dir: dir}, nil
}

// Dir returns the run output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteAll writes every report. The first error aborts; files already
// written stay in place for inspection.
func (w *Writer) WriteAll(data *RunData) error {
	summaryName := strings.ReplaceAll(w.cfg.ExcelFileNameTemplate, "{run_id}", w.runID)
	if summaryName == "" {
		summaryName = "phone_validation_output_" + w.runID + ".xlsx"
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Pipeline_Summary_Report", func() error {
			return writeXLSX(filepath.Join(w.dir, summaryName), "Summary",
				summaryHeader, summaryRows(data))
		}},
		{"All_LLM_Extractions_Report", func() error {
			return writeXLSX(w.path("All_LLM_Extractions_Report"), "All_LLM_Extractions",
				llmExtractionsHeader, llmExtractionsRows(data))
		}},
		{"Final_Contacts_Report", func() error {
			return writeXLSX(w.path("Final_Contacts_Report"), "Final_Contacts",
				finalContactsHeader, finalContactsRows(data))
		}},
		{"Final_Processed_Contacts_Report", func() error {
			return writeXLSX(w.path("Final_Processed_Contacts_Report"), "Final_Processed_Contacts",
				processedContactsHeader, processedContactsRows(data))
		}},
		{"Row_Attrition_Report", func() error {
			return writeXLSX(w.path("Row_Attrition_Report"), "Row_Attrition",
				attritionHeader, attritionRows(data))
		}},
		{"Canonical_Domain_Processing_Summary", func() error {
			return writeXLSX(w.path("Canonical_Domain_Processing_Summary"), "Canonical_Domain_Summary",
				domainSummaryHeader, domainSummaryRows(data))
		}},
		{"Run_Metrics", func() error {
			return os.WriteFile(filepath.Join(w.dir, "run_metrics_"+w.runID+".md"),
				[]byte(FormatMetrics(data)), 0o644)
		}},
		{"Failed_Rows", func() error {
			return writeFailedRows(filepath.Join(w.dir, "failed_rows_"+w.runID+".csv"), data.Failed)
		}},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return eris.Wrapf(err, "report: write %s", step.name)
		}
		zap.L().Debug("report written", zap.String("report", step.name))
	}
	return nil
}

func (w *Writer) path(name string) string {
	return filepath.Join(w.dir, name+"_"+w.runID+".xlsx")
}

// writeXLSX writes one sheet with a header row. Sheet names are capped at 31
// characters by the XLSX format.
func writeXLSX(path, sheetName string, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().Value = h
	}
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().Value = c
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}
