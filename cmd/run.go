package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/fetcher"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/pipeline"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/report"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scrape"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/store"
	anthropicpkg "github.com/EmiliosRichards/Phone-Correction-Pipeline/pkg/anthropic"
)

var (
	runInputFile string
	runRowRange  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the input table end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runInputFile != "" {
			cfg.Input.FilePath = runInputFile
		}
		if runRowRange != "" {
			cfg.Input.RowProcessingRange = runRowRange
		}

		rows, err := fetcher.LoadInput(cfg.Input)
		if err != nil {
			return eris.Wrap(err, "load input")
		}
		zap.L().Info("input loaded",
			zap.String("file", cfg.Input.FilePath),
			zap.Int("rows", len(rows)),
		)

		st, err := store.Open(cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open cache store")
		}
		defer st.Close()

		browser, err := scrape.NewBrowserFetcher(cfg.Scraper)
		if err != nil {
			return eris.Wrap(err, "init browser fetcher")
		}
		defer browser.Close()

		llmClient := anthropicpkg.NewClient(cfg.LLM.APIKey)

		runID := report.GenerateRunID(time.Now())
		writer, err := report.NewWriter(cfg.Output, runID)
		if err != nil {
			return eris.Wrap(err, "create run directory")
		}

		p, err := pipeline.New(cfg, browser, llmClient, st, runID, writer.Dir())
		if err != nil {
			return eris.Wrap(err, "build pipeline")
		}

		data, err := p.Run(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		if err := writer.WriteAll(data); err != nil {
			return eris.Wrap(err, "write reports")
		}

		zap.L().Info("run complete",
			zap.String("run_id", runID),
			zap.String("output_dir", writer.Dir()),
			zap.Int("rows", len(data.Rows)),
			zap.Int("domains", len(data.Domains)),
			zap.Int("contacts_found", data.Metrics.ContactsFound),
			zap.Int("failed_rows", len(data.Failed)),
			zap.Int("total_tokens", data.Metrics.TokenUsage.TotalTokens),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInputFile, "input", "", "input file path (overrides config)")
	runCmd.Flags().StringVar(&runRowRange, "rows", "", "1-based row range to process, e.g. \"10-20\", \"5-\", \"-100\"")
	rootCmd.AddCommand(runCmd)
}
