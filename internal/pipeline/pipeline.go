// Package pipeline orchestrates the two-pass phone extraction run. Pass 1
// canonicalizes input URLs, crawls each canonical site once, extracts and
// classifies candidate numbers, and consolidates them per base canonical
// domain. Pass 2 joins the per-domain results back onto the input rows and
// derives the final outcome fields.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/consolidate"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/crawler"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/extractor"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/journey"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/outcome"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/report"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scorer"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scrape"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/store"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/urlnorm"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/pkg/anthropic"
)

// Failure-log stage names.
const (
	stageURLValidation = "URL_Validation_Pass1"
	stageScraping      = "Scraping_Pass1"
	stageRegexIO       = "Regex_Extraction_FileReadError"
	stageLLMProcessing = "LLM_Processing_Pass1"
	stageInternalError = "RowProcessing_Pass1_UnhandledException"
)

// Pipeline drives one run over the input table.
type Pipeline struct {
	cfg     *config.Config
	norm    *urlnorm.Normalizer
	crawler *crawler.Crawler
	regex   *extractor.RegexExtractor
	llm     *extractor.LLMExtractor
	st      store.Store
	tracker *journey.Tracker
	runID   string
	runDir  string

	llmMu  sync.Mutex
	llmDur time.Duration
}

// New wires the pipeline components. fetcher and llmClient are the external
// collaborators; st may be a NopStore. runDir receives cleaned page text and
// LLM context artifacts.
func New(cfg *config.Config, fetcher scrape.Fetcher, llmClient anthropic.Client, st store.Store, runID, runDir string) (*Pipeline, error) {
	var robots *scrape.RobotsGate
	if cfg.Scraper.RespectRobotsTxt {
		robots = scrape.NewRobotsGate(cfg.Scraper.RobotsTxtUserAgent)
	}

	cleanedDir := filepath.Join(runDir, "scraped_content", "cleaned_pages_text")
	crawl := crawler.New(
		fetcher,
		scorer.New(cfg.Scraper),
		robots,
		nil, // default page-type keyword lists
		cfg.Scraper,
		cleanedDir,
		cfg.Output.FilenameCompanyMaxLen,
	)

	llm, err := extractor.NewLLMExtractor(llmClient, cfg.LLM)
	if err != nil {
		return nil, err
	}

	if st == nil {
		st = store.NopStore{}
	}

	return &Pipeline{
		cfg:     cfg,
		norm:    urlnorm.New(cfg.Scraper.URLProbingTLDs, nil),
		crawler: crawl,
		regex:   extractor.NewRegexExtractor(cfg.Scraper.SnippetChars, cfg.Scraper.MaxIdenticalNumbersPerPageToLLM),
		llm:     llm,
		st:      st,
		tracker: journey.NewTracker(),
		runID:   runID,
		runDir:  runDir,
	}, nil
}

// domainWork is the Pass 1 unit: one base canonical domain with its distinct
// seed pathfuls and the input rows that mapped to it.
type domainWork struct {
	base  string
	seeds []string
	rows  []model.InputRow
}

// hints returns the country-code hint order for this domain: the first row
// hints win, the configured targets backstop them.
func (w domainWork) hints(defaults []string) []string {
	seen := make(map[string]bool)
	var hints []string
	add := func(codes []string) {
		for _, c := range codes {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			hints = append(hints, c)
		}
	}
	for _, row := range w.rows {
		add(row.TargetCountryCodes)
	}
	add(defaults)
	return hints
}

// Run executes both passes and returns the assembled run data for the report
// writers. The error return covers only unrecoverable setup problems;
// per-row and per-domain failures land in the run data.
func (p *Pipeline) Run(ctx context.Context, rows []model.InputRow) (*report.RunData, error) {
	runStart := time.Now()
	data := &report.RunData{
		RunID:   p.runID,
		Domains: make(map[string]*report.DomainResult),
	}
	data.Metrics.RunStart = runStart
	data.Metrics.RowsRead = len(rows)
	data.Metrics.PagesByType = make(map[model.PageType]int)
	data.Metrics.FailuresByStage = make(map[string]int)
	data.Metrics.AttritionByFault = make(map[string]int)

	log := zap.L().With(zap.String("run_id", p.runID))
	log.Info("pipeline: starting run", zap.Int("rows", len(rows)))

	// Pass 1a: canonicalize every row in input order. DNS probing is the
	// only suspension point here, so this stays sequential and deterministic.
	mappings := make(map[int]model.CanonicalMapping, len(rows))
	duplicates := make(map[int]bool)
	pathfulOwner := make(map[string]int)
	var works []*domainWork
	workByBase := make(map[string]*domainWork)

	for _, row := range rows {
		m := p.norm.Canonicalize(ctx, row.ID, row.GivenURL)
		mappings[row.ID] = m
		if !m.Determined() {
			data.Metrics.RowsSkipped++
			data.Failed = append(data.Failed, report.FailedRow{
				Timestamp:   time.Now(),
				RowID:       row.ID,
				CompanyName: row.CompanyName,
				GivenURL:    row.GivenURL,
				Stage:       stageURLValidation,
				Reason:      string(m.Determination),
				DetailsJSON: detailsJSON(map[string]string{"error": m.DeterminedError}),
			})
			continue
		}
		data.Metrics.RowsProcessed++

		p.tracker.RecordRow(m.BaseCanonical, row.ID, row.CompanyName, row.GivenURL)

		if owner, claimed := pathfulOwner[m.InitialPathful]; claimed {
			duplicates[row.ID] = true
			log.Debug("pipeline: duplicate initial pathful",
				zap.Int("row_id", row.ID),
				zap.Int("owner_row_id", owner),
				zap.String("pathful", m.InitialPathful),
			)
		} else {
			pathfulOwner[m.InitialPathful] = row.ID
		}

		w, ok := workByBase[m.BaseCanonical]
		if !ok {
			w = &domainWork{base: m.BaseCanonical}
			workByBase[m.BaseCanonical] = w
			works = append(works, w)
		}
		w.rows = append(w.rows, row)
		if !duplicates[row.ID] {
			w.seeds = append(w.seeds, m.InitialPathful)
		}
	}

	// Pass 1b: independent base domains in parallel; everything within one
	// domain stays sequential.
	pass1Start := time.Now()
	visited := crawler.NewVisitedSet()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := p.cfg.Batch.MaxConcurrentDomains
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, w := range works {
		w := w
		g.Go(func() error {
			// A panicking domain worker is recorded and must not take the
			// run down with it.
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("pipeline: domain worker panicked",
						zap.String("base", w.base),
						zap.Any("panic", r),
					)
					mu.Lock()
					for _, row := range w.rows {
						data.Failed = append(data.Failed, report.FailedRow{
							Timestamp:   time.Now(),
							RowID:       row.ID,
							CompanyName: row.CompanyName,
							GivenURL:    row.GivenURL,
							Stage:       stageInternalError,
							Reason:      "unhandled exception in domain worker",
							DetailsJSON: detailsJSON(map[string]any{"base": w.base, "panic": toString(r)}),
						})
					}
					mu.Unlock()
				}
			}()
			d, failed := p.processDomain(gctx, w, visited)
			mu.Lock()
			data.Domains[w.base] = d
			data.Failed = append(data.Failed, failed...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	data.Metrics.Pass1Duration = time.Since(pass1Start)
	data.Metrics.LLMDuration = p.llmDur
	data.Metrics.DomainsProcessed = len(works)

	// Pass 2: join domains back onto rows and finalize outcomes.
	pass2Start := time.Now()
	p.composeRows(rows, mappings, duplicates, data)
	data.Metrics.Pass2Duration = time.Since(pass2Start)

	for _, f := range data.Failed {
		data.Metrics.FailuresByStage[f.Stage]++
	}
	data.Metrics.RunEnd = time.Now()

	log.Info("pipeline: run complete",
		zap.Int("rows", len(rows)),
		zap.Int("domains", len(works)),
		zap.Int("contacts", data.Metrics.ContactsFound),
		zap.Duration("took", data.Metrics.RunEnd.Sub(runStart)),
	)
	return data, nil
}

// processDomain is the Pass 1 worker for one base canonical domain: crawl
// each seed pathful (consulting the persistent cache first), extract regex
// candidates from the scraped pages, classify them through the model, and
// consolidate the union.
func (p *Pipeline) processDomain(ctx context.Context, w *domainWork, visited crawler.VisitedRegistry) (*report.DomainResult, []report.FailedRow) {
	d := &report.DomainResult{Base: w.base}
	var failed []report.FailedRow

	companyName := ""
	if len(w.rows) > 0 {
		companyName = w.rows[0].CompanyName
	}
	hints := w.hints(p.cfg.Phone.TargetCountryCodes)

	var pages []model.ScrapedPage
	var cachedOutputs []model.PhoneNumberLLMOutput
	cachedCallMade := false
	var freshSeeds []string

	for _, seed := range w.seeds {
		if rec, err := p.st.GetScrape(ctx, seed); err == nil && rec != nil {
			zap.L().Info("pipeline: seed served from scrape cache",
				zap.String("seed", seed),
				zap.String("cached_by_run", rec.RunID),
			)
			for u, st := range rec.Statuses {
				p.tracker.RecordPathfulStatus(w.base, u, st)
			}
			for pt, n := range rec.PagesByType {
				for i := 0; i < n; i++ {
					p.tracker.RecordPage(w.base, pt)
				}
			}
			if d.CanonicalEntryURL == "" {
				d.CanonicalEntryURL = rec.CanonicalEntryURL
			}
			// Cached token usage is not re-added: the run that populated the
			// cache already accounted for it.
			if llmRec, err := p.st.GetLLM(ctx, seed); err == nil && llmRec != nil {
				cachedOutputs = append(cachedOutputs, llmRec.Outputs...)
				cachedCallMade = cachedCallMade || llmRec.CallMade
			}
			continue
		} else if err != nil {
			zap.L().Warn("pipeline: scrape cache lookup failed", zap.String("seed", seed), zap.Error(err))
		}

		res := p.crawler.Crawl(ctx, seed, companyName, visited)
		for u, st := range res.PathfulStatuses {
			p.tracker.RecordPathfulStatus(w.base, u, st)
		}
		for _, pg := range res.Pages {
			p.tracker.RecordPage(w.base, pg.PageType)
		}
		if d.CanonicalEntryURL == "" {
			d.CanonicalEntryURL = res.CanonicalEntryURL
		}
		pages = append(pages, res.Pages...)
		freshSeeds = append(freshSeeds, seed)

		if err := p.st.PutScrape(ctx, store.ScrapeRecord{
			Pathful:           seed,
			Base:              w.base,
			Statuses:          res.PathfulStatuses,
			PagesByType:       countPages(res.Pages),
			CanonicalEntryURL: res.CanonicalEntryURL,
			RunID:             p.runID,
		}); err != nil {
			zap.L().Warn("pipeline: persisting scrape record failed", zap.String("seed", seed), zap.Error(err))
		}
	}
	if d.CanonicalEntryURL == "" {
		d.CanonicalEntryURL = w.base
	}

	// Regex extraction over the freshly scraped pages.
	var candidates []model.PhoneCandidateItem
	for _, pg := range pages {
		items, err := p.regex.ExtractFromFile(pg.CleanedTextPath, pg.FinalLandedURL, companyName, hints)
		if err != nil {
			failed = append(failed, report.FailedRow{
				Timestamp:   time.Now(),
				CompanyName: companyName,
				Stage:       stageRegexIO,
				Reason:      "cleaned text unreadable",
				DetailsJSON: detailsJSON(map[string]string{"path": pg.CleanedTextPath, "error": err.Error()}),
				PathfulURL:  pg.SourceURL,
			})
			continue
		}
		candidates = append(candidates, items...)
	}
	p.tracker.RecordRegexOutcome(w.base, len(candidates) > 0 || len(cachedOutputs) > 0)

	// LLM classification. A zero chunk budget disables model calls outright.
	ext := &extractor.DomainExtraction{}
	if len(candidates) > 0 && p.cfg.LLM.MaxChunksPerURL != 0 {
		contextDir := filepath.Join(p.runDir, "llm_context", urlnorm.DomainLabel(w.base))
		llmStart := time.Now()
		ext = p.llm.ExtractForDomain(ctx, urlnorm.DomainLabel(w.base), candidates, contextDir)
		p.llmMu.Lock()
		p.llmDur += time.Since(llmStart)
		p.llmMu.Unlock()
	}

	outputs := append(append([]model.PhoneNumberLLMOutput{}, cachedOutputs...), ext.Outputs...)
	callMade := ext.CallMade || cachedCallMade
	p.tracker.RecordLLMResult(w.base, callMade, len(outputs), ext.Usage, ext.Errors)

	if ext.CallMade && len(freshSeeds) > 0 {
		if err := p.st.PutLLM(ctx, store.LLMRecord{
			Pathful:  freshSeeds[0],
			Outputs:  ext.Outputs,
			CallMade: true,
			Usage:    ext.Usage,
		}); err != nil {
			zap.L().Warn("pipeline: persisting LLM record failed", zap.String("base", w.base), zap.Error(err))
		}
	}

	// Consolidation across the union of all pathful outputs.
	cres := consolidate.Consolidate(outputs, hints, p.cfg.Phone.DefaultRegionCode)
	p.tracker.RecordConsolidation(w.base, cres.Numbers, cres.FilteredAllOut)

	d.Journey = p.tracker.Journey(w.base)
	d.Consolidated = cres.Numbers
	d.Eligible = consolidate.EligibleNumbers(cres.Numbers)
	d.RawOutputs = outputs

	reason, fault := outcome.DeriveDomain(outcome.DomainState{
		Journey:             d.Journey,
		EligibleCount:       len(d.Eligible),
		AllLLMChunksErrored: allChunksErrored(ext, outputs),
	})
	d.OutcomeReason = reason
	d.FaultCategory = fault
	p.tracker.SetOutcome(w.base, reason, fault)

	zap.L().Debug("pipeline: domain complete",
		zap.String("journey_id", d.Journey.JourneyID),
		zap.String("base", w.base),
		zap.String("outcome", reason),
		zap.Int("eligible_numbers", len(d.Eligible)),
	)

	if len(ext.Errors) > 0 {
		failed = append(failed, report.FailedRow{
			Timestamp:   time.Now(),
			CompanyName: companyName,
			Stage:       stageLLMProcessing,
			Reason:      "model call failures",
			DetailsJSON: detailsJSON(map[string]any{"base": w.base, "errors": ext.Errors}),
			PathfulURL:  firstOrEmpty(w.seeds),
		})
	}
	return d, failed
}

// allChunksErrored reports whether the model produced no usable
// classification at all: every output is an error substitute and at least
// one transport or parse failure was recorded.
func allChunksErrored(ext *extractor.DomainExtraction, outputs []model.PhoneNumberLLMOutput) bool {
	if !ext.CallMade || len(ext.Errors) == 0 {
		return false
	}
	for _, out := range outputs {
		if !out.IsError() {
			return false
		}
	}
	return true
}

func countPages(pages []model.ScrapedPage) map[model.PageType]int {
	byType := make(map[model.PageType]int)
	for _, pg := range pages {
		byType[pg.PageType]++
	}
	return byType
}

func firstOrEmpty(s []string) string {
	if len(s) > 0 {
		return s[0]
	}
	return ""
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}

func detailsJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
