// Package store persists per-pathful scrape snapshots and raw LLM outputs
// so a re-run over the same input can skip completed work.
package store

import (
	"context"
	"time"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// ScrapeRecord is the cached crawl outcome for one seed pathful URL.
type ScrapeRecord struct {
	Pathful           string                         `json:"pathful"`
	Base              string                         `json:"base"`
	Statuses          map[string]model.ScraperStatus `json:"statuses"`
	PagesByType       map[model.PageType]int         `json:"pages_by_type"`
	CanonicalEntryURL string                         `json:"canonical_entry_url"`
	RunID             string                         `json:"run_id"`
	ProcessedAt       time.Time                      `json:"processed_at"`
}

// LLMRecord is the cached model output set for one seed pathful URL.
type LLMRecord struct {
	Pathful  string                       `json:"pathful"`
	Outputs  []model.PhoneNumberLLMOutput `json:"outputs"`
	CallMade bool                         `json:"call_made"`
	Usage    model.TokenUsage             `json:"usage"`
	CachedAt time.Time                    `json:"cached_at"`
}

// Store is the persistence interface for the pipeline caches. Lookups return
// (nil, nil) on a miss.
type Store interface {
	GetScrape(ctx context.Context, pathful string) (*ScrapeRecord, error)
	PutScrape(ctx context.Context, rec ScrapeRecord) error
	GetLLM(ctx context.Context, pathful string) (*LLMRecord, error)
	PutLLM(ctx context.Context, rec LLMRecord) error
	Close() error
}

// Open builds the configured store. Driver "none" disables persistence.
func Open(cfg config.StoreConfig) (Store, error) {
	if cfg.Driver == "none" || cfg.Driver == "" {
		return NopStore{}, nil
	}
	s, err := NewSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NopStore satisfies Store without persisting anything.
type NopStore struct{}

func (NopStore) GetScrape(context.Context, string) (*ScrapeRecord, error) { return nil, nil }
func (NopStore) PutScrape(context.Context, ScrapeRecord) error            { return nil }
func (NopStore) GetLLM(context.Context, string) (*LLMRecord, error)       { return nil, nil }
func (NopStore) PutLLM(context.Context, LLMRecord) error                  { return nil }
func (NopStore) Close() error                                             { return nil }
