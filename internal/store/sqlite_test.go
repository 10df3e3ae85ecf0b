package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestScrapeCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	miss, err := s.GetScrape(ctx, "http://example.com/")
	require.NoError(t, err)
	assert.Nil(t, miss)

	rec := ScrapeRecord{
		Pathful: "http://example.com/",
		Base:    "http://example.com",
		Statuses: map[string]model.ScraperStatus{
			"http://example.com/":        model.StatusSuccess,
			"http://example.com/contact": model.StatusSuccess,
		},
		PagesByType:       map[model.PageType]int{model.PageTypeHomepage: 1, model.PageTypeContact: 1},
		CanonicalEntryURL: "https://www.example.com/",
		RunID:             "20260825_120000",
	}
	require.NoError(t, s.PutScrape(ctx, rec))

	got, err := s.GetScrape(ctx, "http://example.com/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Base, got.Base)
	assert.Equal(t, rec.Statuses, got.Statuses)
	assert.Equal(t, rec.PagesByType, got.PagesByType)
	assert.Equal(t, rec.CanonicalEntryURL, got.CanonicalEntryURL)
	assert.Equal(t, rec.RunID, got.RunID)
	assert.False(t, got.ProcessedAt.IsZero())
}

func TestScrapeCacheUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := ScrapeRecord{
		Pathful:     "http://a.de/",
		Base:        "http://a.de",
		Statuses:    map[string]model.ScraperStatus{"http://a.de/": model.StatusErrorDNS},
		PagesByType: map[model.PageType]int{},
		RunID:       "r1",
	}
	require.NoError(t, s.PutScrape(ctx, rec))

	rec.Statuses["http://a.de/"] = model.StatusSuccess
	rec.RunID = "r2"
	require.NoError(t, s.PutScrape(ctx, rec))

	got, err := s.GetScrape(ctx, "http://a.de/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusSuccess, got.Statuses["http://a.de/"])
	assert.Equal(t, "r2", got.RunID)
}

func TestLLMCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	miss, err := s.GetLLM(ctx, "http://example.com/")
	require.NoError(t, err)
	assert.Nil(t, miss)

	rec := LLMRecord{
		Pathful: "http://example.com/",
		Outputs: []model.PhoneNumberLLMOutput{
			{Number: "+49 30 12345678", Type: "Main Line", Classification: "Primary",
				SourceURL: "https://www.example.com/contact", CompanyName: "ExampleCorp"},
		},
		CallMade: true,
		Usage:    model.TokenUsage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
	}
	require.NoError(t, s.PutLLM(ctx, rec))

	got, err := s.GetLLM(ctx, "http://example.com/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CallMade)
	assert.Equal(t, rec.Outputs, got.Outputs)
	assert.Equal(t, rec.Usage, got.Usage)
}

func TestLLMCacheEmptyOutputs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutLLM(ctx, LLMRecord{Pathful: "http://b.de/", CallMade: true}))
	got, err := s.GetLLM(ctx, "http://b.de/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CallMade)
	assert.Empty(t, got.Outputs)
}

func TestOpenDrivers(t *testing.T) {
	s, err := Open(config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	_, ok := s.(NopStore)
	assert.True(t, ok)

	s, err = Open(config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	_, ok = s.(*SQLiteStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	ctx := context.Background()

	rec, err := s.GetScrape(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, s.PutScrape(ctx, ScrapeRecord{}))

	llm, err := s.GetLLM(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, llm)
	require.NoError(t, s.PutLLM(ctx, LLMRecord{}))
	require.NoError(t, s.Close())
}
