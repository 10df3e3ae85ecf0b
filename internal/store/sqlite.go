package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scrape_cache (
	pathful      TEXT PRIMARY KEY,
	base         TEXT NOT NULL,
	statuses     TEXT NOT NULL,
	pages        TEXT NOT NULL,
	entry_url    TEXT NOT NULL DEFAULT '',
	run_id       TEXT NOT NULL,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS llm_cache (
	pathful           TEXT PRIMARY KEY,
	outputs           TEXT NOT NULL,
	call_made         INTEGER NOT NULL DEFAULT 0,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	cached_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scrape_cache_base ON scrape_cache(base);
`

// Migrate creates the cache tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetScrape(ctx context.Context, pathful string) (*ScrapeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT pathful, base, statuses, pages, entry_url, run_id, processed_at FROM scrape_cache WHERE pathful = ?`,
		pathful,
	)

	var rec ScrapeRecord
	var statusesJSON, pagesJSON string
	err := row.Scan(&rec.Pathful, &rec.Base, &statusesJSON, &pagesJSON, &rec.CanonicalEntryURL, &rec.RunID, &rec.ProcessedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scrape %s", pathful)
	}
	if err := json.Unmarshal([]byte(statusesJSON), &rec.Statuses); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal statuses")
	}
	if err := json.Unmarshal([]byte(pagesJSON), &rec.PagesByType); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal pages")
	}
	return &rec, nil
}

func (s *SQLiteStore) PutScrape(ctx context.Context, rec ScrapeRecord) error {
	statusesJSON, err := json.Marshal(rec.Statuses)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal statuses")
	}
	pagesJSON, err := json.Marshal(rec.PagesByType)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pages")
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scrape_cache (pathful, base, statuses, pages, entry_url, run_id, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pathful) DO UPDATE SET
			base = excluded.base,
			statuses = excluded.statuses,
			pages = excluded.pages,
			entry_url = excluded.entry_url,
			run_id = excluded.run_id,
			processed_at = excluded.processed_at`,
		rec.Pathful, rec.Base, string(statusesJSON), string(pagesJSON), rec.CanonicalEntryURL, rec.RunID, rec.ProcessedAt,
	)
	return eris.Wrapf(err, "sqlite: put scrape %s", rec.Pathful)
}

func (s *SQLiteStore) GetLLM(ctx context.Context, pathful string) (*LLMRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT pathful, outputs, call_made, prompt_tokens, completion_tokens, total_tokens, cached_at FROM llm_cache WHERE pathful = ?`,
		pathful,
	)

	var rec LLMRecord
	var outputsJSON string
	var callMade int
	err := row.Scan(&rec.Pathful, &outputsJSON, &callMade,
		&rec.Usage.PromptTokens, &rec.Usage.CompletionTokens, &rec.Usage.TotalTokens, &rec.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get llm %s", pathful)
	}
	if err := json.Unmarshal([]byte(outputsJSON), &rec.Outputs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outputs")
	}
	rec.CallMade = callMade != 0
	return &rec, nil
}

func (s *SQLiteStore) PutLLM(ctx context.Context, rec LLMRecord) error {
	outputs := rec.Outputs
	if outputs == nil {
		outputs = []model.PhoneNumberLLMOutput{}
	}
	outputsJSON, err := json.Marshal(outputs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outputs")
	}
	callMade := 0
	if rec.CallMade {
		callMade = 1
	}
	if rec.CachedAt.IsZero() {
		rec.CachedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO llm_cache (pathful, outputs, call_made, prompt_tokens, completion_tokens, total_tokens, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pathful) DO UPDATE SET
			outputs = excluded.outputs,
			call_made = excluded.call_made,
			prompt_tokens = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			total_tokens = excluded.total_tokens,
			cached_at = excluded.cached_at`,
		rec.Pathful, string(outputsJSON), callMade,
		rec.Usage.PromptTokens, rec.Usage.CompletionTokens, rec.Usage.TotalTokens, rec.CachedAt,
	)
	return eris.Wrapf(err, "sqlite: put llm %s", rec.Pathful)
}
