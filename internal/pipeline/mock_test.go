package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/scrape"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/pkg/anthropic"
)

// fakeFetcher serves canned pages keyed by requested pathful URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*scrape.Result
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*scrape.Result, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if res, ok := f.pages[url]; ok {
		return res, nil
	}
	return nil, errors.New("net::ERR_CONNECTION_REFUSED")
}

func (f *fakeFetcher) Close() {}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// echoLLM parses the candidate list out of the prompt and classifies every
// candidate as a primary main line, echoing numbers verbatim.
type echoLLM struct {
	mu    sync.Mutex
	calls int
}

func (c *echoLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	items := candidatesFromPrompt(req.Messages[0].Content)
	outs := make([]model.PhoneNumberLLMOutput, len(items))
	for i, item := range items {
		outs[i] = model.PhoneNumberLLMOutput{
			Number:         item.Number,
			Type:           "Main Line",
			Classification: "Primary",
		}
	}
	body, _ := json.Marshal(outs)
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: string(body)}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 40},
	}, nil
}

func (c *echoLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// candidatesFromPrompt decodes the JSON candidate list embedded in the
// rendered prompt template.
func candidatesFromPrompt(prompt string) []model.PhoneCandidateItem {
	idx := strings.Index(prompt, "Candidates:")
	if idx < 0 {
		return nil
	}
	rest := prompt[idx:]
	start := strings.Index(rest, "[")
	if start < 0 {
		return nil
	}

	var items []model.PhoneCandidateItem
	dec := json.NewDecoder(strings.NewReader(rest[start:]))
	if err := dec.Decode(&items); err != nil {
		return nil
	}
	return items
}
