package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/pkg/anthropic"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []string
	errs      []error
	prompts   []string
}

func (c *scriptedClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	call := len(c.prompts)
	c.prompts = append(c.prompts, req.Messages[0].Content)

	if call < len(c.errs) && c.errs[call] != nil {
		return nil, c.errs[call]
	}
	if call >= len(c.responses) {
		return nil, errors.New("unexpected extra call")
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: c.responses[call]}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func llmConfig() config.LLMConfig {
	return config.LLMConfig{
		ModelName:                  "claude-haiku-4-5-20251001",
		Temperature:                0.5,
		MaxTokens:                  8192,
		MaxRetriesOnNumberMismatch: 1,
		CandidateChunkSize:         10,
		MaxChunksPerURL:            10,
	}
}

func candidates(numbers ...string) []model.PhoneCandidateItem {
	out := make([]model.PhoneCandidateItem, len(numbers))
	for i, n := range numbers {
		out[i] = model.PhoneCandidateItem{
			Number:      n,
			CompanyName: "Acme",
			SourceURL:   fmt.Sprintf("http://example.com/p%d", i),
			Snippet:     "Tel: " + n,
		}
	}
	return out
}

func respFor(items []model.PhoneCandidateItem, mutate func(out []model.PhoneNumberLLMOutput)) string {
	out := make([]model.PhoneNumberLLMOutput, len(items))
	for i, it := range items {
		out[i] = model.PhoneNumberLLMOutput{Number: it.Number, Type: "Main Line", Classification: "Primary"}
	}
	if mutate != nil {
		mutate(out)
	}
	data, _ := json.Marshal(out)
	return string(data)
}

func TestExtractForDomainHappyPath(t *testing.T) {
	cands := candidates("+49 30 1", "+49 30 2")
	client := &scriptedClient{responses: []string{respFor(cands, nil)}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	assert.True(t, res.CallMade)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "+49 30 1", res.Outputs[0].Number)
	assert.Equal(t, "http://example.com/p0", res.Outputs[0].SourceURL)
	assert.Equal(t, "Acme", res.Outputs[0].CompanyName)
	assert.Equal(t, model.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}, res.Usage)
}

func TestExtractForDomainNoCandidates(t *testing.T) {
	e, err := NewLLMExtractor(&scriptedClient{}, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", nil, "")
	assert.False(t, res.CallMade)
	assert.Empty(t, res.Outputs)
}

func TestExtractForDomainCodeFencedResponse(t *testing.T) {
	cands := candidates("+49 30 1")
	fenced := "```json\n" + respFor(cands, nil) + "\n```"
	client := &scriptedClient{responses: []string{fenced}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "Main Line", res.Outputs[0].Type)
}

func TestExtractForDomainMismatchRetry(t *testing.T) {
	cands := candidates("+49 30 1", "+49 30 2")

	// First response corrupts the second number; retry fixes it.
	first := respFor(cands, func(out []model.PhoneNumberLLMOutput) {
		out[1].Number = "+49 30 999"
	})
	second := `[{"number":"+49 30 2","type":"Sales","classification":"Secondary"}]`
	client := &scriptedClient{responses: []string{first, second}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	require.Len(t, client.prompts, 2)
	// Retry prompt carries only the mismatched candidate.
	assert.NotContains(t, client.prompts[1], "+49 30 1")
	assert.Contains(t, client.prompts[1], "+49 30 2")

	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "Main Line", res.Outputs[0].Type)
	assert.Equal(t, "Sales", res.Outputs[1].Type)
	assert.Equal(t, model.TokenUsage{PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300}, res.Usage)
}

func TestExtractForDomainPersistentMismatch(t *testing.T) {
	cands := candidates("+49 30 1")
	bad := `[{"number":"+49 30 777","type":"Main Line","classification":"Primary"}]`
	client := &scriptedClient{responses: []string{bad, bad}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	require.Len(t, res.Outputs, 1)
	out := res.Outputs[0]
	assert.Equal(t, "+49 30 1", out.Number) // original, not the model's invention
	assert.Equal(t, "Error_PersistentMismatch", out.Type)
	assert.Equal(t, "Non-Business", out.Classification)
	assert.Equal(t, "http://example.com/p0", out.SourceURL)
	assert.True(t, out.IsError())
}

func TestExtractForDomainLengthMismatchRetries(t *testing.T) {
	cands := candidates("+49 30 1", "+49 30 2")
	short := `[{"number":"+49 30 1","type":"Main Line","classification":"Primary"}]`
	client := &scriptedClient{responses: []string{short, respFor(cands, nil)}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	// Length mismatch treats the whole chunk as mismatched; the retry
	// resends both and succeeds.
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "Main Line", res.Outputs[0].Type)
	assert.Equal(t, "Main Line", res.Outputs[1].Type)
}

func TestExtractForDomainTransportError(t *testing.T) {
	cands := candidates("+49 30 1")
	client := &scriptedClient{errs: []error{errors.New("rate limited")}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "Error_LLMTransport", res.Outputs[0].Type)
	assert.NotEmpty(t, res.Errors)
}

func TestExtractForDomainParseError(t *testing.T) {
	cands := candidates("+49 30 1")
	client := &scriptedClient{responses: []string{"I cannot help with that."}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "Error_LLMParse", res.Outputs[0].Type)
}

func TestExtractForDomainChunking(t *testing.T) {
	cfg := llmConfig()
	cfg.CandidateChunkSize = 2
	cfg.MaxChunksPerURL = 2

	cands := candidates("1111111", "2222222", "3333333", "4444444", "5555555", "6666666")
	client := &scriptedClient{responses: []string{
		respFor(cands[0:2], nil),
		respFor(cands[2:4], nil),
	}}

	e, err := NewLLMExtractor(client, cfg)
	require.NoError(t, err)

	res := e.ExtractForDomain(context.Background(), "example", cands, "")

	// Two chunks of two processed, the rest dropped by the chunk cap.
	assert.Len(t, client.prompts, 2)
	assert.Len(t, res.Outputs, 4)
}

func TestExtractForDomainWritesContextArtifacts(t *testing.T) {
	cands := candidates("+49 30 1")
	client := &scriptedClient{responses: []string{respFor(cands, nil)}}

	e, err := NewLLMExtractor(client, llmConfig())
	require.NoError(t, err)

	dir := t.TempDir()
	e.ExtractForDomain(context.Background(), "example", cands, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	joined := strings.Join(names, " ")
	assert.Contains(t, joined, "_prompt.txt")
	assert.Contains(t, joined, "_response.json")
}

func TestNewLLMExtractorTemplateValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("no placeholder here"), 0o644))

	cfg := llmConfig()
	cfg.PromptTemplatePath = path
	_, err := NewLLMExtractor(&scriptedClient{}, cfg)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("classify these:\n[CANDIDATES_JSON]\n"), 0o644))
	e, err := NewLLMExtractor(&scriptedClient{}, cfg)
	require.NoError(t, err)
	assert.Contains(t, e.template, "[CANDIDATES_JSON]")

	cfg.PromptTemplatePath = filepath.Join(dir, "missing.txt")
	e, err = NewLLMExtractor(&scriptedClient{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, defaultPromptTemplate, e.template)
}

func TestCleanJSONList(t *testing.T) {
	want := `[{"a":1}]`
	assert.Equal(t, want, cleanJSONList("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, want, cleanJSONList("Here you go:\n[{\"a\":1}]\nDone."))
	assert.Equal(t, want, cleanJSONList(want))
}
