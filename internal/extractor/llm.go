package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/config"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/internal/model"
	"github.com/EmiliosRichards/Phone-Correction-Pipeline/pkg/anthropic"
)

// Error types substituted for candidates the model could not account for.
const (
	errTypeMismatch  = "Error_PersistentMismatch"
	errTypeParse     = "Error_LLMParse"
	errTypeTransport = "Error_LLMTransport"
)

// candidatesPlaceholder marks where the candidate JSON list is injected into
// the prompt template.
const candidatesPlaceholder = "[CANDIDATES_JSON]"

const defaultPromptTemplate = `You are classifying candidate phone numbers extracted from company websites.

For each candidate below you receive the extracted number, the company name, the source URL, and a snippet of surrounding page text.

Candidates:
[CANDIDATES_JSON]

Return a JSON list with EXACTLY one object per input candidate, in the SAME ORDER. Each object has these fields:
- "number": the candidate's number, copied VERBATIM from the input
- "type": one of "Main Line", "Sales", "Customer Service", "Support", "Info-Hotline", "Fax", "Mobile", "Date", "ID", "Non-Priority-Country Contact", "Unknown"
- "classification": one of "Primary", "Secondary", "Support", "Low-Relevance", "Non-Business"

Judge type and classification from the snippet and URL. A sequence that is not a phone number (a date, an order ID) gets type "Date" or "ID" and classification "Non-Business". Return only the JSON list.`

const systemText = "You classify phone number candidates from web pages. Return only valid JSON."

// DomainExtraction is the aggregated model output for one base canonical
// domain.
type DomainExtraction struct {
	Outputs  []model.PhoneNumberLLMOutput
	Usage    model.TokenUsage
	CallMade bool
	// Errors carries transport/parse failure messages for journey tracking.
	Errors []string
}

// LLMExtractor sends candidate chunks to the model and enforces the
// one-output-per-input identity contract.
type LLMExtractor struct {
	client   anthropic.Client
	cfg      config.LLMConfig
	template string
}

// NewLLMExtractor loads the prompt template from the configured path when
// present, falling back to the built-in template.
func NewLLMExtractor(client anthropic.Client, cfg config.LLMConfig) (*LLMExtractor, error) {
	template := defaultPromptTemplate
	if cfg.PromptTemplatePath != "" {
		data, err := os.ReadFile(cfg.PromptTemplatePath)
		switch {
		case err == nil:
			if !strings.Contains(string(data), candidatesPlaceholder) {
				return nil, eris.Errorf("extractor: prompt template %s lacks %s placeholder", cfg.PromptTemplatePath, candidatesPlaceholder)
			}
			template = string(data)
		case os.IsNotExist(err):
			zap.L().Debug("extractor: no prompt template file, using built-in",
				zap.String("path", cfg.PromptTemplatePath),
			)
		default:
			return nil, eris.Wrap(err, "extractor: read prompt template")
		}
	}
	return &LLMExtractor{client: client, cfg: cfg, template: template}, nil
}

// ExtractForDomain classifies all candidates of one base canonical domain.
// Chunks are processed sequentially; token usage accumulates across chunks
// and mismatch retries. contextDir, when non-empty, receives prompt and raw
// response artifacts for audit.
func (e *LLMExtractor) ExtractForDomain(ctx context.Context, domainLabel string, candidates []model.PhoneCandidateItem, contextDir string) *DomainExtraction {
	res := &DomainExtraction{}
	if len(candidates) == 0 {
		return res
	}
	res.CallMade = true

	chunkSize := e.cfg.CandidateChunkSize
	if chunkSize <= 0 {
		chunkSize = 10
	}
	var chunks [][]model.PhoneCandidateItem
	for i := 0; i < len(candidates); i += chunkSize {
		end := i + chunkSize
		if end > len(candidates) {
			end = len(candidates)
		}
		chunks = append(chunks, candidates[i:end])
	}
	if e.cfg.MaxChunksPerURL > 0 && len(chunks) > e.cfg.MaxChunksPerURL {
		zap.L().Warn("extractor: chunk cap reached, dropping overflow",
			zap.String("domain", domainLabel),
			zap.Int("chunks", len(chunks)),
			zap.Int("cap", e.cfg.MaxChunksPerURL),
		)
		chunks = chunks[:e.cfg.MaxChunksPerURL]
	}

	for ci, chunk := range chunks {
		outputs := e.processChunk(ctx, domainLabel, ci, chunk, contextDir, res)
		res.Outputs = append(res.Outputs, outputs...)
	}
	return res
}

// processChunk runs one chunk through the model, then re-sends shrinking
// mismatch sets until every candidate is accounted for or retries are
// exhausted. Unaccounted candidates become error items.
func (e *LLMExtractor) processChunk(ctx context.Context, domainLabel string, chunkIdx int, chunk []model.PhoneCandidateItem, contextDir string, res *DomainExtraction) []model.PhoneNumberLLMOutput {
	results := make([]model.PhoneNumberLLMOutput, len(chunk))

	pending := make([]int, len(chunk))
	for i := range chunk {
		pending[i] = i
	}

	errType := errTypeMismatch
	attempts := e.cfg.MaxRetriesOnNumberMismatch + 1
	for attempt := 0; attempt < attempts && len(pending) > 0; attempt++ {
		sub := make([]model.PhoneCandidateItem, len(pending))
		for k, idx := range pending {
			sub[k] = chunk[idx]
		}

		tag := fmt.Sprintf("%s_chunk%d_attempt%d", domainLabel, chunkIdx, attempt)
		parsed, usage, err := e.callOnce(ctx, sub, contextDir, tag)
		res.Usage.Add(usage)
		if err != nil {
			msg := fmt.Sprintf("chunk %d attempt %d: %v", chunkIdx, attempt, err)
			res.Errors = append(res.Errors, msg)
			zap.L().Error("extractor: model call failed",
				zap.String("domain", domainLabel),
				zap.Int("chunk", chunkIdx),
				zap.Error(err),
			)
			if eris.Is(err, errParse) {
				errType = errTypeParse
			} else {
				errType = errTypeTransport
			}
			break
		}

		if len(parsed) != len(sub) {
			zap.L().Warn("extractor: output length mismatch, retrying whole set",
				zap.String("domain", domainLabel),
				zap.Int("chunk", chunkIdx),
				zap.Int("want", len(sub)),
				zap.Int("got", len(parsed)),
			)
			continue
		}

		var still []int
		for k, idx := range pending {
			if parsed[k].Number == chunk[idx].Number {
				out := parsed[k]
				out.SourceURL = chunk[idx].SourceURL
				out.CompanyName = chunk[idx].CompanyName
				results[idx] = out
			} else {
				zap.L().Warn("extractor: number identity mismatch",
					zap.String("domain", domainLabel),
					zap.String("want", chunk[idx].Number),
					zap.String("got", parsed[k].Number),
				)
				still = append(still, idx)
			}
		}
		pending = still
	}

	for _, idx := range pending {
		results[idx] = model.PhoneNumberLLMOutput{
			Number:         chunk[idx].Number,
			Type:           errType,
			Classification: "Non-Business",
			SourceURL:      chunk[idx].SourceURL,
			CompanyName:    chunk[idx].CompanyName,
		}
	}
	return results
}

// errParse marks unparseable model responses.
var errParse = eris.New("extractor: unparseable model response")

func (e *LLMExtractor) callOnce(ctx context.Context, items []model.PhoneCandidateItem, contextDir, tag string) ([]model.PhoneNumberLLMOutput, model.TokenUsage, error) {
	var usage model.TokenUsage

	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, usage, eris.Wrap(err, "extractor: marshal candidates")
	}
	prompt := strings.Replace(e.template, candidatesPlaceholder, string(itemsJSON), 1)
	saveArtifact(contextDir, tag+"_prompt.txt", prompt)

	temp := e.cfg.Temperature
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.ModelName,
		MaxTokens:   e.cfg.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: systemText}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, usage, eris.Wrap(err, "extractor: model call")
	}

	usage = model.TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	resp.Usage.LogCost(e.cfg.ModelName, "phone_extraction")

	raw := resp.Text()
	saveArtifact(contextDir, tag+"_response.json", raw)

	var parsed []model.PhoneNumberLLMOutput
	if err := json.Unmarshal([]byte(cleanJSONList(raw)), &parsed); err != nil {
		return nil, usage, eris.Wrapf(errParse, "%v", err)
	}
	return parsed, usage, nil
}

// cleanJSONList extracts a JSON array from text that may carry markdown code
// fences or prose wrapping.
func cleanJSONList(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// saveArtifact writes an LLM context file, best-effort.
func saveArtifact(dir, name, content string) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		zap.L().Warn("extractor: create context dir", zap.Error(err))
		return
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		zap.L().Warn("extractor: save context artifact", zap.String("path", path), zap.Error(err))
	}
}
