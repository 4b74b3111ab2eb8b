package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/config"
	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/pkg/anthropic"
)

// ClassifyInput is one processed document handed to the classifier.
type ClassifyInput struct {
	Filename string
	Text     string
}

// Classifier produces a structured analysis per document. A per-document
// failure is recorded inside the document record; the returned error is
// reserved for failures that sink the whole batch.
type Classifier interface {
	Classify(ctx context.Context, docs []ClassifyInput) ([]model.DocumentAnalysis, error)
}

// departments is the fixed list the classifier must choose from. Anything
// outside it is coerced to "Not Specified".
var departments = []string{
	"Alternative Investment Fund and Foreign Portfolio Investors Department",
	"Corporation Finance Department",
	"Department Economic and Policy Analysis",
	"Department of Debt and Hybrid Securities",
	"Enforcement Department - 1",
	"Information Technology Department",
	"Investment Management Department",
	"Market Intermediaries Regulation and Supervision Department",
	"Market Regulation Department",
	"Office of Investor Assistance and Education",
}

// intermediaries is the fixed list of market participants a circular may
// apply to.
var intermediaries = []string{
	"Banker to an Issue",
	"Debentures Trustee",
	"Credit Rating Agency - CRA",
	"KYC (Know Your Client) Registration Agency registered with SEBI",
	"Merchant Bankers",
	"Registrars to an issue and share Transfer Agents",
	"Underwriters",
	"Registered Alternative Investment Funds",
	"Registered Venture Capital Funds",
	"Registered Mutual Funds",
	"Registered Foreign Venture Capital Investors",
	"Registered Custodians",
	"Deemed FPIs (Erstwhile Sub-Accounts)",
	"FPIs / Deemed FPIs (Erstwhile FIIs/QFIs)",
	"Registered Stock Brokers in equity segment",
	"Registered Stock Brokers in Equity Derivative Segment",
	"Registered Stock Brokers in Currency Derivative Segment",
	"Registered Portfolio Managers",
	"Self-Certified Syndicate Banks under the direct ASBA facility (equity issuances)",
}

const departmentAnalysisFailed = "Analysis Failed"

// maxContentChars caps the document text sent per request.
const maxContentChars = 20000

func analysisSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString(`You are an expert analyst specializing in Indian securities regulatory documents. Analyze circular content and respond only with a valid JSON object of this shape:

{
  "department": "exact match from the department list or 'Not Specified'",
  "intermediary": ["exact matches from the intermediary list, or empty"],
  "summary": "concise summary of the circular",
  "key_clauses": ["important regulatory clauses or provisions (max 10)"],
  "key_metrics": ["numerical metrics, percentages, timelines (max 10)"],
  "actionable_items": [{
    "action_title": "...",
    "action_description": "...",
    "responsible_parties": "...",
    "implementation_timeline": "...",
    "compliance_requirements": "...",
    "documentation_needed": "...",
    "monitoring_mechanism": "...",
    "non_compliance_consequences": "..."
  }]
}

AVAILABLE DEPARTMENTS (choose exactly one that best matches):
`)
	for _, d := range departments {
		sb.WriteString("- " + d + "\n")
	}
	sb.WriteString("\nAVAILABLE INTERMEDIARIES (choose all that apply):\n")
	for _, i := range intermediaries {
		sb.WriteString("- " + i + "\n")
	}
	sb.WriteString("\nUse EXACT names from the lists. Ensure the response is valid JSON.")
	return sb.String()
}

const analysisUserPrompt = `Filename: %s

DOCUMENT CONTENT:
%s`

// AnthropicClassifier implements Classifier over the Anthropic API. Small
// sets go through direct messages; batch mode submits everything through
// the Message Batches API and polls for completion.
type AnthropicClassifier struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// NewAnthropicClassifier creates a classifier using the given client.
func NewAnthropicClassifier(client anthropic.Client, cfg config.AnthropicConfig) *AnthropicClassifier {
	return &AnthropicClassifier{client: client, cfg: cfg}
}

func (c *AnthropicClassifier) Classify(ctx context.Context, docs []ClassifyInput) ([]model.DocumentAnalysis, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if c.cfg.UseBatch && len(docs) > 1 {
		return c.classifyBatch(ctx, docs)
	}
	return c.classifyDirect(ctx, docs)
}

func (c *AnthropicClassifier) request(doc ClassifyInput) anthropic.MessageRequest {
	content := doc.Text
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}
	return anthropic.MessageRequest{
		Model:     c.cfg.Model,
		MaxTokens: int64(c.cfg.MaxTokens),
		System:    anthropic.BuildCachedSystemBlocks(analysisSystemPrompt()),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(analysisUserPrompt, doc.Filename, content)},
		},
	}
}

func (c *AnthropicClassifier) classifyDirect(ctx context.Context, docs []ClassifyInput) ([]model.DocumentAnalysis, error) {
	results := make([]model.DocumentAnalysis, 0, len(docs))
	var usage anthropic.TokenUsage

	for _, doc := range docs {
		resp, err := c.client.CreateMessage(ctx, c.request(doc))
		if err != nil {
			zap.L().Warn("classify: message failed",
				zap.String("file", doc.Filename),
				zap.Error(err))
			results = append(results, failedAnalysis(doc, err))
			continue
		}
		usage.Add(resp.Usage)

		results = append(results, parseAnalysis(doc, extractText(resp)))
	}

	usage.LogCost(c.cfg.Model, "document_analysis")
	return results, nil
}

func (c *AnthropicClassifier) classifyBatch(ctx context.Context, docs []ClassifyInput) ([]model.DocumentAnalysis, error) {
	items := make([]anthropic.BatchRequestItem, len(docs))
	for i, doc := range docs {
		items[i] = anthropic.BatchRequestItem{
			CustomID: fmt.Sprintf("doc-%d", i),
			Params:   c.request(doc),
		}
	}

	batch, err := c.client.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return nil, eris.Wrap(err, "classify: create batch")
	}

	batch, err = anthropic.PollBatch(ctx, c.client, batch.ID,
		anthropic.WithPollInterval(c.cfg.PollInterval()),
		anthropic.WithPollTimeout(c.cfg.PollTimeout()))
	if err != nil {
		return nil, eris.Wrap(err, "classify: poll batch")
	}

	iter, err := c.client.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "classify: batch results")
	}
	responses, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, eris.Wrap(err, "classify: collect batch results")
	}

	results := make([]model.DocumentAnalysis, 0, len(docs))
	var usage anthropic.TokenUsage
	for i, doc := range docs {
		resp, ok := responses[fmt.Sprintf("doc-%d", i)]
		if !ok {
			results = append(results, failedAnalysis(doc,
				eris.New("classify: no batch result")))
			continue
		}
		usage.Add(resp.Usage)

		results = append(results, parseAnalysis(doc, extractText(resp)))
	}

	usage.LogCost(c.cfg.Model, "document_analysis")
	return results, nil
}

// analysisPayload mirrors the JSON contract the prompt demands. Actionable
// items tolerate the degenerate bare-string shape some responses produce.
type analysisPayload struct {
	Department      string          `json:"department"`
	Intermediary    []string        `json:"intermediary"`
	Summary         string          `json:"summary"`
	KeyClauses      []string        `json:"key_clauses"`
	KeyMetrics      []string        `json:"key_metrics"`
	ActionableItems json.RawMessage `json:"actionable_items"`
}

// parseAnalysis converts a model response into a document analysis. A
// malformed response yields a failed record rather than an error.
func parseAnalysis(doc ClassifyInput, text string) model.DocumentAnalysis {
	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleanJSON(text)), &payload); err != nil {
		return failedAnalysis(doc, eris.Wrap(err, "classify: parse response"))
	}

	return model.DocumentAnalysis{
		Filename:        doc.Filename,
		Department:      validateDepartment(payload.Department),
		Intermediaries:  payload.Intermediary,
		Summary:         payload.Summary,
		KeyClauses:      payload.KeyClauses,
		KeyMetrics:      payload.KeyMetrics,
		ActionableItems: parseActionableItems(payload.ActionableItems),
		ContentLength:   len(doc.Text),
	}
}

func parseActionableItems(raw json.RawMessage) []model.ActionableItem {
	if len(raw) == 0 {
		return nil
	}
	var items []model.ActionableItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}
	var titles []string
	if err := json.Unmarshal(raw, &titles); err == nil {
		items = make([]model.ActionableItem, len(titles))
		for i, t := range titles {
			items[i] = model.ActionableItem{Title: t}
		}
		return items
	}
	return nil
}

func validateDepartment(dept string) string {
	dept = strings.TrimSpace(dept)
	for _, d := range departments {
		if d == dept {
			return dept
		}
	}
	return "Not Specified"
}

func failedAnalysis(doc ClassifyInput, err error) model.DocumentAnalysis {
	return model.DocumentAnalysis{
		Filename:      doc.Filename,
		Department:    departmentAnalysisFailed,
		ContentLength: len(doc.Text),
		Err:           err.Error(),
	}
}

func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
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

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
