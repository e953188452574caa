// Package assistant answers policy questions and analyzes claim coverage by
// combining similarity search results with an LLM.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/search"
)

// ErrNoRelevantContext is returned when no stored chunks match the question.
var ErrNoRelevantContext = errors.New("no relevant policy text found")

// Generator produces text from a prompt. *llm.Client satisfies this.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answer is a grounded response with the chunks it drew from.
type Answer struct {
	Text    string               `json:"text"`
	Sources []models.ScoredChunk `json:"sources"`
}

// CoverageAnalysis is the structured verdict for a claim incident. IsCovered
// is "YES", "NO", or "UNCLEAR" when the policy text does not settle it.
type CoverageAnalysis struct {
	IsCovered          string `json:"is_covered"`
	Confidence         string `json:"confidence"`
	Reasoning          string `json:"reasoning"`
	RelevantPolicyText string `json:"relevant_policy_text"`
}

// Assistant wires retrieval and generation together.
type Assistant struct {
	searcher  *search.Searcher
	generator Generator
	topK      int
	logger    *zap.Logger
}

// New creates an Assistant retrieving topK chunks per question.
func New(searcher *search.Searcher, generator Generator, topK int, logger *zap.Logger) *Assistant {
	if topK <= 0 {
		topK = 5
	}
	return &Assistant{searcher: searcher, generator: generator, topK: topK, logger: logger}
}

// Ask answers a free-form question about the stored documents. documentID > 0
// restricts retrieval to one document.
func (a *Assistant) Ask(ctx context.Context, question string, documentID int64) (*Answer, error) {
	results, err := a.searcher.Search(ctx, search.Request{
		Query:      question,
		TopK:       a.topK,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoRelevantContext
	}

	prompt := fmt.Sprintf(`You are an insurance policy assistant. Answer the question using only the policy excerpts below. If the excerpts do not contain the answer, say so plainly.

Policy excerpts:
%s

Question: %s

Answer:`, search.FormatContext(results), question)

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	a.logger.Debug("question answered",
		zap.Int("sources", len(results)),
		zap.Int64("document_id", documentID))
	return &Answer{Text: strings.TrimSpace(text), Sources: results}, nil
}

// AnalyzeCoverage judges whether the described incident is covered, grounded
// in the most relevant policy text. documentID > 0 restricts retrieval to one
// document.
func (a *Assistant) AnalyzeCoverage(ctx context.Context, incident string, documentID int64) (*CoverageAnalysis, error) {
	results, err := a.searcher.Search(ctx, search.Request{
		Query:      incident,
		TopK:       a.topK,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoRelevantContext
	}

	prompt := fmt.Sprintf(`You are an insurance claims analyst. Based on the policy excerpts below, determine whether the described incident is covered.

Policy excerpts:
%s

Incident: %s

Respond with JSON only, in this exact shape:
{"is_covered": "YES" or "NO" or "UNCLEAR", "confidence": "HIGH" or "MEDIUM" or "LOW", "reasoning": "...", "relevant_policy_text": "..."}`,
		search.FormatContext(results), incident)

	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate analysis: %w", err)
	}

	var analysis CoverageAnalysis
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis %q: %w", text, err)
	}
	return &analysis, nil
}

// stripFences removes a surrounding markdown code fence, which models often
// add around JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
