package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/topics"
)

// MaxTranscriptRunes bounds the transcript prefix sent for analysis.
const MaxTranscriptRunes = 8000

const analysisSchemaName = "reel_analysis"

// Analyzer implements Summarizer on top of any structured-output Generator.
type Analyzer struct {
	gen Generator
	log *logger.Logger
}

func NewAnalyzer(gen Generator, log *logger.Logger) *Analyzer {
	return &Analyzer{gen: gen, log: log.Component("analyzer")}
}

// PrepareTranscript collapses whitespace and truncates to
// MaxTranscriptRunes. Truncation is silent.
func PrepareTranscript(transcript string) string {
	collapsed := strings.Join(strings.Fields(transcript), " ")
	runes := []rune(collapsed)
	if len(runes) > MaxTranscriptRunes {
		return string(runes[:MaxTranscriptRunes])
	}
	return collapsed
}

func analysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "A short headline for the reel, at most 8 words.",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "Two or three sentences describing what the reel teaches or claims.",
			},
			"topics": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
				"maxItems": topics.MaxTopics,
			},
		},
		"required":             []string{"title", "summary", "topics"},
		"additionalProperties": false,
	}
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You analyze transcripts of short social media videos.\n")
	b.WriteString("Return a short title, a concise summary and between 1 and 3 topics.\n\n")
	b.WriteString("Choose topics from this list whenever one fits:\n")
	for _, t := range topics.Canonical {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("\nOnly create a new topic when none of the listed topics fits. ")
	b.WriteString("A new topic must be broad and reusable across many videos, at most 3 words, ")
	b.WriteString("and must not name a specific product, person or brand.")
	return b.String()
}

type analysisPayload struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

func (a *Analyzer) Summarize(ctx context.Context, transcript string) (*Summary, error) {
	prepared := PrepareTranscript(transcript)
	user := "Transcript:\n" + prepared

	raw, err := a.gen.GenerateJSON(ctx, systemPrompt(), user, analysisSchemaName, analysisSchema())
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Upstream("analysis request failed").WithCause(err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Upstream("analysis response was empty")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		a.log.WithError(err).WithField("response", truncate(raw, 500)).Error("Undecodable analysis response")
		return nil, apperr.Upstream("analysis response was not valid JSON").WithCause(err)
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		return nil, apperr.Upstream("analysis response had no summary")
	}

	normalized := topics.NormalizeAndClamp(payload.Topics)
	if len(normalized) == 0 {
		return nil, apperr.Upstream("analysis response had no usable topics").
			WithCause(fmt.Errorf("raw topics: %q", payload.Topics))
	}

	return &Summary{
		Title:   topics.CleanTitle(payload.Title),
		Summary: summary,
		Topics:  normalized,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
