package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
)

const geminiTranscribePrompt = "Transcribe the speech in this audio recording and translate it into English. " +
	"Return only the English transcript as plain text, with no commentary, labels or timestamps. " +
	"If there is no speech, return an empty response."

// GeminiClient serves both provider roles through the Gemini API.
type GeminiClient struct {
	client            *genai.Client
	model             string
	transcribeTimeout time.Duration
	analyzeTimeout    time.Duration
	log               *logger.Logger
}

func NewGeminiClient(ctx context.Context, cfg *Config, log *logger.Logger) (*GeminiClient, error) {
	return newGeminiClient(ctx, cfg, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}, log)
}

func newGeminiClient(ctx context.Context, cfg *Config, cc *genai.ClientConfig, log *logger.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client:            client,
		model:             cfg.GeminiModel,
		transcribeTimeout: cfg.TranscribeTimeout,
		analyzeTimeout:    cfg.AnalyzeTimeout,
		log:               log.Component("gemini"),
	}, nil
}

// Transcribe sends the WAV inline and asks for an English transcript.
func (g *GeminiClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	ctx, cancel := withTimeout(ctx, g.transcribeTimeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiTranscribePrompt),
			genai.NewPartFromBytes(audio, "audio/wav"),
		}, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		g.log.WithError(err).Error("Gemini transcription failed")
		return "", apperr.Upstream("transcription request failed").WithCause(err)
	}
	return strings.TrimSpace(result.Text()), nil
}

func (g *GeminiClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	ctx, cancel := withTimeout(ctx, g.analyzeTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    toGenaiSchema(schema),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), config)
	if err != nil {
		g.log.WithError(err).WithField("schema", schemaName).Error("Gemini analysis failed")
		return "", apperr.Upstream("analysis request failed").WithCause(err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", apperr.Upstream("empty response from Gemini")
	}
	return text, nil
}

// toGenaiSchema converts the JSON-schema subset used for structured output
// into Gemini's schema type. Keywords Gemini does not support, such as
// additionalProperties, are dropped.
func toGenaiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		switch t {
		case "object":
			s.Type = genai.TypeObject
		case "array":
			s.Type = genai.TypeArray
		case "string":
			s.Type = genai.TypeString
		case "integer":
			s.Type = genai.TypeInteger
		case "number":
			s.Type = genai.TypeNumber
		case "boolean":
			s.Type = genai.TypeBoolean
		}
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(child)
			}
		}
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
		s.PropertyOrdering = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
		s.PropertyOrdering = append([]string(nil), s.Required...)
	}

	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if n, ok := intValue(m["minItems"]); ok {
		s.MinItems = &n
	}
	if n, ok := intValue(m["maxItems"]); ok {
		s.MaxItems = &n
	}
	return s
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
