package ai

import (
	"context"
	"time"
)

// Transcriber turns speech in an audio file into English text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer produces a titled, topic-tagged summary of a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*Summary, error)
}

// Generator asks a language model for a JSON document matching schema and
// returns the raw JSON text.
type Generator interface {
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error)
}

type Summary struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	TranscriptionProvider string
	AnalysisProvider      string

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	TranscriptionModel string
	AnalysisModel      string

	GeminiAPIKey string
	GeminiModel  string

	TranscribeTimeout time.Duration
	AnalyzeTimeout    time.Duration
	MaxRetries        int
}

func NewConfig() *Config {
	return &Config{
		TranscriptionProvider: ProviderOpenAI,
		AnalysisProvider:      ProviderOpenAI,
		OpenAIBaseURL:         "https://api.openai.com",
		TranscriptionModel:    "whisper-1",
		AnalysisModel:         "gpt-4o-mini",
		GeminiModel:           "gemini-2.5-flash",
		TranscribeTimeout:     2 * time.Minute,
		AnalyzeTimeout:        time.Minute,
		MaxRetries:            3,
	}
}
