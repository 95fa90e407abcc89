package ai

import (
	"context"
	"fmt"

	"github.com/kdimtricp/instasave/internal/logger"
)

// NewServices builds the configured transcription and analysis providers.
// A provider used for both roles is constructed once.
func NewServices(ctx context.Context, cfg *Config, log *logger.Logger) (Transcriber, Summarizer, error) {
	var (
		openAI *OpenAIClient
		gemini *GeminiClient
	)

	for _, p := range []string{cfg.TranscriptionProvider, cfg.AnalysisProvider} {
		switch p {
		case ProviderOpenAI:
			if openAI != nil {
				continue
			}
			if cfg.OpenAIAPIKey == "" {
				return nil, nil, fmt.Errorf("OpenAI API key is required for provider %q", p)
			}
			openAI = NewOpenAIClient(cfg, log)
		case ProviderGemini:
			if gemini != nil {
				continue
			}
			if cfg.GeminiAPIKey == "" {
				return nil, nil, fmt.Errorf("Gemini API key is required for provider %q", p)
			}
			client, err := NewGeminiClient(ctx, cfg, log)
			if err != nil {
				return nil, nil, err
			}
			gemini = client
		default:
			return nil, nil, fmt.Errorf("unknown AI provider %q", p)
		}
	}

	var transcriber Transcriber
	if cfg.TranscriptionProvider == ProviderGemini {
		transcriber = gemini
	} else {
		transcriber = openAI
	}

	var gen Generator
	if cfg.AnalysisProvider == ProviderGemini {
		gen = gemini
	} else {
		gen = openAI
	}

	log.WithField("transcription", cfg.TranscriptionProvider).
		WithField("analysis", cfg.AnalysisProvider).
		Info("AI services configured")

	return transcriber, NewAnalyzer(gen, log), nil
}
