package processing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kdimtricp/instasave/internal/ai"
	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/models"
)

const tracerName = "github.com/kdimtricp/instasave/internal/processing"

type Input struct {
	AudioPath string
}

// Result is a completed analysis of one audio file.
type Result = models.Analysis

// Pipeline runs transcription and analysis over an extracted audio file.
type Pipeline struct {
	transcriber ai.Transcriber
	summarizer  ai.Summarizer
	tracer      trace.Tracer
	log         *logger.Logger
}

func NewPipeline(transcriber ai.Transcriber, summarizer ai.Summarizer, log *logger.Logger) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		summarizer:  summarizer,
		tracer:      otel.Tracer(tracerName),
		log:         log.Component("pipeline"),
	}
}

// Analyze transcribes then summarizes. Errors from either step are returned
// unchanged and no partial result is produced.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (*Result, error) {
	if in.AudioPath == "" {
		return nil, apperr.MediaNotAvailable("")
	}

	start := time.Now()
	transcript, err := runStage(ctx, p.tracer, "ai.transcribe", func(ctx context.Context) (string, error) {
		return p.transcriber.Transcribe(ctx, in.AudioPath)
	})
	if err != nil {
		return nil, err
	}

	summary, err := runStage(ctx, p.tracer, "ai.summarize", func(ctx context.Context) (*ai.Summary, error) {
		return p.summarizer.Summarize(ctx, transcript)
	})
	if err != nil {
		return nil, err
	}

	p.log.WithField("transcript_chars", len(transcript)).
		WithField("topics", summary.Topics).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Analysis complete")

	return &Result{
		Title:      summary.Title,
		Transcript: transcript,
		Summary:    summary.Summary,
		Topics:     summary.Topics,
	}, nil
}
