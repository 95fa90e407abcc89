package processing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/models"
	"github.com/kdimtricp/instasave/internal/storage"
)

type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	ExtractAudio(ctx context.Context, mediaPath string) (string, error)
}

// ReelStore is the part of the reel repository the service needs.
type ReelStore interface {
	FindByURL(ctx context.Context, url string) (*models.Reel, error)
	Insert(ctx context.Context, reel *models.Reel) error
}

type ServiceDeps struct {
	Store             ReelStore
	Downloader        Downloader
	Extractor         Extractor
	Pipeline          *Pipeline
	Scratch           storage.Storage
	MaxConcurrentJobs int
	Log               *logger.Logger
}

// Service orchestrates one request end to end: dedup against the store,
// acquire media, analyze, persist, and always clean up scratch files.
type Service struct {
	store      ReelStore
	downloader Downloader
	extractor  Extractor
	pipeline   *Pipeline
	scratch    storage.Storage

	flights singleflight.Group
	jobs    *semaphore.Weighted
	tracer  trace.Tracer
	log     *logger.Logger
}

func NewService(deps ServiceDeps) *Service {
	maxJobs := deps.MaxConcurrentJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Service{
		store:      deps.Store,
		downloader: deps.Downloader,
		extractor:  deps.Extractor,
		pipeline:   deps.Pipeline,
		scratch:    deps.Scratch,
		jobs:       semaphore.NewWeighted(int64(maxJobs)),
		tracer:     otel.Tracer(tracerName),
		log:        deps.Log.Component("service"),
	}
}

// AnalyzeURL returns the stored reel for url when one exists (cached is
// true), otherwise runs the full pipeline and persists the result.
// Concurrent calls for the same url share one run.
func (s *Service) AnalyzeURL(ctx context.Context, url, collection string) (*models.Reel, bool, error) {
	ctx, span := s.tracer.Start(ctx, "processing.AnalyzeURL", trace.WithAttributes(attribute.String("reel.url", url)))
	defer span.End()

	reel, err := s.lookup(ctx, url)
	if err != nil {
		return nil, false, s.fail(span, err)
	}
	if reel != nil {
		span.SetAttributes(attribute.Bool("reel.cached", true))
		return reel, true, nil
	}

	v, err, shared := s.flights.Do(url, func() (any, error) {
		// A flight that finished between the lookup above and Do has
		// already stored the reel.
		if existing, err := s.lookup(ctx, url); err != nil || existing != nil {
			return flightResult{reel: existing, cached: existing != nil}, err
		}
		reel, err := s.runURL(ctx, url, collection)
		return flightResult{reel: reel}, err
	})
	if err != nil {
		return nil, false, s.fail(span, err)
	}

	res := v.(flightResult)
	span.SetAttributes(attribute.Bool("reel.cached", res.cached), attribute.Bool("reel.shared", shared))
	return res.reel, res.cached, nil
}

type flightResult struct {
	reel   *models.Reel
	cached bool
}

func (s *Service) lookup(ctx context.Context, url string) (*models.Reel, error) {
	reel, err := s.store.FindByURL(ctx, url)
	if err == nil {
		return reel, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to look up reel: %w", err)
}

func (s *Service) runURL(ctx context.Context, url, collection string) (*models.Reel, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.jobs.Release(1)

	log := s.log.With("url", url)

	mediaPath, err := runStage(ctx, s.tracer, "media.download", func(ctx context.Context) (string, error) {
		return s.downloader.Download(ctx, url)
	})
	defer s.cleanup(mediaPath)
	if err != nil {
		log.WithError(err).Warn("Media download failed")
		return nil, err
	}

	audioPath, err := runStage(ctx, s.tracer, "media.extract", func(ctx context.Context) (string, error) {
		return s.extractor.ExtractAudio(ctx, mediaPath)
	})
	defer s.cleanup(audioPath)
	if err != nil {
		log.WithError(err).Warn("Audio extraction failed")
		return nil, err
	}

	analysis, err := s.pipeline.Analyze(ctx, Input{AudioPath: audioPath})
	if err != nil {
		log.WithError(err).Warn("Analysis failed")
		return nil, err
	}

	reel := models.NewReel(url, collection, analysis)
	_, err = runStage(ctx, s.tracer, "store.insert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Insert(ctx, reel)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			log.WithError(err).Warn("Reel was stored by another writer first")
		}
		return nil, err
	}

	log.WithField("reel_id", reel.ID).WithField("collection", reel.Collection).Info("Reel analyzed and stored")
	return reel, nil
}

// AnalyzeUpload runs the pipeline over an uploaded file. Upload results are
// never persisted.
func (s *Service) AnalyzeUpload(ctx context.Context, file io.Reader, info storage.FileInfo) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "processing.AnalyzeUpload", trace.WithAttributes(
		attribute.String("upload.filename", info.Filename),
		attribute.Int64("upload.size", info.Size),
	))
	defer span.End()

	if err := s.acquire(ctx); err != nil {
		return nil, s.fail(span, err)
	}
	defer s.jobs.Release(1)

	name, err := s.scratch.SaveFile(file, info)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to store upload: %w", err))
	}
	mediaPath, err := s.scratch.Path(name)
	if err != nil {
		return nil, s.fail(span, err)
	}
	defer s.cleanup(mediaPath)

	audioPath, err := runStage(ctx, s.tracer, "media.extract", func(ctx context.Context) (string, error) {
		return s.extractor.ExtractAudio(ctx, mediaPath)
	})
	defer s.cleanup(audioPath)
	if err != nil {
		return nil, s.fail(span, err)
	}

	result, err := s.pipeline.Analyze(ctx, Input{AudioPath: audioPath})
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.log.WithField("filename", info.Filename).Info("Upload analyzed")
	return result, nil
}

func (s *Service) acquire(ctx context.Context) error {
	if err := s.jobs.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for a pipeline slot: %w", err)
	}
	return nil
}

func (s *Service) cleanup(path string) {
	if path == "" {
		return
	}
	if err := s.scratch.Remove(path); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Failed to remove scratch file")
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
