// Package bootstrap turns a loaded config into the wired components the
// binaries share: database, scratch storage, media tools, AI providers and
// the reel service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/kdimtricp/instasave/internal/ai"
	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/database"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/media"
	"github.com/kdimtricp/instasave/internal/observability"
	"github.com/kdimtricp/instasave/internal/processing"
	"github.com/kdimtricp/instasave/internal/storage"
)

func Logger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{Level: cfg.Log.Level, Environment: cfg.Log.Environment})
}

func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Type:       cfg.Database.Type,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SQLitePath: cfg.Database.SQLitePath,
	}
}

func AIConfig(cfg *config.Config) *ai.Config {
	return &ai.Config{
		TranscriptionProvider: cfg.AI.TranscriptionProvider,
		AnalysisProvider:      cfg.AI.AnalysisProvider,
		OpenAIAPIKey:          cfg.AI.OpenAIAPIKey,
		OpenAIBaseURL:         cfg.AI.OpenAIBaseURL,
		TranscriptionModel:    cfg.AI.TranscriptionModel,
		AnalysisModel:         cfg.AI.AnalysisModel,
		GeminiAPIKey:          cfg.AI.GeminiAPIKey,
		GeminiModel:           cfg.AI.GeminiModel,
		TranscribeTimeout:     cfg.AI.TranscribeTimeout,
		AnalyzeTimeout:        cfg.AI.AnalyzeTimeout,
		MaxRetries:            cfg.AI.MaxRetries,
	}
}

func TracingConfig(cfg *config.Config) observability.Config {
	return observability.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		Environment:  cfg.Log.Environment,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	}
}

// OpenDatabase connects and applies pending migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	db, err := database.NewDB(DatabaseConfig(cfg))
	if err != nil {
		return nil, err
	}

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		log.WithField("applied", applied).Info("database migrations applied")
	}
	return db, nil
}

type Components struct {
	DB      *database.DB
	Reels   *database.ReelRepository
	Topics  *database.TopicRepository
	Scratch *storage.LocalStorage
	Service *processing.Service
}

// Build wires everything the reel pipeline needs. Close releases what it
// opened.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Components, error) {
	db, err := OpenDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	scratch, err := storage.NewLocalStorage(cfg.Media.ScratchDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize scratch storage: %w", err)
	}

	transcriber, summarizer, err := ai.NewServices(ctx, AIConfig(cfg), log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize AI services: %w", err)
	}

	if cfg.Media.CookiesPath != "" && cfg.Media.CookiesBrowser != "" {
		log.WithField("cookies_path", cfg.Media.CookiesPath).
			WithField("cookies_browser", cfg.Media.CookiesBrowser).
			Warn("Both a cookie file and a cookie browser are configured; using the cookie file")
	}

	cookies := media.CookieConfig{
		FilePath:      cfg.Media.CookiesPath,
		Browser:       cfg.Media.CookiesBrowser,
		ClearAfterUse: cfg.Media.CookiesClear,
	}

	reels := database.NewReelRepository(db)
	service := processing.NewService(processing.ServiceDeps{
		Store:             reels,
		Downloader:        media.NewDownloader(cfg.Media.YtDlpBinary, scratch, cookies, cfg.Media.DownloadTimeout, log),
		Extractor:         media.NewExtractor(cfg.Media.FFmpegBinary, scratch, cfg.Media.ExtractTimeout, log),
		Pipeline:          processing.NewPipeline(transcriber, summarizer, log),
		Scratch:           scratch,
		MaxConcurrentJobs: cfg.Pipeline.MaxConcurrentJobs,
		Log:               log,
	})

	return &Components{
		DB:      db,
		Reels:   reels,
		Topics:  database.NewTopicRepository(db),
		Scratch: scratch,
		Service: service,
	}, nil
}

func (c *Components) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// FallbackLogger is used before configuration has loaded.
func FallbackLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "info"})
}
