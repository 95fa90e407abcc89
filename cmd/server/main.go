package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kdimtricp/instasave/internal/api"
	"github.com/kdimtricp/instasave/internal/bootstrap"
	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/observability"
	"github.com/kdimtricp/instasave/internal/ratelimit"
	"github.com/kdimtricp/instasave/internal/storage"
	"github.com/kdimtricp/instasave/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap.FallbackLogger().WithError(err).Fatal("failed to load config")
	}

	log := bootstrap.Logger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, log, bootstrap.TracingConfig(cfg))
	if err != nil {
		log.WithError(err).Fatal("failed to initialize tracing")
	}

	components, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize services")
	}
	defer components.Close()

	janitor := storage.NewJanitor(components.Scratch, cfg.Media.SweepSchedule, cfg.Media.SweepMaxAge, log)
	if err := janitor.Start(); err != nil {
		log.WithError(err).Fatal("failed to start scratch janitor")
	}

	app := &api.App{
		Reels:         components.Reels,
		Topics:        components.Topics,
		Analyzer:      components.Service,
		DB:            components.DB,
		Validator:     validation.New(),
		Limiter:       ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		MaxUploadSize: cfg.Server.MaxUploadSize,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Log:           log.Component("api"),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).
			WithField("database", cfg.Database.Type).
			WithField("scratch_dir", components.Scratch.Dir()).
			Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	janitor.Stop(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Error("tracing shutdown failed")
	}
}
