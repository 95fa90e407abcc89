package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kdimtricp/instasave/internal/logger"
)

// Janitor removes scratch files left behind by crashed or killed runs.
type Janitor struct {
	storage  Storage
	maxAge   time.Duration
	schedule string
	log      *logger.Logger
	cron     *cron.Cron
}

func NewJanitor(s Storage, schedule string, maxAge time.Duration, log *logger.Logger) *Janitor {
	return &Janitor{
		storage:  s,
		maxAge:   maxAge,
		schedule: schedule,
		log:      log.Component("janitor"),
	}
}

// Start sweeps once immediately, then on the configured schedule.
func (j *Janitor) Start() error {
	j.RunOnce()

	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.RunOnce); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cron = c

	j.log.WithField("schedule", j.schedule).WithField("max_age", j.maxAge.String()).Info("Scratch janitor started")
	return nil
}

func (j *Janitor) RunOnce() {
	removed, err := j.storage.Sweep(j.maxAge)
	if err != nil {
		j.log.WithError(err).Warn("Scratch sweep incomplete")
	}
	if removed > 0 {
		j.log.WithField("removed", removed).WithField("dir", j.storage.Dir()).Info("Swept stale scratch files")
	}
}

// Stop halts the schedule and waits for a running sweep until ctx ends.
func (j *Janitor) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
