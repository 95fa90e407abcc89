package batch

import (
	"context"

	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/models"
	"github.com/kdimtricp/instasave/internal/ratelimit"
)

const (
	StatusAnalyzed = "analyzed"
	StatusCached   = "cached"
	StatusFailed   = "failed"
)

type Analyzer interface {
	AnalyzeURL(ctx context.Context, url, collection string) (*models.Reel, bool, error)
}

// Importer analyzes workbook entries one at a time. A failed entry is
// recorded and the import moves on.
type Importer struct {
	analyzer Analyzer
	pacer    *ratelimit.Limiter
	log      *logger.Logger
}

// NewImporter paces new analyses with pacer when it is non-nil.
func NewImporter(analyzer Analyzer, pacer *ratelimit.Limiter, log *logger.Logger) *Importer {
	return &Importer{analyzer: analyzer, pacer: pacer, log: log.Component("batch")}
}

// Run stops early only when ctx is done; rows for unprocessed entries are
// omitted.
func (im *Importer) Run(ctx context.Context, entries []Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for i, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if im.pacer != nil {
			if err := im.pacer.Wait(ctx, "batch"); err != nil {
				break
			}
		}

		log := im.log.WithField("url", e.URL).WithField("index", i+1).WithField("total", len(entries))

		reel, cached, err := im.analyzer.AnalyzeURL(ctx, e.URL, e.Collection)
		if err != nil {
			log.WithField("error", err.Error()).Warn("reel failed")
			rows = append(rows, Row{URL: e.URL, Status: StatusFailed, Collection: e.Collection, Error: err.Error()})
			continue
		}

		row := Row{
			URL:        e.URL,
			Status:     StatusAnalyzed,
			Collection: reel.Collection,
			Summary:    reel.Summary,
			Topics:     reel.Topics,
		}
		if cached {
			row.Status = StatusCached
		}
		if reel.Title != nil {
			row.Title = *reel.Title
		}
		log.WithField("status", row.Status).Info("reel done")
		rows = append(rows, row)
	}
	return rows
}
