package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/models"
	"github.com/kdimtricp/instasave/internal/ratelimit"
)

type scriptedAnalyzer struct {
	results map[string]*models.Reel
	cached  map[string]bool
	errs    map[string]error
	calls   []string
	onCall  func()
}

func (s *scriptedAnalyzer) AnalyzeURL(_ context.Context, url, collection string) (*models.Reel, bool, error) {
	s.calls = append(s.calls, url)
	if s.onCall != nil {
		s.onCall()
	}
	if err := s.errs[url]; err != nil {
		return nil, false, err
	}
	return s.results[url], s.cached[url], nil
}

func TestImporter_Run(t *testing.T) {
	fresh := models.NewReel("https://example.com/r/1", "Work", &models.Analysis{
		Title: "Focus", Summary: "About focus.", Topics: []string{"Productivity"},
	})
	stored := models.NewReel("https://example.com/r/2", "", &models.Analysis{Summary: "Old one."})

	analyzer := &scriptedAnalyzer{
		results: map[string]*models.Reel{fresh.SourceURL: fresh, stored.SourceURL: stored},
		cached:  map[string]bool{stored.SourceURL: true},
		errs:    map[string]error{"https://example.com/r/3": apperr.MediaDownload("yt-dlp exited with code 1")},
	}

	rows := NewImporter(analyzer, nil, logger.Nop()).Run(t.Context(), []Entry{
		{URL: fresh.SourceURL, Collection: "Work"},
		{URL: stored.SourceURL},
		{URL: "https://example.com/r/3", Collection: "Later"},
	})

	require.Len(t, rows, 3)

	assert.Equal(t, StatusAnalyzed, rows[0].Status)
	assert.Equal(t, "Focus", rows[0].Title)
	assert.Equal(t, "Work", rows[0].Collection)
	assert.Equal(t, []string{"Productivity"}, rows[0].Topics)

	assert.Equal(t, StatusCached, rows[1].Status)
	assert.Empty(t, rows[1].Title)
	assert.Equal(t, models.DefaultCollection, rows[1].Collection)

	assert.Equal(t, StatusFailed, rows[2].Status)
	assert.Equal(t, "Later", rows[2].Collection)
	assert.Equal(t, "yt-dlp exited with code 1", rows[2].Error)
}

func TestImporter_StopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())

	analyzer := &scriptedAnalyzer{
		errs:   map[string]error{},
		onCall: cancel,
	}
	analyzer.errs["https://example.com/r/1"] = errors.New("boom")

	rows := NewImporter(analyzer, nil, logger.Nop()).Run(ctx, []Entry{
		{URL: "https://example.com/r/1"},
		{URL: "https://example.com/r/2"},
	})

	assert.Len(t, rows, 1)
	assert.Equal(t, []string{"https://example.com/r/1"}, analyzer.calls)
}

func TestImporter_PacerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	analyzer := &scriptedAnalyzer{}
	rows := NewImporter(analyzer, ratelimit.New(1, 1), logger.Nop()).Run(ctx, []Entry{{URL: "https://example.com/r/1"}})

	assert.Empty(t, rows)
	assert.Empty(t, analyzer.calls)
}
