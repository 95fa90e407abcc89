package processing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/instasave/internal/ai"
	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/database"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/models"
	"github.com/kdimtricp/instasave/internal/storage"
)

type mockDownloader struct {
	scratch storage.Storage
	err     error
	calls   atomic.Int32
	gate    chan struct{}
}

func (m *mockDownloader) Download(ctx context.Context, url string) (string, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return "", m.err
	}
	path := filepath.Join(m.scratch.Dir(), m.scratch.NewName(".m4a"))
	return path, os.WriteFile(path, []byte("media"), 0644)
}

type mockExtractor struct {
	scratch storage.Storage
	err     error
	calls   atomic.Int32
	inputs  []string
	mu      sync.Mutex
}

func (m *mockExtractor) ExtractAudio(ctx context.Context, mediaPath string) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.inputs = append(m.inputs, mediaPath)
	m.mu.Unlock()
	if _, err := os.Stat(mediaPath); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	path := filepath.Join(m.scratch.Dir(), m.scratch.NewName(".wav"))
	return path, os.WriteFile(path, []byte("RIFF"), 0644)
}

type mockTranscriber struct {
	text  string
	err   error
	calls atomic.Int32
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	m.calls.Add(1)
	if _, err := os.Stat(audioPath); err != nil {
		return "", err
	}
	return m.text, m.err
}

type mockSummarizer struct {
	summary *ai.Summary
	err     error
	got     string
}

func (m *mockSummarizer) Summarize(ctx context.Context, transcript string) (*ai.Summary, error) {
	m.got = transcript
	return m.summary, m.err
}

type failingStore struct {
	insertErr error
}

func (f *failingStore) FindByURL(ctx context.Context, url string) (*models.Reel, error) {
	return nil, apperr.NotFound("Reel not found")
}

func (f *failingStore) Insert(ctx context.Context, reel *models.Reel) error {
	return f.insertErr
}

type fixture struct {
	service     *Service
	repo        *database.ReelRepository
	scratch     *storage.LocalStorage
	downloader  *mockDownloader
	extractor   *mockExtractor
	transcriber *mockTranscriber
	summarizer  *mockSummarizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(database.Config{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "reels.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)

	scratch, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, err)

	f := &fixture{
		repo:        database.NewReelRepository(db),
		scratch:     scratch,
		downloader:  &mockDownloader{scratch: scratch},
		extractor:   &mockExtractor{scratch: scratch},
		transcriber: &mockTranscriber{text: "Today I want to share three habits that changed my productivity"},
		summarizer: &mockSummarizer{summary: &ai.Summary{
			Title:   "Three Productivity Habits",
			Summary: "The speaker shares three habits for daily focus.",
			Topics:  []string{"Productivity"},
		}},
	}
	f.service = f.build(f.repo)
	return f
}

func (f *fixture) build(store ReelStore) *Service {
	return NewService(ServiceDeps{
		Store:             store,
		Downloader:        f.downloader,
		Extractor:         f.extractor,
		Pipeline:          NewPipeline(f.transcriber, f.summarizer, logger.Nop()),
		Scratch:           f.scratch,
		MaxConcurrentJobs: 2,
		Log:               logger.Nop(),
	})
}

func (f *fixture) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.scratch.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files must be removed")
}

func TestService_AnalyzeURL_NewThenCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	url := "https://www.instagram.com/reel/abc/"

	reel, cached, err := f.service.AnalyzeURL(ctx, url, "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, url, reel.SourceURL)
	assert.Equal(t, "Uncategorized", reel.Collection)
	assert.Equal(t, []string{"Productivity"}, reel.Topics)
	assert.Equal(t, f.transcriber.text, reel.Transcript)
	assert.Equal(t, f.transcriber.text, f.summarizer.got)
	f.assertScratchEmpty(t)

	stored, err := f.repo.FindByURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, reel.ID, stored.ID)

	again, cached, err := f.service.AnalyzeURL(ctx, url, "Other")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, reel.ID, again.ID)
	assert.Equal(t, "Uncategorized", again.Collection, "cached hits keep the stored record")
	assert.Equal(t, int32(1), f.downloader.calls.Load())
	assert.Equal(t, int32(1), f.transcriber.calls.Load())
}

func TestService_AnalyzeURL_Collection(t *testing.T) {
	f := newFixture(t)

	reel, _, err := f.service.AnalyzeURL(context.Background(), "https://example.com/reel/1", "Work ideas")
	require.NoError(t, err)
	assert.Equal(t, "Work ideas", reel.Collection)
}

func TestService_AnalyzeURL_StageFailures(t *testing.T) {
	tests := []struct {
		name              string
		setup             func(f *fixture)
		kind              apperr.Kind
		expectExtractions int32
		expectTranscribes int32
	}{
		{
			name:  "download fails",
			setup: func(f *fixture) { f.downloader.err = apperr.MediaDownloadf("yt-dlp exited with code %d", 1) },
			kind:  apperr.KindMediaDownload,
		},
		{
			name:  "yt-dlp missing",
			setup: func(f *fixture) { f.downloader.err = apperr.DependencyMissing("yt-dlp is not installed or not on PATH") },
			kind:  apperr.KindDependencyMissing,
		},
		{
			name:              "extraction fails",
			setup:             func(f *fixture) { f.extractor.err = apperr.Extractionf("ffmpeg exited with code %d", 1) },
			kind:              apperr.KindExtraction,
			expectExtractions: 1,
		},
		{
			name:              "transcription fails",
			setup:             func(f *fixture) { f.transcriber.err = apperr.Upstream("transcription request failed") },
			kind:              apperr.KindUpstream,
			expectExtractions: 1,
			expectTranscribes: 1,
		},
		{
			name:              "analysis fails",
			setup:             func(f *fixture) { f.summarizer.err = apperr.Upstream("analysis response was empty") },
			kind:              apperr.KindUpstream,
			expectExtractions: 1,
			expectTranscribes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			ctx := context.Background()

			reel, cached, err := f.service.AnalyzeURL(ctx, "https://example.com/reel/fail", "")
			require.Error(t, err)
			assert.Nil(t, reel)
			assert.False(t, cached)
			assert.Equal(t, tt.kind, apperr.KindOf(err))

			assert.Equal(t, tt.expectExtractions, f.extractor.calls.Load())
			assert.Equal(t, tt.expectTranscribes, f.transcriber.calls.Load())

			n, err := f.repo.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n, "failed runs are never persisted")
			f.assertScratchEmpty(t)
		})
	}
}

func TestService_AnalyzeURL_RetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	url := "https://example.com/reel/flaky"

	f.extractor.err = apperr.Extraction("ffmpeg failed to start")
	_, _, err := f.service.AnalyzeURL(ctx, url, "")
	require.Error(t, err)

	f.extractor.err = nil
	reel, cached, err := f.service.AnalyzeURL(ctx, url, "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotEmpty(t, reel.ID)
}

func TestService_AnalyzeURL_ConcurrentSameURL(t *testing.T) {
	f := newFixture(t)
	f.downloader.gate = make(chan struct{})
	url := "https://example.com/reel/popular"

	const callers = 5
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reel, _, err := f.service.AnalyzeURL(context.Background(), url, "")
			errs[i] = err
			if reel != nil {
				ids[i] = reel.ID
			}
		}(i)
	}
	close(f.downloader.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int32(1), f.downloader.calls.Load())

	n, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_AnalyzeURL_InsertConflict(t *testing.T) {
	f := newFixture(t)
	svc := f.build(&failingStore{insertErr: apperr.AlreadyExists("reel already exists for this URL")})

	_, _, err := svc.AnalyzeURL(context.Background(), "https://example.com/reel/1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))
	f.assertScratchEmpty(t)
}

func TestService_AnalyzeURL_StoreLookupFailure(t *testing.T) {
	f := newFixture(t)
	svc := f.build(&lookupFailingStore{})

	_, _, err := svc.AnalyzeURL(context.Background(), "https://example.com/reel/1", "")
	require.Error(t, err)
	assert.Equal(t, int32(0), f.downloader.calls.Load())
}

type lookupFailingStore struct{ failingStore }

func (l *lookupFailingStore) FindByURL(ctx context.Context, url string) (*models.Reel, error) {
	return nil, errors.New("database is locked")
}

func TestService_AnalyzeUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.AnalyzeUpload(ctx, bytes.NewReader([]byte("video bytes")), storage.FileInfo{
		Filename: "clip.mp4",
		Size:     11,
	})
	require.NoError(t, err)
	assert.Equal(t, "Three Productivity Habits", result.Title)
	assert.Equal(t, f.transcriber.text, result.Transcript)
	assert.Equal(t, []string{"Productivity"}, result.Topics)

	require.Len(t, f.extractor.inputs, 1)
	assert.Equal(t, ".mp4", filepath.Ext(f.extractor.inputs[0]))
	assert.Equal(t, int32(0), f.downloader.calls.Load())

	n, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "uploads are not persisted")
	f.assertScratchEmpty(t)
}

func TestService_AnalyzeUpload_ExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = apperr.Extraction("ffmpeg failed to start")

	_, err := f.service.AnalyzeUpload(context.Background(), bytes.NewReader([]byte("x")), storage.FileInfo{Filename: "clip.webm"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindExtraction, apperr.KindOf(err))
	f.assertScratchEmpty(t)
}

func TestService_CanceledWhileWaitingForSlot(t *testing.T) {
	f := newFixture(t)
	svc := NewService(ServiceDeps{
		Store:             f.repo,
		Downloader:        f.downloader,
		Extractor:         f.extractor,
		Pipeline:          NewPipeline(f.transcriber, f.summarizer, logger.Nop()),
		Scratch:           f.scratch,
		MaxConcurrentJobs: 1,
		Log:               logger.Nop(),
	})
	require.NoError(t, svc.jobs.Acquire(context.Background(), 1))
	defer svc.jobs.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.AnalyzeURL(ctx, "https://example.com/reel/1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), f.downloader.calls.Load())
}
