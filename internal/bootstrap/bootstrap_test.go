package bootstrap

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/instasave/internal/config"
	"github.com/kdimtricp/instasave/internal/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.SQLitePath = filepath.Join(dir, "data", "reels.db")
	cfg.Media.ScratchDir = filepath.Join(dir, "scratch")
	cfg.Media.YtDlpBinary = "yt-dlp"
	cfg.Media.FFmpegBinary = "ffmpeg"
	cfg.Media.DownloadTimeout = time.Minute
	cfg.Media.ExtractTimeout = time.Minute
	cfg.AI.TranscriptionProvider = config.ProviderOpenAI
	cfg.AI.AnalysisProvider = config.ProviderOpenAI
	cfg.AI.OpenAIAPIKey = "sk-test"
	cfg.AI.OpenAIBaseURL = "http://127.0.0.1:1"
	cfg.AI.TranscribeTimeout = time.Minute
	cfg.AI.AnalyzeTimeout = time.Minute
	cfg.AI.MaxRetries = 1
	cfg.Pipeline.MaxConcurrentJobs = 2
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)

	c, err := Build(t.Context(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	assert.NotNil(t, c.Service)
	assert.DirExists(t, cfg.Media.ScratchDir)
	assert.NoError(t, c.DB.Ping(t.Context()))

	n, err := c.Reels.Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBuild_MissingProviderKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.OpenAIAPIKey = ""

	_, err := Build(t.Context(), cfg, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize AI services")
}

func TestOpenDatabase_Idempotent(t *testing.T) {
	cfg := testConfig(t)

	db, err := OpenDatabase(t.Context(), cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDatabase(t.Context(), cfg, logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	applied, err := db.RunMigrations(t.Context())
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestAIConfig_CopiesEveryField(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.GeminiAPIKey = "g-key"
	cfg.AI.GeminiModel = "gemini-2.5-flash"
	cfg.AI.TranscriptionModel = "whisper-1"
	cfg.AI.AnalysisModel = "gpt-4o-mini"

	got := AIConfig(cfg)

	assert.Equal(t, cfg.AI.OpenAIAPIKey, got.OpenAIAPIKey)
	assert.Equal(t, cfg.AI.OpenAIBaseURL, got.OpenAIBaseURL)
	assert.Equal(t, "g-key", got.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash", got.GeminiModel)
	assert.Equal(t, "whisper-1", got.TranscriptionModel)
	assert.Equal(t, "gpt-4o-mini", got.AnalysisModel)
	assert.Equal(t, cfg.AI.MaxRetries, got.MaxRetries)
	assert.Equal(t, cfg.AI.TranscribeTimeout, got.TranscribeTimeout)
}

func TestTracingConfig_UsesLogEnvironment(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Environment = "production"
	cfg.Tracing.ServiceName = "instasave"

	got := TracingConfig(cfg)
	assert.Equal(t, "production", got.Environment)
	assert.Equal(t, "instasave", got.ServiceName)
	assert.False(t, got.Enabled)
}

func TestBuild_WarnsWhenCookieFileAndBrowserAreBothSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.CookiesPath = filepath.Join(t.TempDir(), "cookies.txt")
	cfg.Media.CookiesBrowser = "firefox"

	var out bytes.Buffer
	log := logger.NewWithOutput(logger.Config{Level: "info", Environment: "production"}, &out)

	c, err := Build(t.Context(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	assert.Contains(t, out.String(), "using the cookie file")
	assert.Contains(t, out.String(), "firefox")
}

func TestBuild_NoCookieWarningForSingleSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Media.CookiesBrowser = "firefox"

	var out bytes.Buffer
	log := logger.NewWithOutput(logger.Config{Level: "info", Environment: "production"}, &out)

	c, err := Build(t.Context(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	assert.NotContains(t, out.String(), "using the cookie file")
}
