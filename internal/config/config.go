package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Media    MediaConfig    `yaml:"media"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadSize  int64    `yaml:"max_upload_size"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Type       string `yaml:"type"`
	SQLitePath string `yaml:"sqlite_path"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
}

type MediaConfig struct {
	ScratchDir      string        `yaml:"scratch_dir"`
	YtDlpBinary     string        `yaml:"ytdlp_binary"`
	FFmpegBinary    string        `yaml:"ffmpeg_binary"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	ExtractTimeout  time.Duration `yaml:"extract_timeout"`
	CookiesPath     string        `yaml:"cookies_path"`
	CookiesBrowser  string        `yaml:"cookies_browser"`
	CookiesClear    bool          `yaml:"cookies_clear"`
	SweepMaxAge     time.Duration `yaml:"sweep_max_age"`
	SweepSchedule   string        `yaml:"sweep_schedule"`
}

type AIConfig struct {
	TranscriptionProvider string        `yaml:"transcription_provider"`
	AnalysisProvider      string        `yaml:"analysis_provider"`
	OpenAIAPIKey          string        `yaml:"openai_api_key"`
	OpenAIBaseURL         string        `yaml:"openai_base_url"`
	TranscriptionModel    string        `yaml:"transcription_model"`
	AnalysisModel         string        `yaml:"analysis_model"`
	GeminiAPIKey          string        `yaml:"gemini_api_key"`
	GeminiModel           string        `yaml:"gemini_model"`
	TranscribeTimeout     time.Duration `yaml:"transcribe_timeout"`
	AnalyzeTimeout        time.Duration `yaml:"analyze_timeout"`
	MaxRetries            int           `yaml:"max_retries"`
}

type PipelineConfig struct {
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultCORSOrigins covers the local dashboard dev servers; browser
// extensions are matched separately by scheme.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:5174",
}

// Load reads .env, then the optional YAML file named by CONFIG_FILE, then
// environment overrides, then fills defaults and validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	envString("PORT", &c.Server.Port)
	if err := envInt64("MAX_UPLOAD_SIZE", &c.Server.MaxUploadSize); err != nil {
		return err
	}
	if err := envFloat("RATE_LIMIT_RPS", &c.Server.RateLimitRPS); err != nil {
		return err
	}
	if err := envInt("RATE_LIMIT_BURST", &c.Server.RateLimitBurst); err != nil {
		return err
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	envString("DB_TYPE", &c.Database.Type)
	envString("DB_PATH", &c.Database.SQLitePath)
	envString("DB_HOST", &c.Database.Host)
	if err := envInt("DB_PORT", &c.Database.Port); err != nil {
		return err
	}
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Name)

	envString("SCRATCH_DIR", &c.Media.ScratchDir)
	envString("YTDLP_BINARY", &c.Media.YtDlpBinary)
	envString("FFMPEG_BINARY", &c.Media.FFmpegBinary)
	envString("INSTAGRAM_COOKIES_PATH", &c.Media.CookiesPath)
	envString("INSTAGRAM_COOKIES_BROWSER", &c.Media.CookiesBrowser)
	if v, ok := os.LookupEnv("INSTAGRAM_COOKIES_CLEAR"); ok {
		c.Media.CookiesClear = v == "true"
	}
	if err := envDuration("DOWNLOAD_TIMEOUT", &c.Media.DownloadTimeout); err != nil {
		return err
	}
	if err := envDuration("EXTRACT_TIMEOUT", &c.Media.ExtractTimeout); err != nil {
		return err
	}
	if err := envDuration("SCRATCH_MAX_AGE", &c.Media.SweepMaxAge); err != nil {
		return err
	}
	envString("SCRATCH_SWEEP_SCHEDULE", &c.Media.SweepSchedule)

	envString("TRANSCRIPTION_PROVIDER", &c.AI.TranscriptionProvider)
	envString("ANALYSIS_PROVIDER", &c.AI.AnalysisProvider)
	envString("OPENAI_API_KEY", &c.AI.OpenAIAPIKey)
	envString("OPENAI_BASE_URL", &c.AI.OpenAIBaseURL)
	envString("OPENAI_TRANSCRIPTION_MODEL", &c.AI.TranscriptionModel)
	envString("OPENAI_ANALYSIS_MODEL", &c.AI.AnalysisModel)
	envString("GEMINI_API_KEY", &c.AI.GeminiAPIKey)
	envString("GEMINI_MODEL", &c.AI.GeminiModel)
	if err := envDuration("TRANSCRIBE_TIMEOUT", &c.AI.TranscribeTimeout); err != nil {
		return err
	}
	if err := envDuration("ANALYZE_TIMEOUT", &c.AI.AnalyzeTimeout); err != nil {
		return err
	}
	if err := envInt("AI_MAX_RETRIES", &c.AI.MaxRetries); err != nil {
		return err
	}

	if err := envInt("MAX_CONCURRENT_JOBS", &c.Pipeline.MaxConcurrentJobs); err != nil {
		return err
	}

	envString("LOG_LEVEL", &c.Log.Level)
	envString("ENVIRONMENT", &c.Log.Environment)

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Tracing.Enabled = parseBool(v)
	}
	envString("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)
	envString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		c.Tracing.Insecure = parseBool(v)
	}
	if err := envFloat("OTEL_SAMPLER_RATIO", &c.Tracing.SampleRatio); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "4000"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = DefaultCORSOrigins
	}
	if c.Server.MaxUploadSize == 0 {
		c.Server.MaxUploadSize = 50 << 20
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 0.5
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 3
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "./data/reels.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "instasave"
	}
	if c.Database.Name == "" {
		c.Database.Name = "instasave"
	}

	if c.Media.ScratchDir == "" {
		c.Media.ScratchDir = "/tmp/instasave"
	}
	if c.Media.YtDlpBinary == "" {
		c.Media.YtDlpBinary = "yt-dlp"
	}
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = "ffmpeg"
	}
	if c.Media.DownloadTimeout == 0 {
		c.Media.DownloadTimeout = 3 * time.Minute
	}
	if c.Media.ExtractTimeout == 0 {
		c.Media.ExtractTimeout = 2 * time.Minute
	}
	if c.Media.SweepMaxAge == 0 {
		c.Media.SweepMaxAge = time.Hour
	}
	if c.Media.SweepSchedule == "" {
		c.Media.SweepSchedule = "@every 15m"
	}

	if c.AI.TranscriptionProvider == "" {
		c.AI.TranscriptionProvider = ProviderOpenAI
	}
	if c.AI.AnalysisProvider == "" {
		c.AI.AnalysisProvider = ProviderOpenAI
	}
	if c.AI.OpenAIBaseURL == "" {
		c.AI.OpenAIBaseURL = "https://api.openai.com"
	}
	if c.AI.TranscriptionModel == "" {
		c.AI.TranscriptionModel = "whisper-1"
	}
	if c.AI.AnalysisModel == "" {
		c.AI.AnalysisModel = "gpt-4o-mini"
	}
	if c.AI.GeminiModel == "" {
		c.AI.GeminiModel = "gemini-2.5-flash"
	}
	if c.AI.TranscribeTimeout == 0 {
		c.AI.TranscribeTimeout = 2 * time.Minute
	}
	if c.AI.AnalyzeTimeout == 0 {
		c.AI.AnalyzeTimeout = time.Minute
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = 3
	}

	if c.Pipeline.MaxConcurrentJobs == 0 {
		c.Pipeline.MaxConcurrentJobs = 2
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "instasave"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Server.Port)
	}
	if c.Server.MaxUploadSize < 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	for _, p := range []string{c.AI.TranscriptionProvider, c.AI.AnalysisProvider} {
		switch p {
		case ProviderOpenAI:
			if c.AI.OpenAIAPIKey == "" {
				return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY or ai.openai_api_key)")
			}
		case ProviderGemini:
			if c.AI.GeminiAPIKey == "" {
				return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
			}
		default:
			return fmt.Errorf("unknown AI provider %q", p)
		}
	}

	if c.Media.DownloadTimeout < 0 || c.Media.ExtractTimeout < 0 ||
		c.AI.TranscribeTimeout < 0 || c.AI.AnalyzeTimeout < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Pipeline.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max concurrent jobs must be at least 1")
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(key string, dst *int64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
