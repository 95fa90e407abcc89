package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/storage"
)

// Extractor converts downloaded media into the WAV format the transcriber
// expects: mono, 16 kHz, 16-bit PCM.
type Extractor struct {
	binary  string
	scratch storage.Storage
	timeout time.Duration
	log     *logger.Logger
}

func NewExtractor(binary string, scratch storage.Storage, timeout time.Duration, log *logger.Logger) *Extractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Extractor{
		binary:  binary,
		scratch: scratch,
		timeout: timeout,
		log:     log.Component("extractor"),
	}
}

func (e *Extractor) ExtractAudio(ctx context.Context, mediaPath string) (string, error) {
	path, err := LookupBinary(e.binary)
	if err != nil {
		return "", apperr.Extraction("ffmpeg failed to start").WithCause(err)
	}

	if err := e.scratch.Ensure(); err != nil {
		return "", apperr.Extraction("failed to prepare scratch directory").WithCause(err)
	}

	output := filepath.Join(e.scratch.Dir(), e.scratch.NewName(".wav"))
	args := []string{
		"-y",
		"-i", mediaPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		output,
	}

	start := time.Now()
	res, err := run(ctx, e.timeout, path, args...)
	if err != nil {
		os.Remove(output)
		e.log.WithError(err).
			WithField("input", filepath.Base(mediaPath)).
			WithField("exit_code", res.exitCode).
			WithField("stderr", res.stderr).
			Error("ffmpeg failed")
		switch {
		case res.canceled:
			return "", fmt.Errorf("ffmpeg canceled: %w", err)
		case res.timedOut:
			return "", apperr.Extractionf("ffmpeg timed out after %s", e.timeout).WithCause(err)
		case res.exitCode >= 0:
			return "", apperr.Extractionf("ffmpeg exited with code %d", res.exitCode).
				WithCause(fmt.Errorf("%w: %s", err, res.stderr))
		default:
			return "", apperr.Extraction("ffmpeg failed to start").WithCause(err)
		}
	}

	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		os.Remove(output)
		return "", apperr.Extraction("ffmpeg produced no audio")
	}

	e.log.WithField("input", filepath.Base(mediaPath)).
		WithField("output", filepath.Base(output)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("Extracted audio")
	return output, nil
}
