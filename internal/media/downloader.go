package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
	"github.com/kdimtricp/instasave/internal/storage"
)

// Downloader fetches the media behind a reel URL with yt-dlp.
type Downloader struct {
	binary  string
	scratch storage.Storage
	cookies CookieConfig
	timeout time.Duration
	log     *logger.Logger
}

func NewDownloader(binary string, scratch storage.Storage, cookies CookieConfig, timeout time.Duration, log *logger.Logger) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{
		binary:  binary,
		scratch: scratch,
		cookies: cookies,
		timeout: timeout,
		log:     log.Component("downloader"),
	}
}

// Download saves the best available audio (or best overall) stream for url
// into the scratch directory and returns its absolute path.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	path, err := LookupBinary(d.binary)
	if err != nil {
		return "", apperr.DependencyMissing("yt-dlp is not installed or not on PATH").WithCause(err)
	}

	if err := d.scratch.Ensure(); err != nil {
		return "", apperr.MediaDownload("failed to prepare scratch directory").WithCause(err)
	}

	base := d.scratch.NewName("")
	args := []string{
		"--no-playlist",
		"--no-mtime",
		"-f", "bestaudio/best",
		"-o", filepath.Join(d.scratch.Dir(), base+".%(ext)s"),
	}
	args = append(args, d.cookies.Args()...)
	args = append(args, "--", url)

	start := time.Now()
	res, err := run(ctx, d.timeout, path, args...)
	if err != nil {
		d.discard(base, "")
		d.log.WithError(err).
			WithField("url", url).
			WithField("exit_code", res.exitCode).
			WithField("stderr", res.stderr).
			Error("yt-dlp failed")
		switch {
		case res.canceled:
			return "", fmt.Errorf("yt-dlp canceled: %w", err)
		case res.timedOut:
			return "", apperr.MediaDownloadf("yt-dlp timed out after %s", d.timeout).WithCause(err)
		case res.exitCode >= 0:
			return "", apperr.MediaDownloadf("yt-dlp exited with code %d", res.exitCode).
				WithCause(fmt.Errorf("%w: %s", err, res.stderr))
		default:
			return "", apperr.MediaDownload("failed to start yt-dlp").WithCause(err)
		}
	}

	downloaded, err := d.findDownload(base)
	d.discard(base, downloaded)
	if err != nil {
		return "", err
	}

	if d.cookies.shouldClear() {
		go clearCookies(d.cookies.FilePath, d.log)
	}

	d.log.WithField("url", url).
		WithField("file", filepath.Base(downloaded)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Downloaded reel media")
	return downloaded, nil
}

// discard removes everything yt-dlp wrote for base except keep: fragments,
// .part and .ytdl files, and the whole output after a failed run.
func (d *Downloader) discard(base, keep string) {
	matches, _ := filepath.Glob(filepath.Join(d.scratch.Dir(), base+".*"))
	for _, m := range matches {
		if m == keep {
			continue
		}
		if err := os.RemoveAll(m); err != nil {
			d.log.WithError(err).WithField("path", m).Warn("Failed to remove partial download")
		}
	}
}

// findDownload picks the newest finished file yt-dlp wrote for base.
func (d *Downloader) findDownload(base string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(d.scratch.Dir(), base+".*"))
	if err != nil {
		return "", apperr.MediaDownload("Downloaded media file not found").WithCause(err)
	}

	var latest string
	var latestMod time.Time
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest, latestMod = m, info.ModTime()
		}
	}

	if latest == "" {
		return "", apperr.MediaDownload("Downloaded media file not found")
	}
	return latest, nil
}
