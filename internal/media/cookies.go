package media

import (
	"errors"
	"os"

	"github.com/kdimtricp/instasave/internal/logger"
)

// CookieConfig carries the Instagram session used by yt-dlp. A cookie file
// takes precedence over a browser profile when both are set.
type CookieConfig struct {
	FilePath      string
	Browser       string
	ClearAfterUse bool
}

func (c CookieConfig) Args() []string {
	switch {
	case c.FilePath != "":
		return []string{"--cookies", c.FilePath}
	case c.Browser != "":
		return []string{"--cookies-from-browser", c.Browser}
	default:
		return nil
	}
}

func (c CookieConfig) shouldClear() bool {
	return c.ClearAfterUse && c.FilePath != ""
}

// clearCookies deletes the cookie file. Failures are logged and never
// reach the caller.
func clearCookies(path string, log *logger.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).WithField("path", path).Warn("Failed to clear cookie file")
		return
	}
	log.WithField("path", path).Debug("Cleared cookie file")
}
