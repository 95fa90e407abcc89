package storage

import (
	"io"
	"time"
)

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage is the scratch area where downloads, uploads and extracted audio
// live for the duration of one request.
type Storage interface {
	SaveFile(file io.Reader, info FileInfo) (string, error)
	Path(name string) (string, error)
	NewName(ext string) string
	DeleteFile(name string) error
	Remove(absPath string) error
	Sweep(maxAge time.Duration) (int, error)
	Dir() string
	Ensure() error
}
