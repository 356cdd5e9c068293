// Package storage reads pipeline inputs and writes encoded outputs.
package storage

import (
	"context"
	"time"
)

// FileInfo describes a stored file.
type FileInfo struct {
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// Source loads input bytes.
type Source interface {
	Read(ctx context.Context, path string) ([]byte, FileInfo, error)
}

// Sink persists output bytes. The returned size is what the store reports
// after the write, not len(data).
type Sink interface {
	Write(ctx context.Context, path string, data []byte) (FileInfo, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
}
