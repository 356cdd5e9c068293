package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalProvider implements Source and Sink on the local filesystem. Relative
// paths are resolved against basePath; absolute paths are used as-is.
type LocalProvider struct {
	basePath string
}

// NewLocalProvider creates a local storage provider rooted at basePath.
// An empty basePath means the working directory.
func NewLocalProvider(basePath string) *LocalProvider {
	return &LocalProvider{basePath: basePath}
}

func (p *LocalProvider) resolve(path string) string {
	if filepath.IsAbs(path) || p.basePath == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(p.basePath, path)
}

// Read loads a whole file.
func (p *LocalProvider) Read(ctx context.Context, path string) ([]byte, FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, FileInfo{}, err
	}

	fullPath := p.resolve(path)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, FileInfo{}, fmt.Errorf("failed to read file: %w", err)
	}

	info, err := p.Stat(ctx, path)
	if err != nil {
		return nil, FileInfo{}, err
	}
	return data, info, nil
}

// Write stores data at path, creating parent directories. The file is
// written to a temporary name and renamed, so readers never see a partial
// output. An existing file is replaced.
func (p *LocalProvider) Write(ctx context.Context, path string, data []byte) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	fullPath := p.resolve(path)
	dir := filepath.Dir(fullPath)

	// Create directory if not exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return FileInfo{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return FileInfo{}, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return FileInfo{}, fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return FileInfo{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	return p.Stat(ctx, path)
}

// Stat reports size and modification time.
func (p *LocalProvider) Stat(ctx context.Context, path string) (FileInfo, error) {
	fullPath := p.resolve(path)
	st, err := os.Stat(fullPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if st.IsDir() {
		return FileInfo{}, fmt.Errorf("failed to stat file: %s is a directory", fullPath)
	}
	return FileInfo{Path: fullPath, Size: st.Size(), UpdatedAt: st.ModTime()}, nil
}

func (p *LocalProvider) Name() string {
	return "local"
}
