package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderWriteRead(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)
	ctx := context.Background()

	info, err := p.Write(ctx, "nested/deeper/out.png", []byte("pixels"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)
	assert.Equal(t, filepath.Join(dir, "nested", "deeper", "out.png"), info.Path)

	data, readInfo, err := p.Read(ctx, "nested/deeper/out.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), data)
	assert.Equal(t, int64(6), readInfo.Size)

	entries, err := os.ReadDir(filepath.Join(dir, "nested", "deeper"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestLocalProviderOverwrite(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	ctx := context.Background()

	_, err := p.Write(ctx, "a.jpg", []byte("first version"))
	require.NoError(t, err)
	info, err := p.Write(ctx, "a.jpg", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size)
}

func TestLocalProviderAbsolutePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.bin")
	p := NewLocalProvider("/nonexistent-base")

	info, err := p.Write(context.Background(), abs, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, abs, info.Path)
}

func TestLocalProviderErrors(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)
	ctx := context.Background()

	_, _, err := p.Read(ctx, "missing.png")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0644))
	_, err = p.Write(ctx, "file/child.png", []byte("x"))
	assert.Error(t, err, "parent is a regular file")

	_, err = p.Stat(ctx, ".")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Write(cancelled, "c.png", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
