package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// Filesystem reads objects from an afero filesystem, for local runs and tests.
type Filesystem struct {
	fs       afero.Fs
	MaxBytes int64
}

// NewFilesystem serves paths relative to root on the host filesystem.
func NewFilesystem(root string) *Filesystem {
	return NewFilesystemFs(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// NewFilesystemFs serves paths from an arbitrary afero filesystem.
func NewFilesystemFs(fsys afero.Fs) *Filesystem {
	return &Filesystem{fs: fsys, MaxBytes: DefaultMaxBytes}
}

// Fetch reads the file at p.
func (f *Filesystem) Fetch(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}

	clean := path.Clean("/" + strings.TrimSpace(p))
	info, err := f.fs.Stat(clean)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, p, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, p)
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrDownload, p, f.MaxBytes)
	}

	data, err := afero.ReadFile(f.fs, clean)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, p, err)
	}
	return decodeText(p, data)
}
