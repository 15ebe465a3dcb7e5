// Package storage downloads uploaded resume documents as text.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrNotFound means the object does not exist at the path.
	ErrNotFound = errors.New("file not found")
	// ErrDownload covers transport failures, unexpected statuses and oversized objects.
	ErrDownload = errors.New("failed to download file")
	// ErrDecode means the object is not UTF-8 text.
	ErrDecode = errors.New("file is not valid text")
)

// DefaultMaxBytes caps a single download.
const DefaultMaxBytes = 10 << 20

// Fetcher returns the full text of the object stored at path. One attempt, no retries.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodeText(path string, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrDecode, path)
	}
	return string(data), nil
}
