package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func newMemFilesystem(t *testing.T, files map[string]string) *Filesystem {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fsys, name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return NewFilesystemFs(fsys)
}

func TestFilesystemFetch(t *testing.T) {
	f := newMemFilesystem(t, map[string]string{"/user-1/cv.txt": "Go, SQL, Kubernetes"})

	for _, p := range []string{"user-1/cv.txt", "/user-1/cv.txt", "user-1/../user-1/cv.txt"} {
		text, err := f.Fetch(context.Background(), p)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
		if text != "Go, SQL, Kubernetes" {
			t.Fatalf("%s: unexpected text: %q", p, text)
		}
	}
}

func TestFilesystemFetchErrors(t *testing.T) {
	f := newMemFilesystem(t, map[string]string{
		"/binary.bin": "\xff\xfe\xfd",
		"/big.txt":    "0123456789",
		"/dir/a.txt":  "a",
	})
	f.MaxBytes = 5

	cases := map[string]error{
		"absent.txt": ErrNotFound,
		"dir":        ErrNotFound,
		"binary.bin": ErrDecode,
		"big.txt":    ErrDownload,
	}

	for p, want := range cases {
		if _, err := f.Fetch(context.Background(), p); !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", p, want, err)
		}
	}
}

func TestFilesystemFetchCancelled(t *testing.T) {
	f := newMemFilesystem(t, map[string]string{"/cv.txt": "text"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Fetch(ctx, "cv.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
