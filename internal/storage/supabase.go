package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

// DefaultBucket is the bucket uploads land in.
const DefaultBucket = "resumes"

// downloader is the part of the storage client Supabase uses.
type downloader interface {
	DownloadFile(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) ([]byte, error)
}

// Supabase downloads objects from Supabase Storage with a service-role key.
type Supabase struct {
	BaseURL  string
	Bucket   string
	MaxBytes int64

	client  downloader
	timeout time.Duration
	logger  *zap.Logger
}

// NewSupabase validates the project url and key. A zero timeout means 30s.
func NewSupabase(baseURL, serviceKey, bucket string, timeout time.Duration, log *zap.Logger) (*Supabase, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase url is not configured")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid supabase url %q: %w", baseURL, err)
	}
	serviceKey = strings.TrimSpace(serviceKey)
	if serviceKey == "" {
		return nil, errors.New("supabase service role key is not configured")
	}
	if strings.TrimSpace(bucket) == "" {
		bucket = DefaultBucket
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := storage_go.NewClient(baseURL+"/storage/v1", serviceKey, map[string]string{"apikey": serviceKey})

	return &Supabase{
		BaseURL:  baseURL,
		Bucket:   bucket,
		MaxBytes: DefaultMaxBytes,
		client:   client,
		timeout:  timeout,
		logger:   log.With(zap.String("storage", "supabase"), zap.String("bucket", bucket)),
	}, nil
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

type download struct {
	data []byte
	err  error
}

// Fetch downloads the object at path and returns it as text. The storage
// client takes no context, so the deadline is enforced here.
func (s *Supabase) Fetch(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan download, 1)
	go func() {
		data, err := s.client.DownloadFile(s.Bucket, escapePath(path))
		done <- download{data: data, err: err}
	}()

	var res download
	select {
	case res = <-done:
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, path, ctx.Err())
	}

	s.logger.Debug("storage download finished",
		zap.String("path", path),
		zap.Int("bytes", len(res.data)),
		zap.Duration("elapsed", time.Since(started)),
		zap.Error(res.err),
	)

	if res.err != nil {
		// Storage reports absent objects as not_found, with either a 404 or a 400.
		if objectMissing(res.err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, path, res.err)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if int64(len(res.data)) > limit {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrDownload, path, limit)
	}

	return decodeText(path, res.data)
}

func objectMissing(err error) bool {
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "not_found") || strings.Contains(text, "not found")
}
