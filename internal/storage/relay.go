package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/videos"
)

// Kind groups uploaded assets under a common key prefix.
type Kind string

const (
	KindVideo      Kind = "video"
	KindThumbnail  Kind = "thumbnail"
	KindAvatar     Kind = "avatar"
	KindCoverImage Kind = "cover-image"
)

const deleteAttempts = 3

// ErrHostUnavailable indicates the relay has no media host configured.
var ErrHostUnavailable = errors.New("media host unavailable")

// ObjectHost is a remote store that serves uploaded objects from public URLs.
type ObjectHost interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	// KeyFromURL returns the object key behind a public URL, or "" when the URL is not served by this host.
	KeyFromURL(url string) string
}

// Asset describes an object stored on the media host.
type Asset struct {
	URL      string
	Key      string
	Duration float64
}

// Relay moves local temp files to the media host and removes replaced remote assets.
type Relay struct {
	host   ObjectHost
	prober videos.DurationProber

	retryPolicy func() backoff.BackOff
}

// NewRelay constructs a Relay. prober may be nil, in which case durations stay zero.
func NewRelay(host ObjectHost, prober videos.DurationProber) *Relay {
	return &Relay{
		host:   host,
		prober: prober,
		retryPolicy: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = 200 * time.Millisecond
			policy.MaxElapsedTime = 10 * time.Second
			return policy
		},
	}
}

// Upload stores the file at localPath under a fresh key for kind.
func (r *Relay) Upload(ctx context.Context, localPath string, kind Kind) (Asset, error) {
	if r == nil || r.host == nil {
		return Asset{}, ErrHostUnavailable
	}

	ctx, span := logging.StartSpan(ctx, "media.upload", "kind", string(kind))
	defer span.End()
	logger := logging.FromContext(ctx)

	file, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open upload %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Asset{}, fmt.Errorf("stat upload %s: %w", localPath, err)
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	contentType := contentTypeFor(ext)
	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)

	url, err := r.host.Put(ctx, key, file, info.Size(), contentType)
	if err != nil {
		span.Fail(err)
		return Asset{}, fmt.Errorf("upload %s: %w", key, err)
	}

	asset := Asset{URL: url, Key: key}
	if kind == KindVideo && r.prober != nil {
		duration, err := r.prober.Duration(ctx, localPath)
		if err != nil {
			logger.Warn("probe video duration failed", "key", key, "error", err)
		} else {
			asset.Duration = duration
		}
	}

	logger.Info("media uploaded", "key", key, "bytes", info.Size())
	return asset, nil
}

// Delete removes the remote asset behind url. URLs not served by the host are
// ignored. Transient failures are retried a bounded number of times.
func (r *Relay) Delete(ctx context.Context, url string) error {
	if r == nil || r.host == nil {
		return ErrHostUnavailable
	}
	if strings.TrimSpace(url) == "" {
		return nil
	}

	key := r.host.KeyFromURL(url)
	if key == "" {
		logging.FromContext(ctx).Debug("skipping delete of foreign asset", "url", url)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.retryPolicy(), deleteAttempts-1), ctx)
	err := backoff.Retry(func() error {
		return r.host.Remove(ctx, key)
	}, policy)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

func contentTypeFor(ext string) string {
	if ct, ok := videoTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// keyFromURL strips baseURL from url, returning "" when url lies outside it.
func keyFromURL(baseURL, url string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if base == "" {
		return ""
	}
	key, ok := strings.CutPrefix(url, base+"/")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key
}
