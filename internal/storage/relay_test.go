package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidtube/backend/internal/config"
)

const testBaseURL = "https://cdn.example.com/media"

type fakeHost struct {
	mu          sync.Mutex
	objects     map[string][]byte
	types       map[string]string
	putErr      error
	removeErrs  []error
	removeCalls int
}

func newFakeHost() *fakeHost {
	return &fakeHost{objects: map[string][]byte{}, types: map[string]string{}}
}

func (h *fakeHost) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	if h.putErr != nil {
		return "", h.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	h.objects[key] = data
	h.types[key] = contentType
	h.mu.Unlock()
	return testBaseURL + "/" + key, nil
}

func (h *fakeHost) Remove(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeCalls++
	if len(h.removeErrs) > 0 {
		err := h.removeErrs[0]
		h.removeErrs = h.removeErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(h.objects, key)
	return nil
}

func (h *fakeHost) KeyFromURL(url string) string {
	return keyFromURL(testBaseURL, url)
}

type stubProber struct {
	duration float64
	err      error
	calls    int
}

func (p *stubProber) Duration(context.Context, string) (float64, error) {
	p.calls++
	return p.duration, p.err
}

func newTestRelay(host ObjectHost, prober *stubProber) *Relay {
	relay := NewRelay(host, prober)
	relay.retryPolicy = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return relay
}

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestRelayUploadVideoProbesDuration(t *testing.T) {
	host := newFakeHost()
	prober := &stubProber{duration: 42.5}
	relay := newTestRelay(host, prober)

	asset, err := relay.Upload(context.Background(), writeTemp(t, "clip.MP4", "frames"), KindVideo)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.Key, "video/"))
	assert.True(t, strings.HasSuffix(asset.Key, ".mp4"))
	assert.Equal(t, testBaseURL+"/"+asset.Key, asset.URL)
	assert.Equal(t, 42.5, asset.Duration)
	assert.Equal(t, "video/mp4", host.types[asset.Key])
	assert.True(t, bytes.Equal([]byte("frames"), host.objects[asset.Key]))
}

func TestRelayUploadImageSkipsProbe(t *testing.T) {
	host := newFakeHost()
	prober := &stubProber{duration: 10}
	relay := newTestRelay(host, prober)

	asset, err := relay.Upload(context.Background(), writeTemp(t, "me.png", "px"), KindAvatar)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.Key, "avatar/"))
	assert.Zero(t, asset.Duration)
	assert.Zero(t, prober.calls)
}

func TestRelayUploadProbeFailureKeepsAsset(t *testing.T) {
	host := newFakeHost()
	relay := newTestRelay(host, &stubProber{err: errors.New("no ffprobe")})

	asset, err := relay.Upload(context.Background(), writeTemp(t, "clip.webm", "x"), KindVideo)
	require.NoError(t, err)
	assert.NotEmpty(t, asset.URL)
	assert.Zero(t, asset.Duration)
}

func TestRelayUploadFailures(t *testing.T) {
	host := newFakeHost()
	host.putErr = errors.New("bucket offline")
	relay := newTestRelay(host, nil)

	_, err := relay.Upload(context.Background(), writeTemp(t, "a.jpg", "x"), KindThumbnail)
	assert.ErrorIs(t, err, host.putErr)

	_, err = relay.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"), KindThumbnail)
	assert.Error(t, err)

	var nilRelay *Relay
	_, err = nilRelay.Upload(context.Background(), "x", KindVideo)
	assert.ErrorIs(t, err, ErrHostUnavailable)
}

func TestRelayDeleteRetriesTransientFailures(t *testing.T) {
	host := newFakeHost()
	host.objects["avatar/old.png"] = []byte("x")
	host.removeErrs = []error{errors.New("timeout"), errors.New("timeout")}
	relay := newTestRelay(host, nil)

	err := relay.Delete(context.Background(), testBaseURL+"/avatar/old.png")
	require.NoError(t, err)
	assert.Equal(t, 3, host.removeCalls)
	assert.NotContains(t, host.objects, "avatar/old.png")
}

func TestRelayDeleteGivesUpAfterThreeAttempts(t *testing.T) {
	host := newFakeHost()
	boom := errors.New("denied")
	host.removeErrs = []error{boom, boom, boom, boom}
	relay := newTestRelay(host, nil)

	err := relay.Delete(context.Background(), testBaseURL+"/avatar/old.png")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, host.removeCalls)
}

func TestRelayDeleteIgnoresForeignAndBlankURLs(t *testing.T) {
	host := newFakeHost()
	relay := newTestRelay(host, nil)

	require.NoError(t, relay.Delete(context.Background(), "https://elsewhere.example.com/a.png"))
	require.NoError(t, relay.Delete(context.Background(), ""))
	assert.Zero(t, host.removeCalls)
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		base string
		url  string
		want string
	}{
		{base: "https://cdn.example.com/media/", url: "https://cdn.example.com/media/video/a.mp4", want: "video/a.mp4"},
		{base: "https://cdn.example.com/media", url: "https://cdn.example.com/media/video/a.mp4?v=2", want: "video/a.mp4"},
		{base: "https://cdn.example.com/media", url: "https://cdn.example.com/mediax/a.mp4", want: ""},
		{base: "", url: "https://cdn.example.com/media/a.mp4", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, keyFromURL(tt.base, tt.url), tt.url)
	}
}

func TestNewMinioHostDerivesBaseURL(t *testing.T) {
	host, err := NewMinioHost(config.MediaConfig{
		Bucket:    "clips",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "video/a.mp4", host.KeyFromURL("http://localhost:9000/clips/video/a.mp4"))

	_, err = NewMinioHost(config.MediaConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestNewS3HostDerivesBaseURL(t *testing.T) {
	host, err := NewS3Host(context.Background(), config.MediaConfig{
		Bucket:    "clips",
		Region:    "eu-west-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "thumbnail/t.jpg", host.KeyFromURL("https://clips.s3.eu-west-1.amazonaws.com/thumbnail/t.jpg"))

	host, err = NewS3Host(context.Background(), config.MediaConfig{
		Bucket:        "clips",
		Region:        "us-east-1",
		Endpoint:      "http://localhost:4566",
		PublicBaseURL: "https://cdn.example.com",
		AccessKey:     "key",
		SecretKey:     "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "avatar/a.png", host.KeyFromURL("https://cdn.example.com/avatar/a.png"))
	assert.Empty(t, host.KeyFromURL("http://localhost:4566/clips/avatar/a.png"))
}
