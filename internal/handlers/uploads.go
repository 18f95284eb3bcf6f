package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/logging"
)

const multipartMemory = 32 << 20

// UploadSettings controls where multipart files are buffered before relaying.
type UploadSettings struct {
	Dir      string
	MaxBytes int64
}

func isMultipart(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "multipart/form-data"
}

// parseUpload limits the body size and parses a multipart form.
func (s UploadSettings) parseUpload(w http.ResponseWriter, r *http.Request) error {
	if !isMultipart(r) {
		return envelope.BadRequest("expected a multipart/form-data body")
	}
	if s.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return envelope.New(http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return envelope.BadRequest("invalid multipart body")
	}
	return nil
}

// tempFiles copies multipart parts to local files and removes them afterwards.
type tempFiles struct {
	dir   string
	paths []string
}

func (s UploadSettings) newTempFiles() *tempFiles {
	return &tempFiles{dir: s.Dir}
}

// save stores the named part and returns its local path, or "" when the part
// is absent and not required.
func (t *tempFiles) save(r *http.Request, field string, required bool) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			if required {
				return "", envelope.BadRequest(field+" file is required", field)
			}
			return "", nil
		}
		return "", envelope.BadRequest("invalid "+field+" file", field)
	}
	defer file.Close()

	if t.dir != "" {
		if err := os.MkdirAll(t.dir, 0o755); err != nil {
			return "", envelope.Internal("failed to prepare upload directory", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	out, err := os.CreateTemp(t.dir, "upload-*"+ext)
	if err != nil {
		return "", envelope.Internal("failed to buffer upload", err)
	}
	t.paths = append(t.paths, out.Name())

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return "", envelope.Internal("failed to buffer upload", err)
	}
	if err := out.Close(); err != nil {
		return "", envelope.Internal("failed to buffer upload", err)
	}
	return out.Name(), nil
}

func (t *tempFiles) cleanup(ctx context.Context) {
	for _, path := range t.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove temp upload", "path", path, "error", err)
		}
	}
	t.paths = nil
}

// removeAsset deletes a replaced remote asset. Failures are logged and never
// fail the request.
func removeAsset(ctx context.Context, media MediaRelay, url string) {
	if media == nil || strings.TrimSpace(url) == "" {
		return
	}
	if err := media.Delete(ctx, url); err != nil {
		logging.FromContext(ctx).Error("stale asset cleanup failed", "url", url, "error", err)
	}
}
