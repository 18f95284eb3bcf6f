package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// apiFunc is a handler that reports failures by returning them.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (fn apiFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		envelope.Fail(r.Context(), w, err)
	}
}

func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, envelope.Unauthorized("unauthorized request")
	}
	return user, nil
}

// viewerID returns the caller's id on routes where authentication is optional.
func viewerID(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return user.ID
}

// pathID reads a path parameter that must hold a uuid.
func pathID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	if _, err := uuid.Parse(raw); err != nil {
		return "", envelope.BadRequest(fmt.Sprintf("invalid %s", name), name)
	}
	return raw, nil
}

// storeError maps repository sentinels onto API errors.
func storeError(err error, resource string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return envelope.NotFound(resource + " not found")
	case errors.Is(err, repositories.ErrConflict):
		return envelope.Conflict(resource + " already exists")
	default:
		return envelope.Internal("failed to process "+resource, err)
	}
}

// fields reads string values from a JSON object, a urlencoded form or a
// multipart form, whichever the request carries.
func fields(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		raw := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, envelope.BadRequest("invalid request body")
		}
		out := make(map[string]string, len(raw))
		for key, value := range raw {
			switch v := value.(type) {
			case string:
				out[key] = v
			case bool, float64:
				out[key] = fmt.Sprint(v)
			}
		}
		return out, nil
	}

	if mediaType == "multipart/form-data" {
		if r.MultipartForm == nil {
			if err := r.ParseMultipartForm(multipartMemory); err != nil {
				return nil, envelope.BadRequest("invalid multipart body")
			}
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, envelope.BadRequest("invalid form body")
	}

	out := make(map[string]string, len(r.Form))
	for key := range r.Form {
		out[key] = r.Form.Get(key)
	}
	return out, nil
}

// required trims the named values and reports every blank one at once.
func required(values map[string]string, names ...string) error {
	var missing []string
	for _, name := range names {
		values[name] = strings.TrimSpace(values[name])
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return envelope.BadRequest("all fields are required", missing...)
	}
	return nil
}
