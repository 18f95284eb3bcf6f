package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/envelope"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	Database Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	status := map[string]string{"status": "ok"}

	if h.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Database.Ping(ctx); err != nil {
			return envelope.Wrap(http.StatusServiceUnavailable, "database unavailable", err)
		}
		status["database"] = "ok"
	}

	envelope.JSON(r.Context(), w, http.StatusOK, status, "healthy")
	return nil
}
