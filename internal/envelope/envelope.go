// Package envelope renders the uniform JSON response shapes returned by every endpoint.
package envelope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vidtube/backend/internal/logging"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// Error is a domain failure carrying the HTTP status it should be rendered with.
type Error struct {
	Status  int
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the given status and message.
func New(status int, message string, details ...string) *Error {
	return &Error{Status: status, Message: message, Details: details}
}

// Wrap builds an Error that keeps the underlying cause for logging.
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string, details ...string) *Error {
	return New(http.StatusBadRequest, message, details...)
}

func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

func Conflict(message string) *Error { return New(http.StatusConflict, message) }

// Internal hides err from the client while keeping it for the log line.
func Internal(message string, err error) *Error {
	return Wrap(http.StatusInternalServerError, message, err)
}

// JSON writes a success envelope.
func JSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	write(ctx, w, status, Response{StatusCode: status, Data: data, Message: message, Success: true})
}

// Fail renders err as an error envelope. Errors that are not *Error become a 500.
func Fail(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logging.FromContext(ctx)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		logger.Error("unhandled error", "error", err)
		apiErr = New(http.StatusInternalServerError, "internal server error")
	}

	details := apiErr.Details
	if details == nil {
		details = []string{}
	}

	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", apiErr.Status, "message", apiErr.Message, "error", apiErr.Err)
	case apiErr.Status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", apiErr.Status, "message", apiErr.Message)
	}

	write(ctx, w, apiErr.Status, ErrorResponse{
		StatusCode: apiErr.Status,
		Message:    apiErr.Message,
		Success:    false,
		Errors:     details,
	})
}

func write(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
