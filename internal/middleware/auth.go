package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Cookie names carrying the session tokens.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// TokenVerifier validates access tokens and returns the subject user id.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// UserLoader resolves the user named by a verified token.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RequireUser rejects requests without a valid access token with a 401 envelope.
func RequireUser(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := AccessToken(r)
			if token == "" {
				envelope.Fail(ctx, w, envelope.Unauthorized("unauthorized request"))
				return
			}

			user, err := resolveUser(ctx, verifier, users, token)
			switch {
			case errors.Is(err, errRejectedToken):
				logging.FromContext(ctx).Warn("access token rejected", "error", err)
				envelope.Fail(ctx, w, envelope.Unauthorized("invalid access token"))
				return
			case err != nil:
				envelope.Fail(ctx, w, envelope.Internal("failed to authenticate request", err))
				return
			}

			ctx = logging.WithUserID(auth.WithUser(ctx, user), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalUser attaches the caller when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalUser(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token := AccessToken(r); token != "" {
				user, err := resolveUser(ctx, verifier, users, token)
				switch {
				case err == nil:
					ctx = logging.WithUserID(auth.WithUser(ctx, user), user.ID)
				case errors.Is(err, errRejectedToken):
					logging.FromContext(ctx).Debug("ignoring invalid access token", "error", err)
				default:
					envelope.Fail(ctx, w, envelope.Internal("failed to authenticate request", err))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessToken reads the token from the access cookie, then the bearer header.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// errRejectedToken marks failures caused by the presented token rather than
// by the user lookup's backing store.
var errRejectedToken = errors.New("access token rejected")

func resolveUser(ctx context.Context, verifier TokenVerifier, users UserLoader, token string) (models.User, error) {
	userID, err := verifier.VerifyAccessToken(token)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", errRejectedToken, err)
	}
	user, err := users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, fmt.Errorf("%w: subject %s no longer exists", errRejectedToken, userID)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user, nil
}
