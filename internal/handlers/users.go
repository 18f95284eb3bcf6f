package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Media    MediaRelay
	Limiter  RateLimiter
	Uploads  UploadSettings
	Cookies  CookieSettings
	NowFunc  func() time.Time
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := allowRequest(h.Limiter, r, "register"); err != nil {
		return err
	}
	if err := h.Uploads.parseUpload(w, r); err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "username", "email", "fullName", "password"); err != nil {
		return err
	}

	username := strings.ToLower(values["username"])
	email := strings.ToLower(values["email"])
	if _, err := mail.ParseAddress(email); err != nil {
		return envelope.BadRequest("invalid email address", "email")
	}

	if _, err := h.Users.FindByLogin(ctx, username, email); err == nil {
		return envelope.Conflict("user with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return envelope.Internal("unable to verify existing accounts", err)
	}

	files := h.Uploads.newTempFiles()
	defer files.cleanup(ctx)

	avatarPath, err := files.save(r, "avatar", true)
	if err != nil {
		return err
	}
	coverPath, err := files.save(r, "coverImage", false)
	if err != nil {
		return err
	}

	hashed, err := auth.HashPassword(values["password"])
	if err != nil {
		return envelope.Internal("failed to secure password", err)
	}

	avatar, err := h.Media.Upload(ctx, avatarPath, storage.KindAvatar)
	if err != nil {
		return envelope.Internal("failed to upload avatar", err)
	}

	var cover storage.Asset
	if coverPath != "" {
		if cover, err = h.Media.Upload(ctx, coverPath, storage.KindCoverImage); err != nil {
			removeAsset(ctx, h.Media, avatar.URL)
			return envelope.Internal("failed to upload cover image", err)
		}
	}

	now := h.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		FullName:   values["fullName"],
		Password:   hashed,
		Avatar:     avatar.URL,
		CoverImage: cover.URL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		removeAsset(ctx, h.Media, avatar.URL)
		removeAsset(ctx, h.Media, cover.URL)
		if errors.Is(err, repositories.ErrConflict) {
			return envelope.Conflict("user with email or username already exists")
		}
		return envelope.Internal("failed to register user", err)
	}

	logger.Info("user registered", "userId", user.ID)
	envelope.JSON(ctx, w, http.StatusCreated, user, "user registered successfully")
	return nil
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := allowRequest(h.Limiter, r, "login"); err != nil {
		logger.Warn("login rate limited", "ip", clientIP(r))
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}

	username := strings.ToLower(strings.TrimSpace(values["username"]))
	email := strings.ToLower(strings.TrimSpace(values["email"]))
	if username == "" && email == "" {
		return envelope.BadRequest("username or email is required")
	}
	if values["password"] == "" {
		return envelope.BadRequest("password is required", "password")
	}

	user, err := h.Users.FindByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("login unknown user", "username", username, "email", email)
			return envelope.Unauthorized("invalid user credentials")
		}
		return envelope.Internal("failed to look up user", err)
	}

	if !auth.VerifyPassword(values["password"], user.Password) {
		logger.Warn("login password mismatch", "userId", user.ID)
		return envelope.Unauthorized("invalid user credentials")
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		return envelope.Internal("failed to create session", err)
	}

	h.Cookies.setSession(w, tokens)
	envelope.JSON(ctx, w, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
	return nil
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := h.Sessions.Revoke(r.Context(), user.ID); err != nil {
		return envelope.Internal("failed to end session", err)
	}

	h.Cookies.clearSession(w)
	envelope.JSON(r.Context(), w, http.StatusOK, struct{}{}, "user logged out")
	return nil
}

// RefreshToken handles POST /api/v1/users/refresh-token.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" && r.ContentLength != 0 {
		values, err := fields(r)
		if err != nil {
			return err
		}
		token = strings.TrimSpace(values["refreshToken"])
	}
	if token == "" {
		return envelope.Unauthorized("unauthorized request")
	}

	tokens, err := h.Sessions.Rotate(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrStaleSession) {
			return envelope.Wrap(http.StatusUnauthorized, "refresh token is expired or used", err)
		}
		return envelope.Internal("failed to refresh session", err)
	}

	h.Cookies.setSession(w, tokens)
	envelope.JSON(ctx, w, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "access token refreshed")
	return nil
}

// Me handles GET /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	envelope.JSON(r.Context(), w, http.StatusOK, user, "current user fetched successfully")
	return nil
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "oldPassword", "newPassword"); err != nil {
		return err
	}

	if !auth.VerifyPassword(values["oldPassword"], user.Password) {
		return envelope.BadRequest("invalid old password", "oldPassword")
	}

	hashed, err := auth.HashPassword(values["newPassword"])
	if err != nil {
		return envelope.Internal("failed to secure password", err)
	}

	user.Password = hashed
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		return storeError(err, "user")
	}

	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
	return nil
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "fullName", "email"); err != nil {
		return err
	}

	email := strings.ToLower(values["email"])
	if _, err := mail.ParseAddress(email); err != nil {
		return envelope.BadRequest("invalid email address", "email")
	}

	user.FullName = values["fullName"]
	user.Email = email
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return envelope.Conflict("email is already in use")
		}
		return storeError(err, "user")
	}

	envelope.JSON(ctx, w, http.StatusOK, user, "account details updated successfully")
	return nil
}

// UpdateAvatar handles POST /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.replaceImage(w, r, "avatar", storage.KindAvatar, func(u *models.User) *string { return &u.Avatar })
}

// UpdateCoverImage handles POST /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.replaceImage(w, r, "coverImage", storage.KindCoverImage, func(u *models.User) *string { return &u.CoverImage })
}

// replaceImage uploads the new image, saves its URL and then removes the old asset.
func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, kind storage.Kind, target func(*models.User) *string) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := h.Uploads.parseUpload(w, r); err != nil {
		return err
	}

	files := h.Uploads.newTempFiles()
	defer files.cleanup(ctx)

	path, err := files.save(r, field, true)
	if err != nil {
		return err
	}

	asset, err := h.Media.Upload(ctx, path, kind)
	if err != nil {
		return envelope.Internal("failed to upload "+field, err)
	}

	slot := target(&user)
	previous := *slot
	*slot = asset.URL
	user.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, user); err != nil {
		removeAsset(ctx, h.Media, asset.URL)
		return storeError(err, "user")
	}

	removeAsset(ctx, h.Media, previous)

	envelope.JSON(ctx, w, http.StatusOK, user, field+" updated successfully")
	return nil
}

// Channel handles GET /api/v1/users/c/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		return envelope.BadRequest("username is missing", "username")
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewerID(r))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return envelope.NotFound("channel does not exist")
		}
		return envelope.Internal("failed to load channel", err)
	}

	envelope.JSON(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
	return nil
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
