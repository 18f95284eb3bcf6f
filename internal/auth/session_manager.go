package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// ErrStaleSession indicates the presented refresh token is not the one currently stored for its user.
var ErrStaleSession = errors.New("stale session")

// SessionStore persists the digest of each user's single live refresh token.
type SessionStore interface {
	// Save overwrites the stored digest for userID.
	Save(ctx context.Context, userID, digest string) error
	// Swap replaces oldDigest with newDigest, returning ErrStaleSession when oldDigest is not current.
	Swap(ctx context.Context, userID, oldDigest, newDigest string) error
	// Clear removes the stored digest for userID.
	Clear(ctx context.Context, userID string) error
}

// Manager mints access and refresh tokens and tracks the live refresh token per user.
type Manager struct {
	access  signer
	refresh signer

	store SessionStore
}

// NewManager constructs a Manager signing with the secrets in cfg.
func NewManager(cfg TokenConfig, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	cfg = cfg.withDefaults()
	return &Manager{
		access:  signer{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL, issuer: cfg.Issuer, now: time.Now},
		refresh: signer{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL, issuer: cfg.Issuer, now: time.Now},
		store:   store,
	}
}

// WithNowFunc overrides the clock used for issuing and verifying tokens.
func (m *Manager) WithNowFunc(now func() time.Time) {
	m.access.now = now
	m.refresh.now = now
}

// IssueAccessToken mints a short-lived access token for userID.
func (m *Manager) IssueAccessToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id must be provided")
	}
	return m.access.sign(userID)
}

// IssueRefreshToken mints a refresh token and overwrites the one stored for userID.
func (m *Manager) IssueRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id must be provided")
	}
	token, expiresAt, err := m.refresh.sign(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := m.store.Save(ctx, userID, DigestToken(token)); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	return token, expiresAt, nil
}

// Issue creates a new pair of access and refresh tokens for userID.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	accessToken, accessExp, err := m.IssueAccessToken(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refreshToken, refreshExp, err := m.IssueRefreshToken(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Rotate exchanges a valid, current refresh token for a new token pair.
// Only one of several concurrent rotations with the same token can succeed.
func (m *Manager) Rotate(ctx context.Context, oldRefreshToken string) (models.SessionTokens, error) {
	ctx, span := logging.StartSpan(ctx, "auth.rotate")
	defer span.End()

	userID, err := m.refresh.parse(oldRefreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	accessToken, accessExp, err := m.access.sign(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refreshToken, refreshExp, err := m.refresh.sign(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.Swap(ctx, userID, DigestToken(oldRefreshToken), DigestToken(refreshToken)); err != nil {
		span.Fail(err)
		if errors.Is(err, ErrStaleSession) {
			logging.FromContext(ctx).Warn("refresh token reuse rejected", "user_id", userID)
			return models.SessionTokens{}, ErrStaleSession
		}
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccessToken validates an access token and returns its subject.
func (m *Manager) VerifyAccessToken(token string) (string, error) {
	return m.access.parse(token)
}

// Revoke clears the stored refresh token for userID.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.Clear(ctx, userID)
}
