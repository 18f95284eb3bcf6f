package app

import (
	"context"
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

const limiterIdleFactor = 5

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup releases clients opened here; the pool stays owned by the caller.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(), error) {
	host, err := newMediaHost(ctx, cfg.Media)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	prober := videos.NewFFProbe(cfg.Media.FFProbePath, cfg.Media.FFProbeTimeout)
	users := repositories.NewPostgresUserRepository(pool)

	sessions := auth.NewManager(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshSecret: cfg.Auth.RefreshSecret,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	}, repositories.NewPostgresSessionStore(pool))

	limiter, closeLimiter := newLoginLimiter(cfg)

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Media:         storage.NewRelay(host, prober),
		LoginLimiter:  limiter,
		Uploads:       handlers.UploadSettings{Dir: cfg.Uploads.Dir, MaxBytes: cfg.Uploads.MaxBytes},
		Cookies:       handlers.CookieSettings{Secure: cfg.Cookies.Secure},
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.Database = pinger
	}

	return deps, closeLimiter, nil
}

func newMediaHost(ctx context.Context, cfg config.MediaConfig) (storage.ObjectHost, error) {
	switch cfg.Backend {
	case "minio":
		host, err := storage.NewMinioHost(cfg)
		if err != nil {
			return nil, fmt.Errorf("configure minio media host: %w", err)
		}
		return host, nil
	case "s3", "":
		host, err := storage.NewS3Host(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configure s3 media host: %w", err)
		}
		return host, nil
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}

// newLoginLimiter shares limiter state through Redis when redis.addr is set and
// falls back to a process-local limiter otherwise.
func newLoginLimiter(cfg config.Config) (middleware.RateLimiter, func()) {
	limit, window := cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		closeClient := func() {
			if err := client.Close(); err != nil {
				slog.Default().Warn("close redis client", "error", err)
			}
		}
		return middleware.NewRedisRateLimiter(client, limit, window), closeClient
	}

	return middleware.NewLocalRateLimiter(limit, window, limiterIdleFactor*window), func() {}
}
