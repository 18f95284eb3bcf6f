package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresLikeRepository persists like and dislike reactions on videos.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle applies a reaction of polarity liked. Repeating the current reaction removes
// it, the opposite reaction flips it, and no reaction creates it. Videos userID
// cannot see yield ErrNotFound.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID, videoID string, liked bool) (models.LikeState, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.LikeState{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var state models.LikeState
	err = crdbpgx.ExecuteTx(ctx, conn, serializable, func(tx pgx.Tx) error {
		state = models.LikeState{}

		if err := requireVisibleVideo(ctx, tx, videoID, userID); err != nil {
			return err
		}

		var current bool
		err := tx.QueryRow(ctx, `
            SELECT liked FROM likes
            WHERE user_id = $1 AND video_id = $2
            FOR UPDATE
        `, userID, videoID).Scan(&current)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx, `
                INSERT INTO likes (id, user_id, video_id, liked)
                VALUES ($1, $2, $3, $4)
            `, uuid.NewString(), userID, videoID, liked); err != nil {
				return err
			}
			state = reaction(liked)
		case err != nil:
			return err
		case current == liked:
			if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE user_id = $1 AND video_id = $2`, userID, videoID); err != nil {
				return err
			}
		default:
			if _, err := tx.Exec(ctx, `
                UPDATE likes SET liked = $3, updated_at = now()
                WHERE user_id = $1 AND video_id = $2
            `, userID, videoID, liked); err != nil {
				return err
			}
			state = reaction(liked)
		}
		return nil
	})
	if err != nil {
		return models.LikeState{}, classify(err, "toggle like")
	}

	return state, nil
}

func reaction(liked bool) models.LikeState {
	return models.LikeState{IsLiked: liked, IsDisliked: !liked}
}

// ListLikedVideos returns the videos userID liked that are visible to them, most recent first.
func (r *PostgresLikeRepository) ListLikedVideos(ctx context.Context, userID string) ([]models.VideoListItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSelect+`
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.user_id = $1 AND l.liked AND (v.is_published OR v.owner_id = $1)
        ORDER BY l.updated_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}

	return collectVideoItems(rows)
}
