package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/videos"
)

var videoSelect = strings.Join(videos.VideoColumns, ", ")

// videoTargets returns scan destinations matching videos.VideoColumns.
func videoTargets(video *models.Video, owner *models.PublicUser) []any {
	return []any{
		&video.ID, &video.OwnerID, &video.VideoFile, &video.Thumbnail, &video.Title, &video.Description,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar,
	}
}

func collectVideoItems(rows pgx.Rows) ([]models.VideoListItem, error) {
	defer rows.Close()

	items := []models.VideoListItem{}
	for rows.Next() {
		var item models.VideoListItem
		if err := rows.Scan(videoTargets(&item.Video, &item.Owner)...); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return items, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_url, thumbnail_url, title, description, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return classify(err, "insert video")
	}

	return nil
}

// FindByID fetches a video regardless of its publication state.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var video models.Video
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, video_url, thumbnail_url, title, description, duration, views, is_published, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id).Scan(&video.ID, &video.OwnerID, &video.VideoFile, &video.Thumbnail, &video.Title, &video.Description,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// List returns one page of published videos ranked and ordered per opts.
func (r *PostgresVideoRepository) List(ctx context.Context, opts videos.ListOptions) (models.VideoPage, error) {
	if err := opts.Validate(); err != nil {
		return models.VideoPage{}, err
	}

	countSQL, countArgs, err := videos.BuildCount(opts)
	if err != nil {
		return models.VideoPage{}, err
	}
	listSQL, listArgs, err := videos.BuildList(opts)
	if err != nil {
		return models.VideoPage{}, err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
	}

	rows, err := conn.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	ranked := opts.Ranked()
	items := []models.VideoListItem{}
	for rows.Next() {
		var item models.VideoListItem
		targets := videoTargets(&item.Video, &item.Owner)
		var titleMatches, descriptionMatches int
		if ranked {
			targets = append(targets, &titleMatches, &descriptionMatches)
		}
		if err := rows.Scan(targets...); err != nil {
			return models.VideoPage{}, fmt.Errorf("scan video: %w", err)
		}
		if ranked {
			item.TitleMatchCount = &titleMatches
			item.DescriptionMatchCount = &descriptionMatches
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return models.VideoPage{}, fmt.Errorf("iterate videos: %w", err)
	}

	return models.VideoPage{
		Videos:     items,
		PagingInfo: models.NewPagingInfo(total, opts.Page, opts.Limit),
	}, nil
}

// Detail loads a single video with like aggregates for viewerID. Unpublished videos
// of other owners yield ErrNotFound.
func (r *PostgresVideoRepository) Detail(ctx context.Context, id, viewerID string) (models.VideoDetail, error) {
	query, args, err := videos.BuildDetail(id, viewerID)
	if err != nil {
		return models.VideoDetail{}, err
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var detail models.VideoDetail
	targets := append(videoTargets(&detail.Video, &detail.Owner),
		&detail.TotalLikes, &detail.TotalDislikes, &detail.IsLiked, &detail.IsDisliked)
	if err := conn.QueryRow(ctx, query, args...).Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoDetail{}, ErrNotFound
		}
		return models.VideoDetail{}, fmt.Errorf("select video detail: %w", err)
	}
	return detail, nil
}

// Update persists the editable fields of a video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, is_published = $5, updated_at = $6
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail, video.IsPublished, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a video together with its likes, comments and playlist entries.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// IncrementViews bumps the view counter by one.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment video views: %w", err)
	}
	return nil
}
