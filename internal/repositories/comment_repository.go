package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresCommentRepository persists comments on videos.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a new comment. A video the commenter cannot see yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        SELECT $1::text, v.id, $3::text, $4::text, $5::timestamptz, $6::timestamptz
        FROM videos v
        WHERE v.id = $2 AND (v.is_published OR v.owner_id = $3)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return classify(err, "insert comment")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID fetches a comment with its owner projection.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	query, args, err := commentQuery().Where(sq.Eq{"c.id": id}).ToSql()
	if err != nil {
		return models.Comment{}, fmt.Errorf("build comment query: %w", err)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var comment models.Comment
	if err := conn.QueryRow(ctx, query, args...).Scan(commentTargets(&comment)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}
	return comment, nil
}

// List returns one page of a video's comments, newest first. Comments on a
// video viewerID cannot see yield ErrNotFound.
func (r *PostgresCommentRepository) List(ctx context.Context, videoID, viewerID string, page, limit int) (models.CommentPage, error) {
	if page <= 0 || limit <= 0 {
		return models.CommentPage{}, fmt.Errorf("invalid page %d or limit %d", page, limit)
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("comments c").Where(sq.Eq{"c.video_id": videoID}).ToSql()
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("build comment count query: %w", err)
	}
	listSQL, listArgs, err := commentQuery().
		Where(sq.Eq{"c.video_id": videoID}).
		OrderBy("c.created_at DESC", "c.id").
		Limit(uint64(limit)).
		Offset(uint64(page-1) * uint64(limit)).
		ToSql()
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("build comment list query: %w", err)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := requireVisibleVideo(ctx, conn, videoID, viewerID); err != nil {
		return models.CommentPage{}, err
	}

	var total int64
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return models.CommentPage{}, fmt.Errorf("count comments: %w", err)
	}

	rows, err := conn.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(commentTargets(&comment)...); err != nil {
			return models.CommentPage{}, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return models.CommentPage{}, fmt.Errorf("iterate comments: %w", err)
	}

	return models.CommentPage{
		Comments:   comments,
		PagingInfo: models.NewPagingInfo(total, page, limit),
	}, nil
}

// Update replaces the comment content.
func (r *PostgresCommentRepository) Update(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE comments SET content = $2, updated_at = $3
        WHERE id = $1
    `, comment.ID, comment.Content, comment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a comment.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func commentQuery() sq.SelectBuilder {
	return psql.Select(
		"c.id", "c.video_id", "c.owner_id", "c.content", "c.created_at", "c.updated_at",
		"u.id", "u.username", "u.full_name", "u.avatar_url",
	).From("comments c").Join("users u ON u.id = c.owner_id")
}

func commentTargets(c *models.Comment) []any {
	return []any{
		&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt, &c.UpdatedAt,
		&c.Owner.ID, &c.Owner.Username, &c.Owner.FullName, &c.Owner.Avatar,
	}
}
