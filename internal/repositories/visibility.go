package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rowQuerier is satisfied by pooled connections and transactions.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const visibleVideoSQL = `
    SELECT EXISTS (
        SELECT 1 FROM videos
        WHERE id = $1 AND (is_published OR owner_id = $2)
    )
`

// requireVisibleVideo returns ErrNotFound unless videoID exists and is either
// published or owned by viewerID. An empty viewerID is an anonymous caller.
func requireVisibleVideo(ctx context.Context, q rowQuerier, videoID, viewerID string) error {
	var visible bool
	if err := q.QueryRow(ctx, visibleVideoSQL, videoID, viewerID).Scan(&visible); err != nil {
		return fmt.Errorf("check video visibility: %w", err)
	}
	if !visible {
		return ErrNotFound
	}
	return nil
}
