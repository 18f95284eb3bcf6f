package videos

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var sortColumns = map[string]string{
	"createdAt": "v.created_at",
	"updatedAt": "v.updated_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

// VideoColumns is the column list scanned into a models.Video followed by the owner projection.
var VideoColumns = []string{
	"v.id", "v.owner_id", "v.video_url", "v.thumbnail_url", "v.title", "v.description",
	"v.duration", "v.views", "v.is_published", "v.created_at", "v.updated_at",
	"u.id", "u.username", "u.full_name", "u.avatar_url",
}

// ListOptions controls the published video listing.
type ListOptions struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
	OwnerID  string
}

// ParseListOptions reads listing options from query parameters, applying defaults.
func ParseListOptions(values url.Values) (ListOptions, error) {
	opts := ListOptions{
		Page:     DefaultPage,
		Limit:    DefaultLimit,
		Query:    values.Get("query"),
		SortBy:   strings.TrimSpace(values.Get("sortBy")),
		SortType: strings.ToLower(strings.TrimSpace(values.Get("sortType"))),
		OwnerID:  strings.TrimSpace(values.Get("userId")),
	}

	var err error
	if opts.Page, err = ParsePositive(values.Get("page"), DefaultPage); err != nil {
		return ListOptions{}, ErrInvalidPage
	}
	if opts.Limit, err = ParsePositive(values.Get("limit"), DefaultLimit); err != nil {
		return ListOptions{}, ErrInvalidLimit
	}
	if err := opts.Validate(); err != nil {
		return ListOptions{}, err
	}
	return opts, nil
}

// ParsePositive parses raw as a positive integer, returning fallback when raw is blank.
func ParsePositive(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("value %d is not positive", n)
	}
	return n, nil
}

// Validate checks paging bounds and the sort whitelist, capping Limit at MaxLimit.
func (o *ListOptions) Validate() error {
	if o.Page <= 0 {
		return ErrInvalidPage
	}
	if o.Limit <= 0 {
		return ErrInvalidLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.SortBy != "" {
		if _, ok := sortColumns[o.SortBy]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSortField, o.SortBy)
		}
	}
	switch o.SortType {
	case "", "asc", "desc":
	default:
		return ErrInvalidSortType
	}
	return nil
}

// Offset returns the row offset of the requested page.
func (o ListOptions) Offset() uint64 {
	return uint64(o.Page-1) * uint64(o.Limit)
}

// Ranked reports whether the listing is ordered by keyword relevance. Any
// non-blank query ranks, even one made only of stop words, whose match counts
// are then all zero.
func (o ListOptions) Ranked() bool {
	return strings.TrimSpace(o.Query) != ""
}

func (o ListOptions) filter() sq.And {
	where := sq.And{sq.Eq{"v.is_published": true}}
	if _, err := uuid.Parse(o.OwnerID); err == nil {
		where = append(where, sq.Eq{"v.owner_id": o.OwnerID})
	}
	return where
}

func (o ListOptions) orderBy() []string {
	if o.Ranked() {
		return []string{"title_match_count DESC", "v.created_at DESC"}
	}
	if column, ok := sortColumns[o.SortBy]; ok {
		direction := "DESC"
		if o.SortType == "asc" {
			direction = "ASC"
		}
		return []string{column + " " + direction, "v.id"}
	}
	return []string{"v.created_at DESC", "v.id"}
}

// matchCount counts how many words appear as whole space-separated words of column.
func matchCount(column string, words []string) sq.Sqlizer {
	if len(words) == 0 {
		return sq.Expr("0")
	}
	parts := make([]string, len(words))
	args := make([]any, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("CASE WHEN ?::text = ANY(string_to_array(lower(%s), ' ')) THEN 1 ELSE 0 END", column)
		args[i] = w
	}
	return sq.Expr("("+strings.Join(parts, " + ")+")", args...)
}

// BuildList returns the paginated listing statement. When the query has keywords, the
// two trailing columns are the title and description match counts.
func BuildList(opts ListOptions) (string, []any, error) {
	builder := psql.Select(VideoColumns...).
		From("videos v").
		Join("users u ON u.id = v.owner_id").
		Where(opts.filter())

	if opts.Ranked() {
		words := Keywords(opts.Query)
		builder = builder.
			Column(sq.Alias(matchCount("v.title", words), "title_match_count")).
			Column(sq.Alias(matchCount("v.description", words), "description_match_count"))
	}

	sql, args, err := builder.
		OrderBy(opts.orderBy()...).
		Limit(uint64(opts.Limit)).
		Offset(opts.Offset()).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build video list query: %w", err)
	}
	return sql, args, nil
}

// BuildCount returns the statement counting all rows matched by the listing filter.
func BuildCount(opts ListOptions) (string, []any, error) {
	sql, args, err := psql.Select("COUNT(*)").
		From("videos v").
		Join("users u ON u.id = v.owner_id").
		Where(opts.filter()).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build video count query: %w", err)
	}
	return sql, args, nil
}

// BuildDetail returns the statement loading one video with its like aggregates for
// viewerID. Unpublished videos are only visible to their owner; an empty viewerID is
// an anonymous caller.
func BuildDetail(videoID, viewerID string) (string, []any, error) {
	columns := append(append([]string{}, VideoColumns...),
		"(SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id AND l.liked) AS total_likes",
		"(SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id AND NOT l.liked) AS total_dislikes",
	)

	sql, args, err := psql.Select(columns...).
		Column(sq.Alias(sq.Expr("EXISTS (SELECT 1 FROM likes l WHERE l.video_id = v.id AND l.user_id = ? AND l.liked)", viewerID), "is_liked")).
		Column(sq.Alias(sq.Expr("EXISTS (SELECT 1 FROM likes l WHERE l.video_id = v.id AND l.user_id = ? AND NOT l.liked)", viewerID), "is_disliked")).
		From("videos v").
		Join("users u ON u.id = v.owner_id").
		Where(sq.Eq{"v.id": videoID}).
		Where(sq.Or{sq.Eq{"v.is_published": true}, sq.Eq{"v.owner_id": viewerID}}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build video detail query: %w", err)
	}
	return sql, args, nil
}
