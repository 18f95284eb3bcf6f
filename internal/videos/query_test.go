package videos

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID = "5f0c6a38-6a0d-4d8f-9a57-1f4f5d5b2e11"

func TestKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "blank", query: "   ", want: nil},
		{name: "stop words removed", query: "The Funny  Cat", want: []string{"funny", "cat"}},
		{name: "duplicates collapsed", query: "cat CAT cat dog", want: []string{"cat", "dog"}},
		{name: "only stop words", query: "the and of", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keywords(tt.query)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListOptionsDefaults(t *testing.T) {
	opts, err := ParseListOptions(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, uint64(0), opts.Offset())
}

func TestParseListOptionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   error
	}{
		{name: "zero page", values: url.Values{"page": {"0"}}, want: ErrInvalidPage},
		{name: "text page", values: url.Values{"page": {"two"}}, want: ErrInvalidPage},
		{name: "negative limit", values: url.Values{"limit": {"-3"}}, want: ErrInvalidLimit},
		{name: "unknown sort", values: url.Values{"sortBy": {"password"}}, want: ErrUnknownSortField},
		{name: "bad sort type", values: url.Values{"sortBy": {"views"}, "sortType": {"sideways"}}, want: ErrInvalidSortType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseListOptions(tt.values)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseListOptionsCapsLimit(t *testing.T) {
	opts, err := ParseListOptions(url.Values{"limit": {"1000"}, "page": {"3"}})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, opts.Limit)
	assert.Equal(t, uint64(200), opts.Offset())
}

func TestBuildListDefaultOrdering(t *testing.T) {
	sql, args, err := BuildList(ListOptions{Page: 2, Limit: 5})
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM videos v JOIN users u ON u.id = v.owner_id")
	assert.Contains(t, sql, "WHERE (v.is_published = $1)")
	assert.Contains(t, sql, "ORDER BY v.created_at DESC, v.id")
	assert.Contains(t, sql, "LIMIT 5 OFFSET 5")
	assert.NotContains(t, sql, "title_match_count")
	assert.Equal(t, []any{true}, args)
}

func TestBuildListOwnerFilter(t *testing.T) {
	sql, args, err := BuildList(ListOptions{Page: 1, Limit: 10, OwnerID: ownerID})
	require.NoError(t, err)
	assert.Contains(t, sql, "v.owner_id = $2")
	assert.Equal(t, []any{true, ownerID}, args)

	sql, args, err = BuildList(ListOptions{Page: 1, Limit: 10, OwnerID: "not-an-id"})
	require.NoError(t, err)
	assert.NotContains(t, sql, "v.owner_id =")
	assert.Equal(t, []any{true}, args)
}

func TestBuildListRankedByKeywords(t *testing.T) {
	sql, args, err := BuildList(ListOptions{Page: 1, Limit: 10, Query: "the funny cat", SortBy: "views"})
	require.NoError(t, err)

	assert.Contains(t, sql, "AS title_match_count")
	assert.Contains(t, sql, "AS description_match_count")
	assert.Contains(t, sql, "ORDER BY title_match_count DESC, v.created_at DESC")
	assert.NotContains(t, sql, "v.views DESC")
	assert.Equal(t, 2, strings.Count(sql, "string_to_array(lower(v.title), ' ')"))
	assert.Equal(t, 2, strings.Count(sql, "string_to_array(lower(v.description), ' ')"))
	assert.Equal(t, []any{"funny", "cat", "funny", "cat", true}, args)
}

func TestBuildListRanksStopWordOnlyQuery(t *testing.T) {
	opts := ListOptions{Page: 1, Limit: 10, Query: "the a", SortBy: "views"}
	assert.True(t, opts.Ranked())
	assert.False(t, ListOptions{Query: "   "}.Ranked())

	sql, args, err := BuildList(opts)
	require.NoError(t, err)

	assert.Contains(t, sql, "(0) AS title_match_count")
	assert.Contains(t, sql, "(0) AS description_match_count")
	assert.Contains(t, sql, "ORDER BY title_match_count DESC, v.created_at DESC")
	assert.NotContains(t, sql, "v.views DESC")
	assert.Equal(t, []any{true}, args)
}

func TestBuildListSortBy(t *testing.T) {
	sql, _, err := BuildList(ListOptions{Page: 1, Limit: 10, SortBy: "views", SortType: "asc"})
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY v.views ASC, v.id")

	sql, _, err = BuildList(ListOptions{Page: 1, Limit: 10, SortBy: "duration"})
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY v.duration DESC, v.id")
}

func TestBuildCountSharesFilter(t *testing.T) {
	sql, args, err := BuildCount(ListOptions{Page: 4, Limit: 5, OwnerID: ownerID, Query: "cat"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "SELECT COUNT(*) FROM videos v"))
	assert.NotContains(t, sql, "LIMIT")
	assert.NotContains(t, sql, "ORDER BY")
	assert.Equal(t, []any{true, ownerID}, args)
}

func TestBuildDetail(t *testing.T) {
	sql, args, err := BuildDetail("video-1", "viewer-1")
	require.NoError(t, err)

	assert.Contains(t, sql, "AS total_likes")
	assert.Contains(t, sql, "AS total_dislikes")
	assert.Contains(t, sql, "AS is_liked")
	assert.Contains(t, sql, "AS is_disliked")
	assert.Contains(t, sql, "(v.is_published = $4 OR v.owner_id = $5)")
	assert.Equal(t, []any{"viewer-1", "viewer-1", "video-1", true, "viewer-1"}, args)
}
