package models

import "time"

// User represents an account within the VidTube platform. Password holds the
// bcrypt hash and never leaves the process in JSON form.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	Password   string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public returns the projection of the user that is safe to embed in other resources.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// PublicUser is the owner projection joined onto videos, comments and playlists.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// ChannelProfile describes a user's channel as seen by a (possibly anonymous) viewer.
type ChannelProfile struct {
	PublicUser
	CoverImage        string `json:"coverImage"`
	SubscribersCount  int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// Video stores a published (or draft) video and its media references.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoListItem is a row of the ranked video listing.
type VideoListItem struct {
	Video
	Owner                 PublicUser `json:"owner"`
	TitleMatchCount       *int       `json:"titleMatchWordCount,omitempty"`
	DescriptionMatchCount *int       `json:"descriptionMatchWordCount,omitempty"`
}

// VideoDetail is a single video with like aggregates for the requesting viewer.
type VideoDetail struct {
	Video
	Owner         PublicUser `json:"owner"`
	TotalLikes    int64      `json:"totalLikes"`
	TotalDislikes int64      `json:"totalDisLikes"`
	IsLiked       bool       `json:"isLiked"`
	IsDisliked    bool       `json:"isDisliked"`
}

// VideoPage groups one page of the listing with its paging metadata.
type VideoPage struct {
	Videos     []VideoListItem `json:"videos"`
	PagingInfo PagingInfo      `json:"pagingInfo"`
}

// PagingInfo mirrors the metadata returned by offset paginated listings.
type PagingInfo struct {
	TotalDocs     int64 `json:"totalDocs"`
	Limit         int   `json:"limit"`
	Page          int   `json:"page"`
	TotalPages    int   `json:"totalPages"`
	PagingCounter int64 `json:"pagingCounter"`
	HasPrevPage   bool  `json:"hasPrevPage"`
	HasNextPage   bool  `json:"hasNextPage"`
	PrevPage      *int  `json:"prevPage"`
	NextPage      *int  `json:"nextPage"`
}

// NewPagingInfo derives paging metadata for a page of size limit out of total documents.
func NewPagingInfo(total int64, page, limit int) PagingInfo {
	if limit <= 0 {
		limit = 1
	}
	if page <= 0 {
		page = 1
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	info := PagingInfo{
		TotalDocs:     total,
		Limit:         limit,
		Page:          page,
		TotalPages:    totalPages,
		PagingCounter: int64(page-1)*int64(limit) + 1,
		HasPrevPage:   page > 1,
		HasNextPage:   page < totalPages,
	}
	if total == 0 {
		info.PagingCounter = 0
	}
	if info.HasPrevPage {
		prev := page - 1
		info.PrevPage = &prev
	}
	if info.HasNextPage {
		next := page + 1
		info.NextPage = &next
	}
	return info
}

// Subscription is an edge from a subscriber to a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LikeState reports the caller's reaction to a video after a toggle.
type LikeState struct {
	IsLiked    bool `json:"isLiked"`
	IsDisliked bool `json:"isDisliked"`
}

// Comment is a text comment left on a video.
type Comment struct {
	ID        string     `json:"id"`
	VideoID   string     `json:"videoId"`
	OwnerID   string     `json:"ownerId"`
	Content   string     `json:"content"`
	Owner     PublicUser `json:"owner"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CommentPage groups one page of comments with its paging metadata.
type CommentPage struct {
	Comments   []Comment  `json:"comments"`
	PagingInfo PagingInfo `json:"pagingInfo"`
}

// Playlist is an owner's ordered collection of videos.
type Playlist struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Videos      []VideoListItem `json:"videos"`
	TotalVideos int             `json:"totalVideos"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
