package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// SessionManager issues, rotates and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	VerifyAccessToken(token string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for the video workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, opts videos.ListOptions) (models.VideoPage, error)
	Detail(ctx context.Context, id, viewerID string) (models.VideoDetail, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

// SubscriptionStore captures the subscription graph operations.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.PublicUser, error)
	ListChannels(ctx context.Context, subscriberID string) ([]models.PublicUser, error)
}

// LikeStore captures like and dislike toggles.
type LikeStore interface {
	Toggle(ctx context.Context, userID, videoID string, liked bool) (models.LikeState, error)
	ListLikedVideos(ctx context.Context, userID string) ([]models.VideoListItem, error)
}

// CommentStore captures comment persistence.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	List(ctx context.Context, videoID, viewerID string, page, limit int) (models.CommentPage, error)
	Update(ctx context.Context, comment models.Comment) error
	Delete(ctx context.Context, id string) error
}

// PlaylistStore captures playlist persistence.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id, viewerID string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// MediaRelay moves uploaded files to the media host and removes replaced assets.
type MediaRelay interface {
	Upload(ctx context.Context, localPath string, kind storage.Kind) (storage.Asset, error)
	Delete(ctx context.Context, url string) error
}
