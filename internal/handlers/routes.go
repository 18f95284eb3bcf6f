package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/middleware"
)

const apiPrefix = "/api/v1"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Likes         LikeStore
	Comments      CommentStore
	Playlists     PlaylistStore
	Media         MediaRelay
	LoginLimiter  RateLimiter
	Database      Pinger
	Uploads       UploadSettings
	Cookies       CookieSettings
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	protected := middleware.RequireUser(deps.Sessions, deps.Users)
	optional := middleware.OptionalUser(deps.Sessions, deps.Users)

	public := func(pattern string, fn apiFunc) {
		mux.Handle(pattern, fn)
	}
	private := func(pattern string, fn apiFunc) {
		mux.Handle(pattern, protected(fn))
	}
	viewer := func(pattern string, fn apiFunc) {
		mux.Handle(pattern, optional(fn))
	}
	api := func(method, path string) string {
		return method + " " + apiPrefix + path
	}

	health := HealthHandler{Database: deps.Database}
	users := UserHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Media:    deps.Media,
		Limiter:  deps.LoginLimiter,
		Uploads:  deps.Uploads,
		Cookies:  deps.Cookies,
	}
	videos := VideoHandler{Videos: deps.Videos, Media: deps.Media, Uploads: deps.Uploads}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}
	likes := LikeHandler{Likes: deps.Likes}
	comments := CommentHandler{Comments: deps.Comments}
	playlists := PlaylistHandler{Playlists: deps.Playlists}

	public("GET /healthz", health.Handle)
	mux.Handle("GET /metrics", promhttp.Handler())

	public(api(http.MethodPost, "/users/register"), users.Register)
	public(api(http.MethodPost, "/users/login"), users.Login)
	public(api(http.MethodPost, "/users/refresh-token"), users.RefreshToken)
	private(api(http.MethodPost, "/users/logout"), users.Logout)
	private(api(http.MethodGet, "/users/me"), users.Me)
	private(api(http.MethodPost, "/users/change-password"), users.ChangePassword)
	private(api(http.MethodPatch, "/users/update-account"), users.UpdateAccount)
	private(api(http.MethodPost, "/users/avatar"), users.UpdateAvatar)
	private(api(http.MethodPost, "/users/cover-image"), users.UpdateCoverImage)
	viewer(api(http.MethodGet, "/users/c/{username}"), users.Channel)

	public(api(http.MethodGet, "/videos"), videos.List)
	private(api(http.MethodPost, "/videos"), videos.Publish)
	viewer(api(http.MethodGet, "/videos/{videoId}"), videos.Get)
	private(api(http.MethodPatch, "/videos/{videoId}"), videos.Update)
	private(api(http.MethodDelete, "/videos/{videoId}"), videos.Delete)
	private(api(http.MethodPatch, "/videos/toggle/publish/{videoId}"), videos.TogglePublish)

	private(api(http.MethodPost, "/subscriptions/c/{channelId}"), subscriptions.Toggle)
	private(api(http.MethodGet, "/subscriptions/u/{channelId}"), subscriptions.Subscribers)
	private(api(http.MethodGet, "/subscriptions/c/{subscriberId}"), subscriptions.Channels)

	private(api(http.MethodPost, "/likes/v/{videoId}"), likes.Like)
	private(api(http.MethodPost, "/likes/v/{videoId}/dislike"), likes.Dislike)
	private(api(http.MethodGet, "/likes/videos"), likes.LikedVideos)

	viewer(api(http.MethodGet, "/comments/{videoId}"), comments.List)
	private(api(http.MethodPost, "/comments/{videoId}"), comments.Create)
	private(api(http.MethodPatch, "/comments/c/{commentId}"), comments.Update)
	private(api(http.MethodDelete, "/comments/c/{commentId}"), comments.Delete)

	private(api(http.MethodPost, "/playlists"), playlists.Create)
	viewer(api(http.MethodGet, "/playlists/{playlistId}"), playlists.Get)
	private(api(http.MethodPatch, "/playlists/{playlistId}"), playlists.Update)
	private(api(http.MethodDelete, "/playlists/{playlistId}"), playlists.Delete)
	private(api(http.MethodPatch, "/playlists/add/{videoId}/{playlistId}"), playlists.AddVideo)
	private(api(http.MethodPatch, "/playlists/remove/{videoId}/{playlistId}"), playlists.RemoveVideo)
	viewer(api(http.MethodGet, "/playlists/user/{userId}"), playlists.ListByUser)
}
