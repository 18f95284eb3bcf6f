package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/envelope"
)

// LikeHandler implements like and dislike endpoints.
type LikeHandler struct {
	Likes LikeStore
}

// Like handles POST /api/v1/likes/v/{videoId}.
func (h LikeHandler) Like(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, true)
}

// Dislike handles POST /api/v1/likes/v/{videoId}/dislike.
func (h LikeHandler) Dislike(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, false)
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, liked bool) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	state, err := h.Likes.Toggle(ctx, user.ID, videoID, liked)
	if err != nil {
		return storeError(err, "video")
	}

	envelope.JSON(ctx, w, http.StatusOK, state, "reaction updated")
	return nil
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	liked, err := h.Likes.ListLikedVideos(ctx, user.ID)
	if err != nil {
		return envelope.Internal("failed to list liked videos", err)
	}

	envelope.JSON(ctx, w, http.StatusOK, liked, "liked videos fetched successfully")
	return nil
}
