package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// PlaylistHandler implements playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "name", "description"); err != nil {
		return err
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Name:        values["name"],
		Description: values["description"],
		Videos:      []models.VideoListItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		return storeError(err, "playlist")
	}

	envelope.JSON(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
	return nil
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return err
	}

	playlist, err := h.Playlists.FindByID(ctx, playlistID, viewerID(r))
	if err != nil {
		return storeError(err, "playlist")
	}

	envelope.JSON(ctx, w, http.StatusOK, playlist, "playlist fetched successfully")
	return nil
}

// ListByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}

	playlists, err := h.Playlists.ListByOwner(ctx, userID)
	if err != nil {
		return envelope.Internal("failed to list playlists", err)
	}

	envelope.JSON(ctx, w, http.StatusOK, playlists, "playlists fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "name", "description"); err != nil {
		return err
	}

	playlist.Name = values["name"]
	playlist.Description = values["description"]
	playlist.UpdatedAt = h.now()
	if err := h.Playlists.Update(ctx, playlist); err != nil {
		return storeError(err, "playlist")
	}

	envelope.JSON(ctx, w, http.StatusOK, playlist, "playlist updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return err
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		return storeError(err, "playlist")
	}

	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
	return nil
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	playlist, videoID, err := h.ownedEntry(r)
	if err != nil {
		return err
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return envelope.Conflict("video is already in the playlist")
		case errors.Is(err, repositories.ErrNotFound):
			return envelope.NotFound("video not found")
		default:
			return envelope.Internal("failed to add video to playlist", err)
		}
	}

	return h.respondWithPlaylist(w, r, playlist.ID, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	playlist, videoID, err := h.ownedEntry(r)
	if err != nil {
		return err
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return envelope.NotFound("video is not in the playlist")
		}
		return envelope.Internal("failed to remove video from playlist", err)
	}

	return h.respondWithPlaylist(w, r, playlist.ID, "video removed from playlist")
}

func (h PlaylistHandler) respondWithPlaylist(w http.ResponseWriter, r *http.Request, playlistID, message string) error {
	playlist, err := h.Playlists.FindByID(r.Context(), playlistID, viewerID(r))
	if err != nil {
		return storeError(err, "playlist")
	}
	envelope.JSON(r.Context(), w, http.StatusOK, playlist, message)
	return nil
}

func (h PlaylistHandler) ownedEntry(r *http.Request) (models.Playlist, string, error) {
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return models.Playlist{}, "", err
	}
	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return models.Playlist{}, "", err
	}
	return playlist, videoID, nil
}

func (h PlaylistHandler) ownedPlaylist(r *http.Request) (models.Playlist, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Playlist{}, err
	}

	playlistID, err := pathID(r, "playlistId")
	if err != nil {
		return models.Playlist{}, err
	}

	playlist, err := h.Playlists.FindByID(r.Context(), playlistID, user.ID)
	if err != nil {
		return models.Playlist{}, storeError(err, "playlist")
	}
	if playlist.OwnerID != user.ID {
		return models.Playlist{}, envelope.Forbidden("you do not own this playlist")
	}
	return playlist, nil
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
