package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
)

// VideoHandler implements video publishing and listing endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Media   MediaRelay
	Uploads UploadSettings
	NowFunc func() time.Time
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	opts, err := videos.ParseListOptions(r.URL.Query())
	if err != nil {
		return envelope.BadRequest(err.Error())
	}

	page, err := h.Videos.List(ctx, opts)
	if err != nil {
		return envelope.Internal("failed to list videos", err)
	}

	envelope.JSON(ctx, w, http.StatusOK, page, "videos fetched successfully")
	return nil
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := h.Uploads.parseUpload(w, r); err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "title", "description"); err != nil {
		return err
	}

	files := h.Uploads.newTempFiles()
	defer files.cleanup(ctx)

	videoPath, err := files.save(r, "videoFile", true)
	if err != nil {
		return err
	}
	thumbnailPath, err := files.save(r, "thumbnail", true)
	if err != nil {
		return err
	}

	var videoAsset, thumbnailAsset storage.Asset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		asset, err := h.Media.Upload(gctx, videoPath, storage.KindVideo)
		videoAsset = asset
		return err
	})
	g.Go(func() error {
		asset, err := h.Media.Upload(gctx, thumbnailPath, storage.KindThumbnail)
		thumbnailAsset = asset
		return err
	})
	if err := g.Wait(); err != nil {
		removeAsset(ctx, h.Media, videoAsset.URL)
		removeAsset(ctx, h.Media, thumbnailAsset.URL)
		return envelope.Internal("failed to upload video", err)
	}

	now := h.now()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbnailAsset.URL,
		Title:       values["title"],
		Description: values["description"],
		Duration:    videoAsset.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		removeAsset(ctx, h.Media, videoAsset.URL)
		removeAsset(ctx, h.Media, thumbnailAsset.URL)
		return envelope.Internal("failed to save video", err)
	}

	logger.Info("video published", "videoId", video.ID, "ownerId", user.ID, "duration", video.Duration)
	envelope.JSON(ctx, w, http.StatusCreated, video, "video published successfully")
	return nil
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	detail, err := h.Videos.Detail(ctx, videoID, viewerID(r))
	if err != nil {
		return storeError(err, "video")
	}

	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		logging.FromContext(ctx).Warn("increment video views", "videoId", videoID, "error", err)
	} else {
		detail.Views++
	}

	envelope.JSON(ctx, w, http.StatusOK, detail, "video fetched successfully")
	return nil
}

// Update handles PATCH /api/v1/videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	multipart := isMultipart(r)
	if multipart {
		if err := h.Uploads.parseUpload(w, r); err != nil {
			return err
		}
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "title", "description"); err != nil {
		return err
	}

	previousThumbnail := ""
	if multipart {
		files := h.Uploads.newTempFiles()
		defer files.cleanup(ctx)

		path, err := files.save(r, "thumbnail", false)
		if err != nil {
			return err
		}
		if path != "" {
			asset, err := h.Media.Upload(ctx, path, storage.KindThumbnail)
			if err != nil {
				return envelope.Internal("failed to upload thumbnail", err)
			}
			previousThumbnail = video.Thumbnail
			video.Thumbnail = asset.URL
		}
	}

	video.Title = values["title"]
	video.Description = values["description"]
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		if previousThumbnail != "" {
			removeAsset(ctx, h.Media, video.Thumbnail)
		}
		return storeError(err, "video")
	}

	removeAsset(ctx, h.Media, previousThumbnail)

	envelope.JSON(ctx, w, http.StatusOK, video, "video updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		return storeError(err, "video")
	}

	removeAsset(ctx, h.Media, video.VideoFile)
	removeAsset(ctx, h.Media, video.Thumbnail)

	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
	return nil
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = h.now()
	if err := h.Videos.Update(ctx, video); err != nil {
		return storeError(err, "video")
	}

	envelope.JSON(ctx, w, http.StatusOK, map[string]bool{"isPublished": video.IsPublished}, "publish status toggled")
	return nil
}

// ownedVideo loads the video named in the path and checks the caller owns it.
func (h VideoHandler) ownedVideo(r *http.Request) (models.Video, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Video{}, err
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		return models.Video{}, err
	}

	video, err := h.Videos.FindByID(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Video{}, envelope.NotFound("video not found")
		}
		return models.Video{}, envelope.Internal("failed to load video", err)
	}

	if video.OwnerID != user.ID {
		return models.Video{}, envelope.Forbidden("you do not own this video")
	}
	return video, nil
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
