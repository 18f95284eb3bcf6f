package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/envelope"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/videos"
)

// CommentHandler implements video comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	NowFunc  func() time.Time
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	query := r.URL.Query()
	page, err := videos.ParsePositive(query.Get("page"), videos.DefaultPage)
	if err != nil {
		return envelope.BadRequest(videos.ErrInvalidPage.Error(), "page")
	}
	limit, err := videos.ParsePositive(query.Get("limit"), videos.DefaultLimit)
	if err != nil {
		return envelope.BadRequest(videos.ErrInvalidLimit.Error(), "limit")
	}
	limit = min(limit, videos.MaxLimit)

	comments, err := h.Comments.List(ctx, videoID, viewerID(r), page, limit)
	if err != nil {
		return storeError(err, "video")
	}

	envelope.JSON(ctx, w, http.StatusOK, comments, "comments fetched successfully")
	return nil
}

// Create handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "content"); err != nil {
		return err
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   user.ID,
		Content:   values["content"],
		Owner:     user.Public(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		return storeError(err, "video")
	}

	envelope.JSON(ctx, w, http.StatusCreated, comment, "comment added successfully")
	return nil
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	comment, err := h.ownedComment(r)
	if err != nil {
		return err
	}

	values, err := fields(r)
	if err != nil {
		return err
	}
	if err := required(values, "content"); err != nil {
		return err
	}

	comment.Content = values["content"]
	comment.UpdatedAt = h.now()
	if err := h.Comments.Update(ctx, comment); err != nil {
		return storeError(err, "comment")
	}

	envelope.JSON(ctx, w, http.StatusOK, comment, "comment updated successfully")
	return nil
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	comment, err := h.ownedComment(r)
	if err != nil {
		return err
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		return storeError(err, "comment")
	}

	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
	return nil
}

func (h CommentHandler) ownedComment(r *http.Request) (models.Comment, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Comment{}, err
	}

	commentID, err := pathID(r, "commentId")
	if err != nil {
		return models.Comment{}, err
	}

	comment, err := h.Comments.FindByID(r.Context(), commentID)
	if err != nil {
		return models.Comment{}, storeError(err, "comment")
	}
	if comment.OwnerID != user.ID {
		return models.Comment{}, envelope.Forbidden("you do not own this comment")
	}
	return comment, nil
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
