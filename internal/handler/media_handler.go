package handler

import (
	"context"
	"net/http"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/repository"
	"guest-snapper/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// MediaStore is satisfied by *services.MediaService.
type MediaStore interface {
	RecordMetadata(ctx context.Context, req upload.MetadataRequest) (upload.Record, error)
	ListByEvent(ctx context.Context, eventID string, page, limit int) ([]upload.Record, int64, error)
}

type MediaHandler struct {
	media MediaStore
}

func NewMediaHandler(media MediaStore) *MediaHandler {
	return &MediaHandler{media: media}
}

// Record handles POST /v1/media
func (h *MediaHandler) Record(c *gin.Context) {
	var req upload.MetadataRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.media.RecordMetadata(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(rec))
}

// ListByEvent handles GET /v1/events/:id/media
func (h *MediaHandler) ListByEvent(c *gin.Context) {
	var q httpdto.ListMediaRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid paging parameters", httpdto.CodeInvalidRequest))
		return
	}
	items, total, err := h.media.ListByEvent(c.Request.Context(), c.Param("id"), q.Page, q.Limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if items == nil {
		items = []upload.Record{}
	}
	limit, _ := repository.PageOffset(q.Page, q.Limit)
	page := q.Page
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMediaResponse{
		Media: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}
