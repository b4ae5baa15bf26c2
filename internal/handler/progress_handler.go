package handler

import (
	"context"
	"net/http"

	"guest-snapper/internal/domain/upload"

	"github.com/gin-gonic/gin"
)

type ProgressRelay interface {
	Publish(ctx context.Context, ev upload.ProgressEvent) error
}

type ProgressHandler struct {
	relay ProgressRelay
}

func NewProgressHandler(relay ProgressRelay) *ProgressHandler {
	return &ProgressHandler{relay: relay}
}

// Publish handles POST /v1/uploads/progress
func (h *ProgressHandler) Publish(c *gin.Context) {
	var ev upload.ProgressEvent
	if !bindJSON(c, &ev) {
		return
	}
	if err := h.relay.Publish(c.Request.Context(), ev); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusAccepted)
}
