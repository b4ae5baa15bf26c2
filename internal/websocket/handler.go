package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"guest-snapper/internal/redis"
	"guest-snapper/internal/transport/httpdto"
	"guest-snapper/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub      *Hub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, l *logger.Logger) *Handler {
	return &Handler{
		hub: hub,
		log: logger.OrGlobal(l),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect handles GET /v1/ws/uploads?event_id=... and streams that event's upload progress.
func (h *Handler) Connect(c *gin.Context) {
	eventID := strings.TrimSpace(c.Query("event_id"))
	if eventID == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("event_id is required", httpdto.CodeInvalidRequest))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Ctx(c.Request.Context()).Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, eventID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client, redis.UploadChannel(eventID))
	go client.WriteLoop(ctx)

	h.log.Ctx(c.Request.Context()).Logger.Debug("upload viewer connected",
		zap.String("client_id", client.ID),
		zap.String("event_id", eventID),
	)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	h.hub.Unregister(client)
}
