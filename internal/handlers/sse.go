package handlers

import (
	"github.com/gin-gonic/gin"

	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/sse"
)

type SSEHandler struct {
	hub *sse.Hub
	log *logger.Logger
}

func NewSSEHandler(hub *sse.Hub, baseLog *logger.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, log: baseLog.With("handler", "SSEHandler")}
}

// GET /sse/stream
// Subscribes the connection to generation progress events for its lifetime.
func (h *SSEHandler) Stream(c *gin.Context) {
	client := h.hub.NewClient()
	h.hub.AddChannel(client, sse.ChannelGeneration)
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
