package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bitfantasy/onboard/internal/middleware"
	"github.com/bitfantasy/onboard/internal/onboarding/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SSEHandler handles SSE connections
type SSEHandler struct {
	hub       *sse.Hub
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(hub *sse.Hub, logger *zap.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, logger: logger, heartbeat: 30 * time.Second}
}

// Stream handles the SSE endpoint
// GET /api/v1/events?token=xxx
func (h *SSEHandler) Stream(c *gin.Context) {
	subject := middleware.Subject(c)
	clientID := fmt.Sprintf("%s_%d", subject, time.Now().UnixNano())

	client := &sse.Client{
		ID:      clientID,
		Subject: subject,
		Events:  make(chan sse.Event, 64),
	}

	h.hub.Register(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// 长连接不受 server.write_timeout 限制
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("sse write deadline not cleared", zap.String("client_id", clientID), zap.Error(err))
	}

	c.Writer.WriteString("event: connected\ndata: {\"clientId\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			h.hub.Unregister(clientID)
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
