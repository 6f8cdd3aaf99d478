package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/requestdata"
)

type SSEHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // keyed by user id
}

func NewSSEHandler(log *logger.Logger, hub *realtime.SSEHub) *SSEHandler {
	return &SSEHandler{
		log:     log.With("handler", "SSEHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// Stream opens the long-lived SSE connection. Every participant is
// auto-subscribed to the shared phase and notification channels plus their
// own user channel, so phase changes, broadcasts, and progress updates arrive
// without polling.
func (h *SSEHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	userID := rd.UserID
	h.log.Info("SSE stream open", "userID", userID)

	h.mu.Lock()
	// One stream per user; a reconnect replaces the old connection.
	if existing, ok := h.clients[userID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, userID)
	}
	client := h.hub.NewSSEClient(userID)
	h.clients[userID] = client
	h.mu.Unlock()

	h.hub.AddChannel(client, realtime.ChannelEvent)
	h.hub.AddChannel(client, realtime.ChannelNotifications)
	h.hub.AddChannel(client, userID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[userID] == client {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

func (h *SSEHandler) Subscribe(c *gin.Context) {
	h.changeSubscription(c, h.hub.AddChannel, "subscribed")
}

func (h *SSEHandler) Unsubscribe(c *gin.Context) {
	h.changeSubscription(c, h.hub.RemoveChannel, "unsubscribed")
}

func (h *SSEHandler) changeSubscription(c *gin.Context, apply func(*realtime.SSEClient, string), verb string) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return
	}

	h.mu.RLock()
	client, exists := h.clients[rd.UserID]
	h.mu.RUnlock()
	if !exists {
		c.JSON(http.StatusConflict, gin.H{"error": "no active SSE connection"})
		return
	}

	apply(client, req.Channel)
	c.JSON(http.StatusOK, gin.H{"message": verb, "channel": req.Channel})
}
