package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
)

type chatSubmitPayload struct {
	// The widgets have historically sent either field name.
	Name       string `json:"name"`
	Username   string `json:"username"`
	Message    string `json:"message"`
	StreamType string `json:"stream_type"`
}

// handleChatList serves the polling read: events strictly newer than the
// since watermark, oldest first, capped by the clamped limit.
func (h *httpHandler) handleChatList(c *gin.Context) {
	limit := queryInt(c, "limit", live.DefaultListLimit)
	since := queryInt64(c, "since", 0)

	events, err := h.chat.Store().Since(c.Request.Context(), "", since, limit)
	if err != nil {
		h.logger.Error("chat query failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"messages":     toMessagePayloads(events),
		"last_updated": h.clock().UTC().Unix(),
	})
}

func (h *httpHandler) handleChatSubmit(c *gin.Context) {
	var payload chatSubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Username and message are required")
		return
	}

	username := strings.TrimSpace(payload.Name)
	if username == "" {
		username = strings.TrimSpace(payload.Username)
	}

	stored, err := h.chat.Submit(c.Request.Context(), live.Draft{
		Channel:  payload.StreamType,
		Username: username,
		Body:     payload.Message,
		Session:  c.GetString(sessionContextKey),
		Origin:   c.ClientIP(),
	})
	if err != nil {
		h.respondSubmissionError(c, err, "Failed to save message")
		return
	}

	respondData(c, http.StatusOK, toMessagePayload(stored))
}
