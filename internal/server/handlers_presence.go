package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
)

type presencePostPayload struct {
	StreamType string `json:"stream_type"`
	Username   string `json:"username"`
	Session    string `json:"user_session"`
}

func (h *httpHandler) handlePresenceList(c *gin.Context) {
	records, err := h.presence.List(c.Request.Context())
	if err != nil {
		h.logger.Error("presence list failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch active users")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"users": toPresencePayloads(records),
		"count": len(records),
	})
}

func (h *httpHandler) handlePresenceCount(c *gin.Context) {
	channel := live.NormalizeChannel(c.Param("channel"))
	count, err := h.presence.Count(c.Request.Context(), channel)
	if err != nil {
		h.logger.Error("presence count failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to get user count")
		return
	}
	respondData(c, http.StatusOK, gin.H{"count": count})
}

func (h *httpHandler) handlePresenceJoin(c *gin.Context) {
	var payload presencePostPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := h.viewerSession(c, payload.Session)
	channel := live.NormalizeChannel(payload.StreamType)
	record, err := h.presence.Join(c.Request.Context(), session, channel, payload.Username)
	if err != nil {
		h.logger.Error("presence join failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to join")
		return
	}

	if h.analytics != nil {
		h.analytics.Record(c.Request.Context(), "user_join", map[string]any{
			"stream_type": channel,
			"username":    payload.Username,
		}, h.callerContext(c, session))
	}

	respondData(c, http.StatusCreated, gin.H{"id": record.ID, "session": record.Session})
}

// handlePresenceActivity is the bare POST the widgets use as a combined
// join-or-renew; it shares heartbeat's upsert semantics.
func (h *httpHandler) handlePresenceActivity(c *gin.Context) {
	h.handlePresenceHeartbeat(c)
}

func (h *httpHandler) handlePresenceHeartbeat(c *gin.Context) {
	// An absent or malformed body falls back to the cookie session; the
	// widgets ping with and without a payload.
	var payload presencePostPayload
	_ = c.ShouldBindJSON(&payload)

	session := h.viewerSession(c, payload.Session)
	channel := live.NormalizeChannel(payload.StreamType)
	if err := h.presence.Heartbeat(c.Request.Context(), session, channel); err != nil {
		h.logger.Error("presence heartbeat failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to update activity")
		return
	}
	respondData(c, http.StatusOK, gin.H{"session": session})
}

func (h *httpHandler) handlePresenceLeave(c *gin.Context) {
	var payload presencePostPayload
	_ = c.ShouldBindJSON(&payload)

	session := h.viewerSession(c, payload.Session)
	if err := h.presence.Leave(c.Request.Context(), session); err != nil {
		h.logger.Error("presence leave failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to leave")
		return
	}
	respondData(c, http.StatusOK, nil)
}

func (h *httpHandler) handlePresenceRemove(c *gin.Context) {
	err := h.presence.Remove(c.Request.Context(), c.Param("id"))
	if errors.Is(err, live.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Active user not found")
		return
	}
	if err != nil {
		h.logger.Error("presence remove failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to remove user")
		return
	}
	respondData(c, http.StatusOK, nil)
}

func (h *httpHandler) handlePresenceCleanup(c *gin.Context) {
	removed, err := h.presence.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("presence cleanup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to clean up users")
		return
	}
	respondData(c, http.StatusOK, gin.H{"removed": removed})
}
