package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
)

const (
	// reactionWindow is the trailing window the widget aggregates over.
	reactionWindow = time.Hour
	// reactionViewerWindow bounds the distinct-origin viewer estimate.
	reactionViewerWindow = 5 * time.Minute
)

type reactionSubmitPayload struct {
	Type       string `json:"type"`
	StreamType string `json:"stream_type"`
}

// handleReactionSummary serves the aggregate widget: per-symbol counts over
// the last hour plus a rough active-viewer estimate.
func (h *httpHandler) handleReactionSummary(c *gin.Context) {
	channel := live.NormalizeChannel(c.Query("stream_type"))

	summary, err := h.reactionSummary(c.Request.Context(), channel)
	if err != nil {
		h.logger.Error("reaction summary failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch reactions")
		return
	}
	respondData(c, http.StatusOK, summary)
}

func (h *httpHandler) handleReactionSubmit(c *gin.Context) {
	var payload reactionSubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.Type) == "" {
		respondError(c, http.StatusBadRequest, "Missing reaction type")
		return
	}

	stored, err := h.streamReactions.Submit(c.Request.Context(), live.Draft{
		Channel: payload.StreamType,
		Body:    payload.Type,
		Session: c.GetString(sessionContextKey),
		Origin:  c.ClientIP(),
	})
	if err != nil {
		h.respondSubmissionError(c, err, "Failed to add reaction")
		return
	}

	summary, err := h.reactionSummary(c.Request.Context(), stored.Channel)
	if err != nil {
		h.logger.Error("reaction summary failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch reactions")
		return
	}
	respondData(c, http.StatusOK, summary)
}

func (h *httpHandler) reactionSummary(ctx context.Context, channel string) (map[string]any, error) {
	counts, err := h.streamReactions.Store().Aggregate(ctx, channel, reactionWindow)
	if err != nil {
		return nil, err
	}
	viewers, err := h.streamReactions.Store().DistinctOrigins(ctx, channel, reactionViewerWindow)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]any, len(live.StreamReactionSymbols)+3)
	var total int64
	for _, symbol := range live.StreamReactionSymbols {
		count := counts[symbol]
		summary[symbol] = count
		total += count
	}
	summary["total"] = total
	summary["active_viewers"] = viewers
	summary["last_updated"] = h.clock().UTC().Unix()
	return summary, nil
}
