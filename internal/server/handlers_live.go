package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
)

type commentSubmitPayload struct {
	Username   string `json:"username"`
	Comment    string `json:"comment"`
	StreamType string `json:"stream_type"`
	Session    string `json:"user_session"`
}

type liveReactionSubmitPayload struct {
	ReactionType string `json:"reaction_type"`
	StreamType   string `json:"stream_type"`
	Session      string `json:"user_session"`
}

func (h *httpHandler) handleCommentList(c *gin.Context) {
	h.listComments(c, "")
}

func (h *httpHandler) handleCommentListByChannel(c *gin.Context) {
	h.listComments(c, live.NormalizeChannel(c.Param("channel")))
}

func (h *httpHandler) listComments(c *gin.Context, channel string) {
	limit := queryInt(c, "limit", live.MaxListLimit)
	events, err := h.comments.Store().Recent(c.Request.Context(), channel, limit)
	if err != nil {
		h.logger.Error("comment query failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"comments":     toCommentPayloads(events),
		"last_updated": h.clock().UTC().Unix(),
	})
}

func (h *httpHandler) handleCommentSubmit(c *gin.Context) {
	var payload commentSubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Comment and username are required")
		return
	}

	stored, err := h.comments.Submit(c.Request.Context(), live.Draft{
		Channel:  payload.StreamType,
		Username: payload.Username,
		Body:     payload.Comment,
		Session:  h.viewerSession(c, payload.Session),
		Origin:   c.ClientIP(),
	})
	if err != nil {
		h.respondSubmissionError(c, err, "Failed to create comment")
		return
	}

	respondData(c, http.StatusCreated, toCommentPayloads([]live.Event{stored})[0])
}

func (h *httpHandler) handleCommentDelete(c *gin.Context) {
	err := h.comments.Store().Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, live.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Comment not found")
		return
	}
	if err != nil {
		h.logger.Error("comment delete failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to delete comment")
		return
	}
	respondData(c, http.StatusOK, nil)
}

func (h *httpHandler) handleCommentCleanup(c *gin.Context) {
	removed, err := h.comments.Store().Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("comment cleanup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to clean up comments")
		return
	}
	respondData(c, http.StatusOK, gin.H{"removed": removed})
}

func (h *httpHandler) handleLiveReactionList(c *gin.Context) {
	h.listLiveReactions(c, "")
}

func (h *httpHandler) handleLiveReactionListByChannel(c *gin.Context) {
	h.listLiveReactions(c, live.NormalizeChannel(c.Param("channel")))
}

func (h *httpHandler) listLiveReactions(c *gin.Context, channel string) {
	limit := queryInt(c, "limit", live.MaxListLimit)
	events, err := h.liveReactions.Store().Recent(c.Request.Context(), channel, limit)
	if err != nil {
		h.logger.Error("live reaction query failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch reactions")
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"reactions":    toReactionPayloads(events),
		"last_updated": h.clock().UTC().Unix(),
	})
}

func (h *httpHandler) handleLiveReactionSubmit(c *gin.Context) {
	var payload liveReactionSubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Reaction type is required")
		return
	}

	stored, err := h.liveReactions.Submit(c.Request.Context(), live.Draft{
		Channel: payload.StreamType,
		Body:    payload.ReactionType,
		Session: h.viewerSession(c, payload.Session),
		Origin:  c.ClientIP(),
	})
	if err != nil {
		h.respondSubmissionError(c, err, "Failed to create reaction")
		return
	}

	respondData(c, http.StatusCreated, toReactionPayloads([]live.Event{stored})[0])
}

func (h *httpHandler) handleLiveReactionDelete(c *gin.Context) {
	err := h.liveReactions.Store().Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, live.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Reaction not found")
		return
	}
	if err != nil {
		h.logger.Error("live reaction delete failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to delete reaction")
		return
	}
	respondData(c, http.StatusOK, nil)
}

func (h *httpHandler) handleLiveReactionCleanup(c *gin.Context) {
	removed, err := h.liveReactions.Store().Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("live reaction cleanup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to clean up reactions")
		return
	}
	respondData(c, http.StatusOK, gin.H{"removed": removed})
}
