package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/streamstatus"
	"go.uber.org/zap"
)

type statusRecordPayload struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Quality     string `json:"quality"`
	Latency     string `json:"latency"`
	Bitrate     string `json:"bitrate"`
	Viewers     int64  `json:"viewers"`
	CurrentSong string `json:"current_song"`
}

func (h *httpHandler) handleStreamStatus(c *gin.Context) {
	kind := strings.ToLower(strings.TrimSpace(c.Query("type")))
	if kind == "" || kind == "all" {
		statuses, err := h.streamStatus.All(c.Request.Context())
		if err != nil {
			h.logger.Error("stream status failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Failed to fetch stream status")
			return
		}
		respondData(c, http.StatusOK, statuses)
		return
	}

	status, err := h.streamStatus.Status(c.Request.Context(), kind)
	if errors.Is(err, streamstatus.ErrUnknownChannel) {
		respondError(c, http.StatusNotFound, "Stream type not found")
		return
	}
	if err != nil {
		h.logger.Error("stream status failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch stream status")
		return
	}
	respondData(c, http.StatusOK, status)
}

func (h *httpHandler) handleStreamStatusRecord(c *gin.Context) {
	var payload statusRecordPayload
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.Type) == "" {
		respondError(c, http.StatusBadRequest, "Missing stream type")
		return
	}

	status, err := h.streamStatus.Record(c.Request.Context(), streamstatus.Sample{
		Channel:     strings.ToLower(strings.TrimSpace(payload.Type)),
		Status:      payload.Status,
		Quality:     payload.Quality,
		Latency:     payload.Latency,
		Bitrate:     payload.Bitrate,
		Viewers:     payload.Viewers,
		CurrentSong: payload.CurrentSong,
	})
	if errors.Is(err, streamstatus.ErrUnknownChannel) {
		respondError(c, http.StatusBadRequest, "Failed to update stream status")
		return
	}
	if err != nil {
		h.logger.Error("stream status record failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to update stream status")
		return
	}
	respondData(c, http.StatusOK, status)
}
