package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/requests"
	"go.uber.org/zap"
)

type requestSubmitPayload struct {
	SongTitle      string `json:"song_title"`
	Artist         string `json:"artist"`
	RequesterName  string `json:"requester_name"`
	RequesterPhone string `json:"requester_phone"`
	Message        string `json:"message"`
	Session        string `json:"user_session"`
}

type requestPatchPayload struct {
	Status   *string `json:"status"`
	Priority *int    `json:"priority"`
	Artist   *string `json:"artist"`
	Message  *string `json:"message"`
}

func (h *httpHandler) handleRequestList(c *gin.Context) {
	listed, err := h.requests.List(c.Request.Context(), c.Query("status"), queryInt(c, "limit", 0))
	if err != nil {
		h.logger.Error("song request list failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch song requests")
		return
	}
	respondData(c, http.StatusOK, listed)
}

func (h *httpHandler) handleRequestGet(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, requests.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Song request not found")
		return
	}
	if err != nil {
		h.logger.Error("song request lookup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch song request")
		return
	}
	respondData(c, http.StatusOK, request)
}

func (h *httpHandler) handleRequestSubmit(c *gin.Context) {
	var payload requestSubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Song title and requester name are required")
		return
	}

	created, err := h.requests.Create(c.Request.Context(), requests.Draft{
		SongTitle:      payload.SongTitle,
		Artist:         payload.Artist,
		RequesterName:  payload.RequesterName,
		RequesterPhone: payload.RequesterPhone,
		Message:        payload.Message,
		Session:        h.viewerSession(c, payload.Session),
		Origin:         c.ClientIP(),
	})
	if err != nil {
		var validation *requests.ValidationError
		switch {
		case errors.As(err, &validation):
			respondError(c, http.StatusBadRequest, validation.Message)
		case errors.Is(err, requests.ErrRateLimited):
			respondError(c, http.StatusTooManyRequests, "Too many requests. Please wait before submitting another.")
		default:
			h.logger.Error("song request create failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Failed to create song request")
		}
		return
	}

	respondData(c, http.StatusCreated, created)
}

func (h *httpHandler) handleRequestUpdate(c *gin.Context) {
	var payload requestPatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "No valid fields to update")
		return
	}

	updated, err := h.requests.Update(c.Request.Context(), c.Param("id"), requests.Patch{
		Status:   payload.Status,
		Priority: payload.Priority,
		Artist:   payload.Artist,
		Message:  payload.Message,
	})
	if err != nil {
		var validation *requests.ValidationError
		switch {
		case errors.As(err, &validation):
			respondError(c, http.StatusBadRequest, validation.Message)
		case errors.Is(err, requests.ErrNotFound):
			respondError(c, http.StatusNotFound, "Song request not found")
		default:
			h.logger.Error("song request update failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Failed to update song request")
		}
		return
	}

	respondData(c, http.StatusOK, updated)
}

func (h *httpHandler) handleRequestDelete(c *gin.Context) {
	err := h.requests.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, requests.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Song request not found")
		return
	}
	if err != nil {
		h.logger.Error("song request delete failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to delete song request")
		return
	}
	respondData(c, http.StatusOK, nil)
}
