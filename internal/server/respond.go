package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
)

// Every JSON response uses the same envelope: {"success":true,"data":...} on
// the happy path and {"success":false,"error":"..."} otherwise. Internal
// error detail stays in the server log.

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// respondSubmissionError maps admission-gate outcomes onto HTTP statuses:
// rate limiting to 429, every other rejection to 400, and persistence
// failures to a generic 500.
func (h *httpHandler) respondSubmissionError(c *gin.Context, err error, fallback string) {
	if rejection, ok := live.AsRejection(err); ok {
		status := http.StatusBadRequest
		if rejection.Reason == live.ReasonRateLimited {
			status = http.StatusTooManyRequests
		}
		respondError(c, status, rejection.Message)
		return
	}
	h.logger.Error("submission failed", zap.Error(err))
	respondError(c, http.StatusInternalServerError, fallback)
}

type messagePayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	Message       string `json:"message"`
	StreamType    string `json:"stream_type"`
	Timestamp     int64  `json:"timestamp"`
	FormattedTime string `json:"formatted_time"`
}

func toMessagePayload(event live.Event) messagePayload {
	return messagePayload{
		ID:            event.ID,
		Name:          event.Username,
		Username:      event.Username,
		Message:       event.Body,
		StreamType:    event.Channel,
		Timestamp:     event.CreatedAtSeconds,
		FormattedTime: time.Unix(event.CreatedAtSeconds, 0).UTC().Format("15:04"),
	}
}

func toMessagePayloads(events []live.Event) []messagePayload {
	payloads := make([]messagePayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, toMessagePayload(event))
	}
	return payloads
}

type commentPayload struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Comment    string `json:"comment"`
	StreamType string `json:"stream_type"`
	Timestamp  int64  `json:"timestamp"`
}

func toCommentPayloads(events []live.Event) []commentPayload {
	payloads := make([]commentPayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, commentPayload{
			ID:         event.ID,
			Username:   event.Username,
			Comment:    event.Body,
			StreamType: event.Channel,
			Timestamp:  event.CreatedAtSeconds,
		})
	}
	return payloads
}

type reactionPayload struct {
	ID           string `json:"id"`
	ReactionType string `json:"reaction_type"`
	StreamType   string `json:"stream_type"`
	Timestamp    int64  `json:"timestamp"`
}

func toReactionPayloads(events []live.Event) []reactionPayload {
	payloads := make([]reactionPayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, reactionPayload{
			ID:           event.ID,
			ReactionType: event.Body,
			StreamType:   event.Channel,
			Timestamp:    event.CreatedAtSeconds,
		})
	}
	return payloads
}

type presencePayload struct {
	ID         string `json:"id"`
	Session    string `json:"user_session"`
	StreamType string `json:"stream_type"`
	Username   string `json:"username,omitempty"`
	LastSeen   int64  `json:"last_seen"`
}

func toPresencePayloads(records []live.Presence) []presencePayload {
	payloads := make([]presencePayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, presencePayload{
			ID:         record.ID,
			Session:    record.Session,
			StreamType: record.Channel,
			Username:   record.Username,
			LastSeen:   record.LastSeenSeconds,
		})
	}
	return payloads
}
