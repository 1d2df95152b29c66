package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/auth"
	"go.uber.org/zap"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

func (h *httpHandler) handleAdminLogin(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil ||
		strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		respondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	username := strings.TrimSpace(payload.Username)
	if err := h.admin.Verify(username, payload.Password); err != nil {
		if h.analytics != nil {
			h.analytics.Record(c.Request.Context(), "login_failed", map[string]any{
				"username": username,
			}, h.callerContext(c, c.GetString(sessionContextKey)))
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("credential verification failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	token, expiresIn, err := h.tokens.IssueAdminToken(username)
	if err != nil {
		h.logger.Error("failed to issue admin token", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Login failed")
		return
	}

	if h.analytics != nil {
		h.analytics.Record(c.Request.Context(), "login_success", map[string]any{
			"username": username,
		}, h.callerContext(c, c.GetString(sessionContextKey)))
	}

	respondData(c, http.StatusOK, loginResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Username:    username,
	})
}
