// Package server exposes the polling JSON API consumed by the website
// widgets and the admin back-office.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oromamedia/oroma-tv/backend/internal/analytics"
	"github.com/oromamedia/oroma-tv/backend/internal/auth"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"github.com/oromamedia/oroma-tv/backend/internal/news"
	"github.com/oromamedia/oroma-tv/backend/internal/requests"
	"github.com/oromamedia/oroma-tv/backend/internal/streamstatus"
	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	adminContextKey   = "oroma_admin_user"
	sessionContextKey = "oroma_viewer_session"

	// sessionCookieName carries the anonymous viewer identity used for
	// presence and per-session rate limiting.
	sessionCookieName = "oroma_session"
	sessionCookieAge  = 365 * 24 * 60 * 60
)

var (
	errMissingChatGate        = errors.New("chat gate dependency required")
	errMissingCommentGate     = errors.New("comment gate dependency required")
	errMissingReactionGates   = errors.New("reaction gate dependencies required")
	errMissingPresenceTracker = errors.New("presence tracker dependency required")
	errMissingRequestService  = errors.New("song request service dependency required")
	errMissingNewsService     = errors.New("news service dependency required")
	errMissingStatusService   = errors.New("stream status service dependency required")
	errMissingTokenIssuer     = errors.New("token issuer dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Chat            *live.Gate
	Comments        *live.Gate
	LiveReactions   *live.Gate
	StreamReactions *live.Gate
	Presence        *live.Tracker
	Requests        *requests.Service
	News            *news.Service
	StreamStatus    *streamstatus.Service
	Tokens          *auth.TokenIssuer
	Admin           auth.AdminCredentials
	Analytics       *analytics.Recorder
	Clock           func() time.Time
	Logger          *zap.Logger
}

// NewHTTPHandler builds the router with all public and admin routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Chat == nil {
		return nil, errMissingChatGate
	}
	if deps.Comments == nil {
		return nil, errMissingCommentGate
	}
	if deps.LiveReactions == nil || deps.StreamReactions == nil {
		return nil, errMissingReactionGates
	}
	if deps.Presence == nil {
		return nil, errMissingPresenceTracker
	}
	if deps.Requests == nil {
		return nil, errMissingRequestService
	}
	if deps.News == nil {
		return nil, errMissingNewsService
	}
	if deps.StreamStatus == nil {
		return nil, errMissingStatusService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenIssuer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.Use(requestMetrics)

	handler := &httpHandler{
		chat:            deps.Chat,
		comments:        deps.Comments,
		liveReactions:   deps.LiveReactions,
		streamReactions: deps.StreamReactions,
		presence:        deps.Presence,
		requests:        deps.Requests,
		news:            deps.News,
		streamStatus:    deps.StreamStatus,
		tokens:          deps.Tokens,
		admin:           deps.Admin,
		analytics:       deps.Analytics,
		clock:           clock,
		logger:          logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(handler.ensureViewerSession)

	api.GET("/chat", handler.handleChatList)
	api.POST("/chat", handler.handleChatSubmit)

	api.GET("/reactions", handler.handleReactionSummary)
	api.POST("/reactions", handler.handleReactionSubmit)

	api.GET("/live-comments", handler.handleCommentList)
	api.GET("/live-comments/:channel", handler.handleCommentListByChannel)
	api.POST("/live-comments", handler.handleCommentSubmit)

	api.GET("/live-reactions", handler.handleLiveReactionList)
	api.GET("/live-reactions/:channel", handler.handleLiveReactionListByChannel)
	api.POST("/live-reactions", handler.handleLiveReactionSubmit)

	api.GET("/active-users", handler.handlePresenceList)
	api.GET("/active-users/count/:channel", handler.handlePresenceCount)
	api.POST("/active-users", handler.handlePresenceActivity)
	api.POST("/active-users/join", handler.handlePresenceJoin)
	api.POST("/active-users/heartbeat", handler.handlePresenceHeartbeat)
	api.POST("/active-users/leave", handler.handlePresenceLeave)

	api.GET("/stream-status", handler.handleStreamStatus)

	api.GET("/song-requests", handler.handleRequestList)
	api.GET("/song-requests/:id", handler.handleRequestGet)
	api.POST("/song-requests", handler.handleRequestSubmit)

	api.GET("/news", handler.handleNewsList)
	api.GET("/news/:id", handler.handleNewsGet)
	api.POST("/news/:id/view", handler.handleNewsView)

	api.POST("/auth/login", handler.handleAdminLogin)

	admin := api.Group("/")
	admin.Use(handler.authorizeAdmin)
	admin.DELETE("/live-comments/cleanup", handler.handleCommentCleanup)
	admin.DELETE("/live-comments/:id", handler.handleCommentDelete)
	admin.DELETE("/live-reactions/cleanup", handler.handleLiveReactionCleanup)
	admin.DELETE("/live-reactions/:id", handler.handleLiveReactionDelete)
	admin.DELETE("/active-users/cleanup", handler.handlePresenceCleanup)
	admin.DELETE("/active-users/:id", handler.handlePresenceRemove)
	admin.POST("/stream-status", handler.handleStreamStatusRecord)
	admin.PATCH("/song-requests/:id", handler.handleRequestUpdate)
	admin.DELETE("/song-requests/:id", handler.handleRequestDelete)
	admin.POST("/news", handler.handleNewsCreate)
	admin.PATCH("/news/:id", handler.handleNewsUpdate)
	admin.DELETE("/news/:id", handler.handleNewsDelete)

	return router, nil
}

type httpHandler struct {
	chat            *live.Gate
	comments        *live.Gate
	liveReactions   *live.Gate
	streamReactions *live.Gate
	presence        *live.Tracker
	requests        *requests.Service
	news            *news.Service
	streamStatus    *streamstatus.Service
	tokens          *auth.TokenIssuer
	admin           auth.AdminCredentials
	analytics       *analytics.Recorder
	clock           func() time.Time
	logger          *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestMetrics(c *gin.Context) {
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	telemetry.CountHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
}

// ensureViewerSession guarantees every API caller carries a stable anonymous
// session identity, minting one on first contact.
func (h *httpHandler) ensureViewerSession(c *gin.Context) {
	session, err := c.Cookie(sessionCookieName)
	if err != nil || session == "" {
		session = uuid.NewString()
		c.SetCookie(sessionCookieName, session, sessionCookieAge, "/", "", false, true)
	}
	c.Set(sessionContextKey, session)
	c.Next()
}

// viewerSession prefers an explicit user_session from the request body over
// the cookie identity, matching the widgets that persist their own session
// in local storage.
func (h *httpHandler) viewerSession(c *gin.Context, explicit string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	return c.GetString(sessionContextKey)
}

func (h *httpHandler) authorizeAdmin(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		abortError(c, http.StatusUnauthorized, errInvalidAuthorization.Error())
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		abortError(c, http.StatusUnauthorized, errInvalidAuthorization.Error())
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("admin token validation failed", zap.Error(err))
		abortError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	c.Set(adminContextKey, subject)
	c.Next()
}

func (h *httpHandler) callerContext(c *gin.Context, session string) analytics.Context {
	return analytics.Context{
		Session:   session,
		Origin:    c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryInt64(c *gin.Context, name string, fallback int64) int64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
