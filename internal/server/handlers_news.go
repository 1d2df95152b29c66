package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oromamedia/oroma-tv/backend/internal/news"
	"go.uber.org/zap"
)

type newsCreatePayload struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	ImageURL  string `json:"image_url"`
	Published bool   `json:"published"`
	Featured  bool   `json:"featured"`
}

type newsPatchPayload struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Summary   *string `json:"summary"`
	Author    *string `json:"author"`
	Category  *string `json:"category"`
	ImageURL  *string `json:"image_url"`
	Published *bool   `json:"published"`
	Featured  *bool   `json:"featured"`
}

// handleNewsList serves the public newsroom: published posts only.
func (h *httpHandler) handleNewsList(c *gin.Context) {
	posts, err := h.news.List(c.Request.Context(), news.ListFilter{
		PublishedOnly: true,
		Category:      c.Query("category"),
		FeaturedOnly:  c.Query("featured") == "1",
		Limit:         queryInt(c, "limit", 0),
		Offset:        queryInt(c, "offset", 0),
	})
	if err != nil {
		h.logger.Error("news list failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch news")
		return
	}
	respondData(c, http.StatusOK, posts)
}

func (h *httpHandler) handleNewsGet(c *gin.Context) {
	post, err := h.news.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, news.ErrNotFound) {
		respondError(c, http.StatusNotFound, "News article not found")
		return
	}
	if err != nil {
		h.logger.Error("news lookup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch news article")
		return
	}
	respondData(c, http.StatusOK, post)
}

func (h *httpHandler) handleNewsView(c *gin.Context) {
	session := c.GetString(sessionContextKey)
	err := h.news.RecordView(c.Request.Context(), c.Param("id"), h.callerContext(c, session))
	if errors.Is(err, news.ErrNotFound) {
		respondError(c, http.StatusNotFound, "News article not found")
		return
	}
	if err != nil {
		h.logger.Error("news view failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to increment view count")
		return
	}
	respondData(c, http.StatusOK, nil)
}

func (h *httpHandler) handleNewsCreate(c *gin.Context) {
	var payload newsCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Title and content are required")
		return
	}

	created, err := h.news.Create(c.Request.Context(), news.Draft{
		Title:     payload.Title,
		Content:   payload.Content,
		Summary:   payload.Summary,
		Author:    payload.Author,
		Category:  payload.Category,
		ImageURL:  payload.ImageURL,
		Published: payload.Published,
		Featured:  payload.Featured,
	})
	if err != nil {
		var validation *news.ValidationError
		if errors.As(err, &validation) {
			respondError(c, http.StatusBadRequest, validation.Message)
			return
		}
		h.logger.Error("news create failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to create news article")
		return
	}

	respondData(c, http.StatusCreated, created)
}

func (h *httpHandler) handleNewsUpdate(c *gin.Context) {
	var payload newsPatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "No valid fields to update")
		return
	}

	updated, err := h.news.Update(c.Request.Context(), c.Param("id"), news.Patch{
		Title:     payload.Title,
		Content:   payload.Content,
		Summary:   payload.Summary,
		Author:    payload.Author,
		Category:  payload.Category,
		ImageURL:  payload.ImageURL,
		Published: payload.Published,
		Featured:  payload.Featured,
	})
	if err != nil {
		var validation *news.ValidationError
		switch {
		case errors.As(err, &validation):
			respondError(c, http.StatusBadRequest, validation.Message)
		case errors.Is(err, news.ErrNotFound):
			respondError(c, http.StatusNotFound, "News article not found")
		default:
			h.logger.Error("news update failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Failed to update news article")
		}
		return
	}

	respondData(c, http.StatusOK, updated)
}

func (h *httpHandler) handleNewsDelete(c *gin.Context) {
	err := h.news.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, news.ErrNotFound) {
		respondError(c, http.StatusNotFound, "News article not found")
		return
	}
	if err != nil {
		h.logger.Error("news delete failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to delete news article")
		return
	}
	respondData(c, http.StatusOK, nil)
}
