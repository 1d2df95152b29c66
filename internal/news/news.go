// Package news is the small CMS behind the newsroom page. Readers see only
// published posts; authorship is an admin concern.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oromamedia/oroma-tv/backend/internal/analytics"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultCategory is assigned when a draft omits one.
	DefaultCategory = "local"
	// summaryLength bounds the auto-generated summary.
	summaryLength = 200
)

const (
	opCreate = "news.create"
	opList   = "news.list"
	opGet    = "news.get"
	opUpdate = "news.update"
	opDelete = "news.delete"
	opView   = "news.view"
)

var (
	// ErrNotFound indicates an unknown post id.
	ErrNotFound = errors.New("news: not found")

	errMissingDatabase   = errors.New("news: database handle is required")
	errMissingIDProvider = errors.New("news: id provider is required")

	noOpLogger = zap.NewNop()
)

// ValidationError carries a client-facing message for a refused draft.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "news: " + e.Message
}

// Post is one newsroom article.
type Post struct {
	ID               string `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Title            string `gorm:"column:title;size:255;not null" json:"title"`
	Content          string `gorm:"column:content;not null" json:"content"`
	Summary          string `gorm:"column:summary;size:255" json:"summary"`
	Author           string `gorm:"column:author;size:100" json:"author,omitempty"`
	Category         string `gorm:"column:category;size:50;not null;index" json:"category"`
	ImageURL         string `gorm:"column:image_url;size:255" json:"image_url,omitempty"`
	Published        bool   `gorm:"column:published;not null;index" json:"published"`
	Featured         bool   `gorm:"column:featured;not null" json:"featured"`
	ViewCount        int64  `gorm:"column:view_count;not null" json:"view_count"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index" json:"created_at"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Post) TableName() string {
	return "news"
}

// Draft is an unvalidated post submission.
type Draft struct {
	Title     string
	Content   string
	Summary   string
	Author    string
	Category  string
	ImageURL  string
	Published bool
	Featured  bool
}

// Patch carries the editable fields. Nil pointers leave the stored value
// untouched.
type Patch struct {
	Title     *string
	Content   *string
	Summary   *string
	Author    *string
	Category  *string
	ImageURL  *string
	Published *bool
	Featured  *bool
}

func (p Patch) empty() bool {
	return p.Title == nil && p.Content == nil && p.Summary == nil && p.Author == nil &&
		p.Category == nil && p.ImageURL == nil && p.Published == nil && p.Featured == nil
}

// ListFilter narrows a listing.
type ListFilter struct {
	// PublishedOnly hides drafts; the public surface always sets it.
	PublishedOnly bool
	Category      string
	FeaturedOnly  bool
	Limit         int
	Offset        int
}

// ServiceConfig describes the dependencies of the newsroom service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider live.IDProvider
	Analytics  *analytics.Recorder
	Logger     *zap.Logger
}

// Service owns the news table.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider live.IDProvider
	analytics  *analytics.Recorder
	logger     *zap.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		analytics:  cfg.Analytics,
		logger:     logger,
	}, nil
}

// Create validates and persists a post. A missing summary is derived from the
// opening of the content.
func (s *Service) Create(ctx context.Context, draft Draft) (Post, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Content = strings.TrimSpace(draft.Content)

	if draft.Title == "" || draft.Content == "" {
		return Post{}, &ValidationError{Message: "Title and content are required"}
	}

	category := strings.TrimSpace(draft.Category)
	if category == "" {
		category = DefaultCategory
	}
	summary := strings.TrimSpace(draft.Summary)
	if summary == "" {
		summary = deriveSummary(draft.Content)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Post{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC().Unix()
	post := Post{
		ID:               id,
		Title:            draft.Title,
		Content:          draft.Content,
		Summary:          summary,
		Author:           strings.TrimSpace(draft.Author),
		Category:         category,
		ImageURL:         strings.TrimSpace(draft.ImageURL),
		Published:        draft.Published,
		Featured:         draft.Featured,
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		s.logger.Error("news insert failed", zap.Error(err))
		return Post{}, newServiceError(opCreate, "insert_failed", err)
	}

	if s.analytics != nil {
		s.analytics.Record(ctx, "news_created", map[string]any{
			"article_id": post.ID,
			"title":      post.Title,
			"category":   post.Category,
			"published":  post.Published,
		}, analytics.Context{})
	}

	return post, nil
}

// List returns posts newest first, narrowed by the filter. Limit is clamped
// to [1, MaxListLimit].
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Post, error) {
	query := s.db.WithContext(ctx).
		Order("created_at_s DESC, id DESC").
		Limit(live.ClampLimit(filter.Limit))
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.FeaturedOnly {
		query = query.Where("featured = ?", true)
	}

	var posts []Post
	if err := query.Find(&posts).Error; err != nil {
		s.logger.Error("news query failed", zap.Error(err))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return posts, nil
}

// Get returns a single post by id, drafts included.
func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	var post Post
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("news lookup failed", zap.Error(err))
		return Post{}, newServiceError(opGet, "query_failed", err)
	}
	return post, nil
}

// RecordView bumps the view counter for a post.
func (s *Service) RecordView(ctx context.Context, id string, viewer analytics.Context) error {
	result := s.db.WithContext(ctx).Model(&Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if result.Error != nil {
		s.logger.Error("news view count update failed", zap.Error(result.Error))
		return newServiceError(opView, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	if s.analytics != nil {
		s.analytics.Record(ctx, "news_view", map[string]any{"article_id": id}, viewer)
	}
	return nil
}

// Update applies a patch to an existing post and returns the stored row.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Post, error) {
	if patch.empty() {
		return Post{}, &ValidationError{Message: "No valid fields to update"}
	}

	updates := map[string]any{
		"updated_at_s": s.clock().UTC().Unix(),
	}
	if patch.Title != nil {
		updates["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		updates["content"] = strings.TrimSpace(*patch.Content)
	}
	if patch.Summary != nil {
		updates["summary"] = strings.TrimSpace(*patch.Summary)
	}
	if patch.Author != nil {
		updates["author"] = strings.TrimSpace(*patch.Author)
	}
	if patch.Category != nil {
		updates["category"] = strings.TrimSpace(*patch.Category)
	}
	if patch.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Published != nil {
		updates["published"] = *patch.Published
	}
	if patch.Featured != nil {
		updates["featured"] = *patch.Featured
	}

	result := s.db.WithContext(ctx).Model(&Post{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		s.logger.Error("news update failed", zap.Error(result.Error))
		return Post{}, newServiceError(opUpdate, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Post{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a post by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Post{})
	if result.Error != nil {
		s.logger.Error("news delete failed", zap.Error(result.Error))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func deriveSummary(content string) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) <= summaryLength {
		return trimmed
	}
	// Cut on a rune boundary so the excerpt stays valid UTF-8.
	cut := summaryLength
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut] + "..."
}

// ServiceError wraps a persistence failure with a stable string code of the
// form <operation>.<reason>.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}
