// Package requests manages listener song requests for the radio stream.
// Submissions are public but rate limited; triage (status, priority) is an
// admin concern.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/analytics"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"github.com/oromamedia/oroma-tv/backend/internal/ratelimit"
	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// MaxFieldLength bounds the free-text submission fields.
	MaxFieldLength = 255

	// StatusPending is assigned to every new request.
	StatusPending = "pending"
	StatusPlayed  = "played"
	StatusSkipped = "skipped"
)

const (
	opCreate = "requests.create"
	opList   = "requests.list"
	opGet    = "requests.get"
	opUpdate = "requests.update"
	opDelete = "requests.delete"
)

var (
	// ErrNotFound indicates an unknown request id.
	ErrNotFound = errors.New("requests: not found")

	errMissingDatabase   = errors.New("requests: database handle is required")
	errMissingIDProvider = errors.New("requests: id provider is required")

	noOpLogger = zap.NewNop()
)

// ValidationError carries a client-facing message for a refused submission.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "requests: " + e.Message
}

// ErrRateLimited is returned when an origin exceeds its hourly budget.
var ErrRateLimited = errors.New("requests: too many requests")

// SongRequest is one listener submission.
type SongRequest struct {
	ID               string `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	SongTitle        string `gorm:"column:song_title;size:255;not null" json:"song_title"`
	Artist           string `gorm:"column:artist;size:255" json:"artist"`
	RequesterName    string `gorm:"column:requester_name;size:255;not null" json:"requester_name"`
	RequesterPhone   string `gorm:"column:requester_phone;size:64" json:"requester_phone,omitempty"`
	Message          string `gorm:"column:message;size:500" json:"message,omitempty"`
	Status           string `gorm:"column:status;size:32;not null;index" json:"status"`
	Priority         int    `gorm:"column:priority;not null" json:"priority"`
	Session          string `gorm:"column:user_session;size:64" json:"-"`
	Origin           string `gorm:"column:ip_address;size:64" json:"-"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index" json:"created_at"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (SongRequest) TableName() string {
	return "song_requests"
}

// Draft is an unvalidated submission.
type Draft struct {
	SongTitle      string
	Artist         string
	RequesterName  string
	RequesterPhone string
	Message        string
	Session        string
	Origin         string
}

// Patch carries the admin-editable fields. Nil pointers leave the stored
// value untouched; only these four fields can ever change after submission.
type Patch struct {
	Status   *string
	Priority *int
	Artist   *string
	Message  *string
}

func (p Patch) empty() bool {
	return p.Status == nil && p.Priority == nil && p.Artist == nil && p.Message == nil
}

// ServiceConfig describes the dependencies of the request service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider live.IDProvider
	Limiter    ratelimit.Limiter
	Rule       ratelimit.Rule
	Analytics  *analytics.Recorder
	Logger     *zap.Logger
}

// Service owns the song_requests table.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider live.IDProvider
	limiter    ratelimit.Limiter
	rule       ratelimit.Rule
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
		limiter:    cfg.Limiter,
		rule:       cfg.Rule,
		analytics:  cfg.Analytics,
		logger:     logger,
	}, nil
}

// Create validates and persists a listener submission. New requests start
// pending with priority zero.
func (s *Service) Create(ctx context.Context, draft Draft) (SongRequest, error) {
	draft.SongTitle = strings.TrimSpace(draft.SongTitle)
	draft.RequesterName = strings.TrimSpace(draft.RequesterName)
	draft.Artist = strings.TrimSpace(draft.Artist)
	draft.Message = strings.TrimSpace(draft.Message)

	if draft.SongTitle == "" || draft.RequesterName == "" {
		return SongRequest{}, &ValidationError{Message: "Song title and requester name are required"}
	}
	if len(draft.SongTitle) > MaxFieldLength || len(draft.RequesterName) > MaxFieldLength {
		return SongRequest{}, &ValidationError{Message: "Song title or requester name too long"}
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "song_request:"+draft.Origin, s.rule)
		if err != nil {
			s.logger.Error("rate limit check failed", zap.Error(err))
			return SongRequest{}, newServiceError(opCreate, "rate_limit_failed", err)
		}
		if !allowed {
			telemetry.CountRejected("song_request", "rate_limited")
			return SongRequest{}, ErrRateLimited
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return SongRequest{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC().Unix()
	request := SongRequest{
		ID:               id,
		SongTitle:        draft.SongTitle,
		Artist:           draft.Artist,
		RequesterName:    draft.RequesterName,
		RequesterPhone:   strings.TrimSpace(draft.RequesterPhone),
		Message:          draft.Message,
		Status:           StatusPending,
		Session:          draft.Session,
		Origin:           draft.Origin,
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		s.logger.Error("song request insert failed", zap.Error(err))
		return SongRequest{}, newServiceError(opCreate, "insert_failed", err)
	}

	telemetry.CountAccepted("song_request")
	if s.analytics != nil {
		s.analytics.Record(ctx, "song_request", map[string]any{
			"song_title":     request.SongTitle,
			"artist":         request.Artist,
			"requester_name": request.RequesterName,
		}, analytics.Context{Session: draft.Session, Origin: draft.Origin})
	}

	return request, nil
}

// List returns the newest requests. A non-empty status narrows the result;
// limit is clamped to [1, MaxListLimit].
func (s *Service) List(ctx context.Context, status string, limit int) ([]SongRequest, error) {
	query := s.db.WithContext(ctx).
		Order("created_at_s DESC, id DESC").
		Limit(live.ClampLimit(limit))
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var results []SongRequest
	if err := query.Find(&results).Error; err != nil {
		s.logger.Error("song request query failed", zap.Error(err))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return results, nil
}

// Get returns a single request by id.
func (s *Service) Get(ctx context.Context, id string) (SongRequest, error) {
	var request SongRequest
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SongRequest{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("song request lookup failed", zap.Error(err))
		return SongRequest{}, newServiceError(opGet, "query_failed", err)
	}
	return request, nil
}

// Update applies a patch to an existing request and returns the stored row.
// Fields outside the patch whitelist can never change.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (SongRequest, error) {
	if patch.empty() {
		return SongRequest{}, &ValidationError{Message: "No valid fields to update"}
	}

	updates := map[string]any{
		"updated_at_s": s.clock().UTC().Unix(),
	}
	if patch.Status != nil {
		updates["status"] = strings.TrimSpace(*patch.Status)
	}
	if patch.Priority != nil {
		updates["priority"] = *patch.Priority
	}
	if patch.Artist != nil {
		updates["artist"] = strings.TrimSpace(*patch.Artist)
	}
	if patch.Message != nil {
		updates["message"] = strings.TrimSpace(*patch.Message)
	}

	result := s.db.WithContext(ctx).Model(&SongRequest{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		s.logger.Error("song request update failed", zap.Error(result.Error))
		return SongRequest{}, newServiceError(opUpdate, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return SongRequest{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a request by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&SongRequest{})
	if result.Error != nil {
		s.logger.Error("song request delete failed", zap.Error(result.Error))
		return newServiceError(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
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
