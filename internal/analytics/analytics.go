// Package analytics appends interaction events to an audit table. Recording is
// strictly fire-and-forget: a failed write is logged and dropped, never
// surfaced to the caller.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("analytics: database handle is required")

// Entry is one recorded interaction event.
type Entry struct {
	ID               string `gorm:"column:id;primaryKey;size:36;not null"`
	EventType        string `gorm:"column:event_type;size:64;not null;index"`
	PayloadJSON      string `gorm:"column:event_data;type:text"`
	Session          string `gorm:"column:user_session;size:64"`
	Origin           string `gorm:"column:ip_address;size:64"`
	UserAgent        string `gorm:"column:user_agent;size:512"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "analytics"
}

// IDProvider issues identifiers for analytics entries.
type IDProvider interface {
	NewID() (string, error)
}

// RecorderConfig describes the dependencies for the analytics recorder.
type RecorderConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Recorder persists analytics entries.
type Recorder struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Context carries the caller identity attached to every entry.
type Context struct {
	Session   string
	Origin    string
	UserAgent string
}

// Record stores one event. Failures are logged and counted, never returned.
func (r *Recorder) Record(ctx context.Context, eventType string, data map[string]any, caller Context) {
	if r == nil {
		return
	}

	payload := ""
	if len(data) > 0 {
		encoded, err := json.Marshal(data)
		if err != nil {
			r.logger.Warn("analytics payload encoding failed",
				zap.String("event_type", eventType), zap.Error(err))
		} else {
			payload = string(encoded)
		}
	}

	id := ""
	if r.idProvider != nil {
		generated, err := r.idProvider.NewID()
		if err != nil {
			r.logger.Warn("analytics id generation failed",
				zap.String("event_type", eventType), zap.Error(err))
			telemetry.CountAnalyticsDropped()
			return
		}
		id = generated
	}

	entry := Entry{
		ID:               id,
		EventType:        eventType,
		PayloadJSON:      payload,
		Session:          caller.Session,
		Origin:           caller.Origin,
		UserAgent:        caller.UserAgent,
		CreatedAtSeconds: r.clock().UTC().Unix(),
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Warn("analytics write failed",
			zap.String("event_type", eventType), zap.Error(err))
		telemetry.CountAnalyticsDropped()
	}
}
