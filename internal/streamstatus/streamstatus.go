// Package streamstatus reports the health of the TV and radio streams. The
// widget always gets an answer: when no sample has been recorded for a
// channel the baked-in defaults are served instead.
package streamstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opStatus = "streamstatus.status"
	opRecord = "streamstatus.record"
)

var (
	// ErrUnknownChannel indicates a channel outside tv|radio.
	ErrUnknownChannel = errors.New("streamstatus: unknown stream type")

	errMissingDatabase   = errors.New("streamstatus: database handle is required")
	errMissingIDProvider = errors.New("streamstatus: id provider is required")

	noOpLogger = zap.NewNop()
)

// Stat is one recorded stream health sample.
type Stat struct {
	ID                string `gorm:"column:id;primaryKey;size:36;not null"`
	Channel           string `gorm:"column:stream_type;size:16;not null;index"`
	Status            string `gorm:"column:status;size:32;not null"`
	Quality           string `gorm:"column:quality;size:32"`
	Latency           string `gorm:"column:latency;size:32"`
	Bitrate           string `gorm:"column:bitrate;size:32"`
	ViewersCount      int64  `gorm:"column:viewers_count;not null"`
	CurrentSong       string `gorm:"column:current_song;size:255"`
	RecordedAtSeconds int64  `gorm:"column:recorded_at_s;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (Stat) TableName() string {
	return "stream_stats"
}

// Status is the client-facing health report for one channel.
type Status struct {
	Status      string `json:"status"`
	Quality     string `json:"quality"`
	Latency     string `json:"latency"`
	Viewers     int64  `json:"viewers"`
	CurrentSong string `json:"current_song,omitempty"`
	LastUpdated int64  `json:"last_updated"`
}

// Sample is an unvalidated health report submission.
type Sample struct {
	Channel     string
	Status      string
	Quality     string
	Latency     string
	Bitrate     string
	Viewers     int64
	CurrentSong string
}

// ServiceConfig describes the dependencies of the status service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider live.IDProvider
	Logger     *zap.Logger
}

// Service owns the stream_stats table.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider live.IDProvider
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
		logger:     logger,
	}, nil
}

// Status returns the latest recorded sample for one channel, falling back to
// the channel's defaults when nothing has been recorded yet.
func (s *Service) Status(ctx context.Context, channel string) (Status, error) {
	if channel != live.ChannelTV && channel != live.ChannelRadio {
		return Status{}, ErrUnknownChannel
	}

	var stat Stat
	err := s.db.WithContext(ctx).
		Where("stream_type = ?", channel).
		Order("recorded_at_s DESC, id DESC").
		Take(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaults(channel), nil
	}
	if err != nil {
		s.logger.Error("stream status query failed",
			zap.String("stream_type", channel), zap.Error(err))
		return Status{}, newServiceError(opStatus, "query_failed", err)
	}

	status := Status{
		Status:      stat.Status,
		Quality:     stat.Quality,
		Latency:     stat.Latency,
		Viewers:     stat.ViewersCount,
		CurrentSong: stat.CurrentSong,
		LastUpdated: stat.RecordedAtSeconds,
	}
	fallback := s.defaults(channel)
	if status.Quality == "" {
		status.Quality = fallback.Quality
	}
	if status.Latency == "" {
		status.Latency = fallback.Latency
	}
	return status, nil
}

// All reports both channels keyed by channel name.
func (s *Service) All(ctx context.Context) (map[string]Status, error) {
	statuses := make(map[string]Status, 2)
	for _, channel := range []string{live.ChannelTV, live.ChannelRadio} {
		status, err := s.Status(ctx, channel)
		if err != nil {
			return nil, err
		}
		statuses[channel] = status
	}
	return statuses, nil
}

// Record persists a new health sample for a channel.
func (s *Service) Record(ctx context.Context, sample Sample) (Status, error) {
	if sample.Channel != live.ChannelTV && sample.Channel != live.ChannelRadio {
		return Status{}, ErrUnknownChannel
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Status{}, newServiceError(opRecord, "id_generation_failed", err)
	}

	status := sample.Status
	if status == "" {
		status = "online"
	}
	stat := Stat{
		ID:                id,
		Channel:           sample.Channel,
		Status:            status,
		Quality:           sample.Quality,
		Latency:           sample.Latency,
		Bitrate:           sample.Bitrate,
		ViewersCount:      sample.Viewers,
		CurrentSong:       sample.CurrentSong,
		RecordedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&stat).Error; err != nil {
		s.logger.Error("stream status insert failed",
			zap.String("stream_type", sample.Channel), zap.Error(err))
		return Status{}, newServiceError(opRecord, "insert_failed", err)
	}

	return s.Status(ctx, sample.Channel)
}

func (s *Service) defaults(channel string) Status {
	now := s.clock().UTC().Unix()
	if channel == live.ChannelRadio {
		return Status{
			Status:      "online",
			Quality:     "128kbps",
			Latency:     "1.8s",
			Viewers:     180,
			CurrentSong: "Live Broadcasting",
			LastUpdated: now,
		}
	}
	return Status{
		Status:      "online",
		Quality:     "HD",
		Latency:     "2.3s",
		Viewers:     245,
		LastUpdated: now,
	}
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
