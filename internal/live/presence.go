package live

import (
	"context"
	"errors"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLiveness is the window without a heartbeat after which a session is
// considered gone.
const DefaultLiveness = 5 * time.Minute

var errMissingSession = errors.New("live: session identity is required")

const (
	opTrackerJoin      = "live.tracker.join"
	opTrackerHeartbeat = "live.tracker.heartbeat"
	opTrackerLeave     = "live.tracker.leave"
	opTrackerRemove    = "live.tracker.remove"
	opTrackerCount     = "live.tracker.count"
	opTrackerList      = "live.tracker.list"
	opTrackerSweep     = "live.tracker.sweep"
)

// TrackerConfig describes the dependencies for the presence tracker.
type TrackerConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Liveness   time.Duration
	Logger     *zap.Logger
}

// Tracker owns presence records keyed by session identity. Join and Heartbeat
// are upserts, so a heartbeat after a sweep simply recreates the record
// (last-write-wins). The staleness sweep runs before every read, never on a
// timer.
type Tracker struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	liveness   time.Duration
	logger     *zap.Logger
}

// NewTracker constructs a Tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
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
	liveness := cfg.Liveness
	if liveness <= 0 {
		liveness = DefaultLiveness
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Tracker{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		liveness:   liveness,
		logger:     logger,
	}, nil
}

// Join registers a session on a channel, updating the existing record when the
// session is already present.
func (t *Tracker) Join(ctx context.Context, session, channel, username string) (Presence, error) {
	if session == "" {
		return Presence{}, newServiceError(opTrackerJoin, "missing_session", errMissingSession)
	}

	id, err := t.idProvider.NewID()
	if err != nil {
		return Presence{}, newServiceError(opTrackerJoin, "id_generation_failed", err)
	}

	record := Presence{
		ID:              id,
		Session:         session,
		Channel:         channel,
		Username:        username,
		LastSeenSeconds: t.clock().UTC().Unix(),
	}
	err = t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_session"}},
			DoUpdates: clause.AssignmentColumns([]string{"stream_type", "username", "last_seen_s"}),
		}).
		Create(&record).Error
	if err != nil {
		t.logger.Error("presence join failed", zap.Error(err))
		return Presence{}, newServiceError(opTrackerJoin, "upsert_failed", err)
	}

	stored, err := t.bySession(ctx, session)
	if err != nil {
		return Presence{}, newServiceError(opTrackerJoin, "reload_failed", err)
	}
	return stored, nil
}

// Heartbeat renews a session's liveness, creating the record when it is
// missing so clients never need an explicit join first.
func (t *Tracker) Heartbeat(ctx context.Context, session, channel string) error {
	if session == "" {
		return newServiceError(opTrackerHeartbeat, "missing_session", errMissingSession)
	}

	now := t.clock().UTC().Unix()
	result := t.db.WithContext(ctx).Model(&Presence{}).
		Where("user_session = ?", session).
		Updates(map[string]any{"last_seen_s": now, "stream_type": channel})
	if result.Error != nil {
		t.logger.Error("presence heartbeat failed", zap.Error(result.Error))
		return newServiceError(opTrackerHeartbeat, "update_failed", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	id, err := t.idProvider.NewID()
	if err != nil {
		return newServiceError(opTrackerHeartbeat, "id_generation_failed", err)
	}
	record := Presence{
		ID:              id,
		Session:         session,
		Channel:         channel,
		LastSeenSeconds: now,
	}
	err = t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_session"}},
			DoUpdates: clause.AssignmentColumns([]string{"stream_type", "last_seen_s"}),
		}).
		Create(&record).Error
	if err != nil {
		t.logger.Error("presence heartbeat insert failed", zap.Error(err))
		return newServiceError(opTrackerHeartbeat, "insert_failed", err)
	}
	return nil
}

// Leave removes a session's record regardless of staleness.
func (t *Tracker) Leave(ctx context.Context, session string) error {
	if session == "" {
		return newServiceError(opTrackerLeave, "missing_session", errMissingSession)
	}
	err := t.db.WithContext(ctx).Where("user_session = ?", session).Delete(&Presence{}).Error
	if err != nil {
		t.logger.Error("presence leave failed", zap.Error(err))
		return newServiceError(opTrackerLeave, "delete_failed", err)
	}
	return nil
}

// Remove deletes a presence record by id. Unknown ids return ErrNotFound.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	result := t.db.WithContext(ctx).Where("id = ?", id).Delete(&Presence{})
	if result.Error != nil {
		t.logger.Error("presence remove failed", zap.Error(result.Error))
		return newServiceError(opTrackerRemove, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count reports live sessions on a channel as of now; the staleness sweep runs
// first so the count never includes expired sessions.
func (t *Tracker) Count(ctx context.Context, channel string) (int64, error) {
	if _, err := t.Sweep(ctx); err != nil {
		t.logger.Warn("presence sweep failed", zap.Error(err))
	}

	var count int64
	err := t.db.WithContext(ctx).Model(&Presence{}).
		Where("stream_type = ?", channel).
		Count(&count).Error
	if err != nil {
		t.logger.Error("presence count failed", zap.Error(err))
		return 0, newServiceError(opTrackerCount, "query_failed", err)
	}

	telemetry.SetActiveViewers(channel, count)
	return count, nil
}

// List returns all live sessions, most recently seen first.
func (t *Tracker) List(ctx context.Context) ([]Presence, error) {
	if _, err := t.Sweep(ctx); err != nil {
		t.logger.Warn("presence sweep failed", zap.Error(err))
	}

	var records []Presence
	err := t.db.WithContext(ctx).
		Order("last_seen_s DESC").
		Find(&records).Error
	if err != nil {
		t.logger.Error("presence list failed", zap.Error(err))
		return nil, newServiceError(opTrackerList, "query_failed", err)
	}
	return records, nil
}

// Sweep deletes every record whose last heartbeat fell outside the liveness
// window and reports how many were removed.
func (t *Tracker) Sweep(ctx context.Context) (int64, error) {
	cutoff := t.clock().UTC().Add(-t.liveness).Unix()
	result := t.db.WithContext(ctx).
		Where("last_seen_s < ?", cutoff).
		Delete(&Presence{})
	if result.Error != nil {
		return 0, newServiceError(opTrackerSweep, "delete_failed", result.Error)
	}
	telemetry.CountSwept("presence", result.RowsAffected)
	return result.RowsAffected, nil
}

func (t *Tracker) bySession(ctx context.Context, session string) (Presence, error) {
	var record Presence
	err := t.db.WithContext(ctx).Where("user_session = ?", session).Take(&record).Error
	if err != nil {
		return Presence{}, err
	}
	return record, nil
}
