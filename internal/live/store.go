package live

import (
	"context"
	"errors"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("live: database handle is required")
	errMissingIDProvider = errors.New("live: id provider is required")
	errMissingKind       = errors.New("live: event kind is required")
	noOpLogger           = zap.NewNop()
)

const (
	opStoreAppend    = "live.store.append"
	opStoreRecent    = "live.store.recent"
	opStoreSince     = "live.store.since"
	opStoreAggregate = "live.store.aggregate"
	opStoreDelete    = "live.store.delete"
	opStoreSweep     = "live.store.sweep"
)

// RetentionPolicy bounds a store. MaxCount keeps only the newest N rows and is
// enforced after every append; MaxAge expires rows older than the window and
// is enforced after every append and before every read (sweep-on-read).
type RetentionPolicy struct {
	MaxCount int
	MaxAge   time.Duration
}

// StoreConfig describes the dependencies for one ephemeral event store.
type StoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Kind       Kind
	Retention  RetentionPolicy
	Logger     *zap.Logger
}

// Store owns the events of a single kind. Events are immutable once appended
// and leave the store only through the retention sweep or explicit removal.
type Store struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	kind       Kind
	retention  RetentionPolicy
	logger     *zap.Logger
}

// NewStore constructs a Store for the given kind.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	if cfg.Kind == "" {
		return nil, errMissingKind
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		kind:       cfg.Kind,
		retention:  cfg.Retention,
		logger:     logger,
	}, nil
}

// Kind reports the event kind this store owns.
func (s *Store) Kind() Kind {
	return s.kind
}

// Append persists a draft event, assigning id and timestamp, then enforces
// the retention policy: excess rows beyond a count cap and rows past the age
// window are deleted in the same call.
func (s *Store) Append(ctx context.Context, draft Event) (Event, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return Event{}, newServiceError(opStoreAppend, "id_generation_failed", err)
	}

	draft.ID = id
	draft.Kind = string(s.kind)
	draft.CreatedAtSeconds = s.clock().UTC().Unix()

	if err := s.db.WithContext(ctx).Create(&draft).Error; err != nil {
		s.logger.Error("event append failed",
			zap.String("kind", string(s.kind)), zap.Error(err))
		return Event{}, newServiceError(opStoreAppend, "insert_failed", err)
	}

	if s.retention.MaxCount > 0 {
		if _, err := s.sweepByCount(ctx); err != nil {
			s.logger.Warn("count-cap sweep failed",
				zap.String("kind", string(s.kind)), zap.Error(err))
		}
	}
	s.sweepExpired(ctx)

	return draft, nil
}

// Recent returns the newest events, newest first. A non-empty channel narrows
// the window to that channel; limit is clamped to [1, MaxListLimit].
func (s *Store) Recent(ctx context.Context, channel string, limit int) ([]Event, error) {
	s.sweepExpired(ctx)

	query := s.db.WithContext(ctx).
		Where("kind = ?", string(s.kind)).
		Order("created_at_s DESC, id DESC").
		Limit(ClampLimit(limit))
	if channel != "" {
		query = query.Where("stream_type = ?", channel)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		s.logger.Error("event query failed",
			zap.String("kind", string(s.kind)), zap.Error(err))
		return nil, newServiceError(opStoreRecent, "query_failed", err)
	}
	return events, nil
}

// Since returns events strictly newer than the watermark, oldest first, for
// incremental polling. Limit is clamped like Recent; when the window holds
// more rows than the limit the newest ones win.
func (s *Store) Since(ctx context.Context, channel string, watermark int64, limit int) ([]Event, error) {
	s.sweepExpired(ctx)

	query := s.db.WithContext(ctx).
		Where("kind = ? AND created_at_s > ?", string(s.kind), watermark).
		Order("created_at_s DESC, id DESC").
		Limit(ClampLimit(limit))
	if channel != "" {
		query = query.Where("stream_type = ?", channel)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		s.logger.Error("event query failed",
			zap.String("kind", string(s.kind)), zap.Error(err))
		return nil, newServiceError(opStoreSince, "query_failed", err)
	}

	for left, right := 0, len(events)-1; left < right; left, right = left+1, right-1 {
		events[left], events[right] = events[right], events[left]
	}
	return events, nil
}

// Aggregate counts events per body symbol within the trailing window.
func (s *Store) Aggregate(ctx context.Context, channel string, window time.Duration) (map[string]int64, error) {
	s.sweepExpired(ctx)

	cutoff := s.clock().UTC().Add(-window).Unix()

	type bucket struct {
		Body  string
		Count int64
	}
	var buckets []bucket
	err := s.db.WithContext(ctx).Model(&Event{}).
		Select("body, COUNT(*) as count").
		Where("kind = ? AND stream_type = ? AND created_at_s > ?", string(s.kind), channel, cutoff).
		Group("body").
		Scan(&buckets).Error
	if err != nil {
		s.logger.Error("event aggregation failed",
			zap.String("kind", string(s.kind)), zap.Error(err))
		return nil, newServiceError(opStoreAggregate, "query_failed", err)
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Body] = b.Count
	}
	return counts, nil
}

// DistinctOrigins counts unique submitters within the trailing window.
func (s *Store) DistinctOrigins(ctx context.Context, channel string, window time.Duration) (int64, error) {
	s.sweepExpired(ctx)

	cutoff := s.clock().UTC().Add(-window).Unix()

	var count int64
	err := s.db.WithContext(ctx).Model(&Event{}).
		Where("kind = ? AND stream_type = ? AND created_at_s > ?", string(s.kind), channel, cutoff).
		Distinct("ip_address").
		Count(&count).Error
	if err != nil {
		s.logger.Error("origin count failed",
			zap.String("kind", string(s.kind)), zap.Error(err))
		return 0, newServiceError(opStoreAggregate, "query_failed", err)
	}
	return count, nil
}

// Delete removes a single event, used for explicit moderation removal.
func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Where("kind = ? AND id = ?", string(s.kind), id).
		Delete(&Event{})
	if result.Error != nil {
		s.logger.Error("event delete failed",
			zap.String("kind", string(s.kind)), zap.Error(result.Error))
		return newServiceError(opStoreDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep applies the retention policy and reports how many rows were removed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	var removed int64

	if s.retention.MaxAge > 0 {
		deleted, err := s.sweepByAge(ctx)
		if err != nil {
			return removed, err
		}
		removed += deleted
	}
	if s.retention.MaxCount > 0 {
		deleted, err := s.sweepByCount(ctx)
		if err != nil {
			return removed, err
		}
		removed += deleted
	}
	return removed, nil
}

func (s *Store) sweepExpired(ctx context.Context) {
	if s.retention.MaxAge <= 0 {
		return
	}
	if _, err := s.sweepByAge(ctx); err != nil {
		s.logger.Warn("age sweep failed",
			zap.String("kind", string(s.kind)), zap.Error(err))
	}
}

func (s *Store) sweepByAge(ctx context.Context) (int64, error) {
	cutoff := s.clock().UTC().Add(-s.retention.MaxAge).Unix()
	result := s.db.WithContext(ctx).
		Where("kind = ? AND created_at_s < ?", string(s.kind), cutoff).
		Delete(&Event{})
	if result.Error != nil {
		return 0, newServiceError(opStoreSweep, "age_sweep_failed", result.Error)
	}
	telemetry.CountSwept(string(s.kind), result.RowsAffected)
	return result.RowsAffected, nil
}

func (s *Store) sweepByCount(ctx context.Context) (int64, error) {
	keep := s.db.Model(&Event{}).
		Select("id").
		Where("kind = ?", string(s.kind)).
		Order("created_at_s DESC, id DESC").
		Limit(s.retention.MaxCount)
	result := s.db.WithContext(ctx).
		Where("kind = ? AND id NOT IN (?)", string(s.kind), keep).
		Delete(&Event{})
	if result.Error != nil {
		return 0, newServiceError(opStoreSweep, "count_sweep_failed", result.Error)
	}
	telemetry.CountSwept(string(s.kind), result.RowsAffected)
	return result.RowsAffected, nil
}

// ClampLimit bounds a client-requested page size to [1, MaxListLimit],
// substituting the default when the value is absent or non-positive.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
