package ratelimit

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("ratelimit: database handle is required")

// Hit records one accepted admission attempt for a key.
type Hit struct {
	ID               int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Key              string `gorm:"column:key;size:190;not null;index:idx_rate_limit_key_created,priority:1"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_rate_limit_key_created,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Hit) TableName() string {
	return "rate_limit_hits"
}

// SQLLimiter counts hits inside a single transaction against the relational
// store. Expired hits for the key are pruned on every call, so the table stays
// bounded without a background sweeper.
type SQLLimiter struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewSQLLimiter constructs a limiter backed by the shared database.
func NewSQLLimiter(db *gorm.DB, clock func() time.Time) (*SQLLimiter, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if clock == nil {
		clock = time.Now
	}
	return &SQLLimiter{db: db, clock: clock}, nil
}

// Allow implements Limiter. The count, the prune, and the insert share one
// transaction; the backing engine serializes concurrent callers.
func (l *SQLLimiter) Allow(ctx context.Context, key string, rule Rule) (bool, error) {
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, nil
	}

	now := l.clock().UTC()
	cutoff := now.Add(-rule.Window).Unix()
	allowed := false

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ? AND created_at_s <= ?", key, cutoff).Delete(&Hit{}).Error; err != nil {
			return err
		}

		var recent int64
		if err := tx.Model(&Hit{}).
			Where("key = ? AND created_at_s > ?", key, cutoff).
			Count(&recent).Error; err != nil {
			return err
		}
		if recent >= int64(rule.Limit) {
			return nil
		}

		if err := tx.Create(&Hit{Key: key, CreatedAtSeconds: now.Unix()}).Error; err != nil {
			return err
		}
		allowed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return allowed, nil
}
