package database

import (
	"errors"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillEventChannel = "2026-07-14_backfill_event_channel"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillEventChannel, apply: backfillEventChannel},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Rows written before channels became mandatory carried an empty stream_type;
// they belong to the tv stream.
func backfillEventChannel(db *gorm.DB) error {
	return db.Model(&live.Event{}).
		Where("stream_type = ''").
		Update("stream_type", live.ChannelTV).Error
}
