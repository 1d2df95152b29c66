package live

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/oromamedia/oroma-tv/backend/internal/ratelimit"
	"gorm.io/gorm"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock(unix int64) *fakeClock {
	return &fakeClock{now: time.Unix(unix, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type sequentialIDGenerator struct {
	counter atomic.Int64
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("id-%06d", g.counter.Add(1)), nil
}

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:live_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Event{}, &Presence{}, &ratelimit.Hit{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestStore(t *testing.T, db *gorm.DB, kind Kind, retention RetentionPolicy, clock *fakeClock) *Store {
	t.Helper()

	store, err := NewStore(StoreConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDGenerator{},
		Kind:       kind,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store
}

func newTestTracker(t *testing.T, db *gorm.DB, clock *fakeClock) *Tracker {
	t.Helper()

	tracker, err := NewTracker(TrackerConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}
	return tracker
}

func mustAppend(t *testing.T, store *Store, event Event) Event {
	t.Helper()

	stored, err := store.Append(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	return stored
}
