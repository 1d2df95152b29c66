package streamstatus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(unixSeconds int64) *fakeClock {
	return &fakeClock{now: time.Unix(unixSeconds, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequentialIDGenerator struct {
	counter atomic.Int64
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("stat-%04d", g.counter.Add(1)), nil
}

var databaseSequence atomic.Int64

func newTestService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:streamstatus_test_%d?mode=memory&cache=shared", databaseSequence.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Stat{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestStatusServesDefaultsWhenEmpty(t *testing.T) {
	clock := newFakeClock(1700000000)
	service := newTestService(t, clock)

	tv, err := service.Status(context.Background(), "tv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tv.Status != "online" || tv.Quality != "HD" || tv.Latency != "2.3s" || tv.Viewers != 245 {
		t.Fatalf("unexpected tv defaults: %+v", tv)
	}
	if tv.LastUpdated != 1700000000 {
		t.Fatalf("defaults carry the current time, got %d", tv.LastUpdated)
	}

	radio, err := service.Status(context.Background(), "radio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if radio.Quality != "128kbps" || radio.Latency != "1.8s" || radio.Viewers != 180 {
		t.Fatalf("unexpected radio defaults: %+v", radio)
	}
	if radio.CurrentSong != "Live Broadcasting" {
		t.Fatalf("unexpected radio song default: %q", radio.CurrentSong)
	}
}

func TestStatusRejectsUnknownChannel(t *testing.T) {
	clock := newFakeClock(1700000000)
	service := newTestService(t, clock)

	if _, err := service.Status(context.Background(), "podcast"); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestRecordThenStatusServesLatestSample(t *testing.T) {
	clock := newFakeClock(1700000000)
	service := newTestService(t, clock)

	if _, err := service.Record(context.Background(), Sample{
		Channel: "tv",
		Status:  "degraded",
		Quality: "SD",
		Latency: "5.0s",
		Viewers: 42,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(time.Minute)
	latest, err := service.Record(context.Background(), Sample{
		Channel: "tv",
		Viewers: 99,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Status != "online" || latest.Viewers != 99 {
		t.Fatalf("expected the newest sample, got %+v", latest)
	}
	// Blank quality and latency fall back to the channel defaults.
	if latest.Quality != "HD" || latest.Latency != "2.3s" {
		t.Fatalf("expected default fill-in for blank fields, got %+v", latest)
	}
	if latest.LastUpdated != 1700000060 {
		t.Fatalf("expected the recording time, got %d", latest.LastUpdated)
	}
}

func TestRecordRejectsUnknownChannel(t *testing.T) {
	clock := newFakeClock(1700000000)
	service := newTestService(t, clock)

	if _, err := service.Record(context.Background(), Sample{Channel: "podcast"}); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestAllReportsBothChannels(t *testing.T) {
	clock := newFakeClock(1700000000)
	service := newTestService(t, clock)

	if _, err := service.Record(context.Background(), Sample{
		Channel:     "radio",
		Viewers:     73,
		CurrentSong: "Sitya Loss",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses, err := service.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected tv and radio, got %d entries", len(statuses))
	}
	if statuses["radio"].Viewers != 73 || statuses["radio"].CurrentSong != "Sitya Loss" {
		t.Fatalf("expected recorded radio sample, got %+v", statuses["radio"])
	}
	if statuses["tv"].Viewers != 245 {
		t.Fatalf("expected tv defaults, got %+v", statuses["tv"])
	}
}
