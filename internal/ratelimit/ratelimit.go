// Package ratelimit provides trailing-window admission counters keyed by an
// opaque caller identity (network origin or viewer session).
package ratelimit

import (
	"context"
	"time"
)

// Rule bounds accepted submissions per key within a trailing window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter records an attempt and reports whether it stays under the rule's
// threshold. The check and the recording are a single atomic operation, so two
// concurrent submissions from one key cannot both consume the last slot.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (bool, error)
}
