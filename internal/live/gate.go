package live

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oromamedia/oroma-tv/backend/internal/analytics"
	"github.com/oromamedia/oroma-tv/backend/internal/moderation"
	"github.com/oromamedia/oroma-tv/backend/internal/ratelimit"
	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Reason identifies why the admission gate refused a submission.
type Reason string

const (
	ReasonMissingField     Reason = "missing_field"
	ReasonTooLong          Reason = "too_long"
	ReasonInvalidReaction  Reason = "invalid_reaction"
	ReasonModeratedContent Reason = "moderated_content"
	ReasonRateLimited      Reason = "rate_limited"
)

// Rejection is returned by Submit when a draft fails validation, moderation
// or rate limiting. Nothing is persisted for a rejected draft.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("live: submission rejected (%s): %s", r.Reason, r.Message)
}

// AsRejection unwraps a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

// RateScope selects the identity the rate-limit budget is keyed by.
type RateScope string

const (
	// ScopeOrigin keys budgets by the caller's network identity.
	ScopeOrigin RateScope = "origin"
	// ScopeSession keys budgets by the viewer session.
	ScopeSession RateScope = "session"
)

// Draft is an unvalidated submission.
type Draft struct {
	Channel  string
	Username string
	Body     string
	Session  string
	Origin   string
}

// GateConfig configures one admission gate in front of a store.
type GateConfig struct {
	Store            *Store
	Limiter          ratelimit.Limiter
	Rule             ratelimit.Rule
	Scope            RateScope
	Filter           *moderation.Filter
	AllowedSymbols   []string
	RequireUsername  bool
	RateLimitMessage string
	Analytics        *analytics.Recorder
	AnalyticsEvent   string
	Logger           *zap.Logger
}

// Gate validates, moderates and rate-limits drafts, persisting only the ones
// that pass every check, in order: required fields, length bounds, allow-list
// membership, content moderation, rate limit. The first failure wins.
type Gate struct {
	store            *Store
	limiter          ratelimit.Limiter
	rule             ratelimit.Rule
	scope            RateScope
	filter           *moderation.Filter
	allowedSymbols   []string
	requireUsername  bool
	rateLimitMessage string
	analytics        *analytics.Recorder
	analyticsEvent   string
	logger           *zap.Logger
}

// NewGate constructs a Gate.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Store == nil {
		return nil, errors.New("live: store is required")
	}
	scope := cfg.Scope
	if scope == "" {
		scope = ScopeOrigin
	}
	message := cfg.RateLimitMessage
	if message == "" {
		message = "Too many submissions. Please wait a moment."
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Gate{
		store:            cfg.Store,
		limiter:          cfg.Limiter,
		rule:             cfg.Rule,
		scope:            scope,
		filter:           cfg.Filter,
		allowedSymbols:   cfg.AllowedSymbols,
		requireUsername:  cfg.RequireUsername,
		rateLimitMessage: message,
		analytics:        cfg.Analytics,
		analyticsEvent:   cfg.AnalyticsEvent,
		logger:           logger,
	}, nil
}

// Store exposes the store behind this gate for read paths.
func (g *Gate) Store() *Store {
	return g.store
}

// Submit runs the admission pipeline. It returns the stored event on
// acceptance, a *Rejection for refused drafts, and a *ServiceError for
// persistence failures.
func (g *Gate) Submit(ctx context.Context, draft Draft) (Event, error) {
	draft.Username = strings.TrimSpace(draft.Username)
	draft.Body = strings.TrimSpace(draft.Body)
	draft.Channel = NormalizeChannel(draft.Channel)

	if rejection := g.validate(draft); rejection != nil {
		telemetry.CountRejected(string(g.store.kind), string(rejection.Reason))
		return Event{}, rejection
	}

	if g.filter != nil {
		cleaned, err := g.filter.Apply(draft.Body)
		if err != nil {
			rejection := &Rejection{
				Reason:  ReasonModeratedContent,
				Message: "Message contains inappropriate content",
			}
			telemetry.CountRejected(string(g.store.kind), string(rejection.Reason))
			return Event{}, rejection
		}
		draft.Body = cleaned
	}

	if g.limiter != nil {
		allowed, err := g.limiter.Allow(ctx, g.rateKey(draft), g.rule)
		if err != nil {
			g.logger.Error("rate limit check failed",
				zap.String("kind", string(g.store.kind)), zap.Error(err))
			return Event{}, newServiceError("live.gate.submit", "rate_limit_failed", err)
		}
		if !allowed {
			rejection := &Rejection{Reason: ReasonRateLimited, Message: g.rateLimitMessage}
			telemetry.CountRejected(string(g.store.kind), string(rejection.Reason))
			return Event{}, rejection
		}
	}

	stored, err := g.store.Append(ctx, Event{
		Channel:  draft.Channel,
		Username: draft.Username,
		Body:     draft.Body,
		Session:  draft.Session,
		Origin:   draft.Origin,
	})
	if err != nil {
		return Event{}, err
	}

	telemetry.CountAccepted(string(g.store.kind))
	g.recordAnalytics(ctx, stored, draft)

	return stored, nil
}

func (g *Gate) validate(draft Draft) *Rejection {
	if g.requireUsername && draft.Username == "" {
		return &Rejection{Reason: ReasonMissingField, Message: "Username and message are required"}
	}
	if draft.Body == "" {
		if len(g.allowedSymbols) > 0 {
			return &Rejection{Reason: ReasonMissingField, Message: "Reaction type is required"}
		}
		if g.requireUsername {
			return &Rejection{Reason: ReasonMissingField, Message: "Username and message are required"}
		}
		return &Rejection{Reason: ReasonMissingField, Message: "Message is required"}
	}

	if len(draft.Username) > MaxUsernameLength {
		return &Rejection{Reason: ReasonTooLong, Message: "Username too long"}
	}

	if len(g.allowedSymbols) > 0 {
		for _, symbol := range g.allowedSymbols {
			if draft.Body == symbol {
				return nil
			}
		}
		return &Rejection{Reason: ReasonInvalidReaction, Message: "Invalid reaction type"}
	}

	if len(draft.Body) > MaxBodyLength {
		return &Rejection{Reason: ReasonTooLong, Message: "Message too long"}
	}
	return nil
}

func (g *Gate) rateKey(draft Draft) string {
	identity := draft.Origin
	if g.scope == ScopeSession && draft.Session != "" {
		identity = draft.Session
	}
	return string(g.store.kind) + ":" + identity
}

func (g *Gate) recordAnalytics(ctx context.Context, stored Event, draft Draft) {
	if g.analytics == nil || g.analyticsEvent == "" {
		return
	}
	g.analytics.Record(ctx, g.analyticsEvent, map[string]any{
		"stream_type": stored.Channel,
		"username":    stored.Username,
		"body_length": len(stored.Body),
	}, analytics.Context{Session: draft.Session, Origin: draft.Origin})
}
