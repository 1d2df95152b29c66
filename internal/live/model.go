// Package live implements the ephemeral viewer-interaction core: an
// append-only event store with bounded retention, a presence tracker with
// staleness expiry, and the admission gate that validates, moderates and
// rate-limits submissions before they are persisted.
package live

import "strings"

// Kind partitions events into the independent ephemeral stores.
type Kind string

const (
	// KindChat is the homepage chat widget.
	KindChat Kind = "chat"
	// KindComment is the live-comments feed.
	KindComment Kind = "comment"
	// KindReaction is the per-channel emoji reaction feed.
	KindReaction Kind = "reaction"
	// KindStreamReaction is the aggregate reaction counter widget.
	KindStreamReaction Kind = "stream_reaction"
)

// Channel identifiers partition events and presence per stream.
const (
	ChannelTV    = "tv"
	ChannelRadio = "radio"
)

const (
	// MaxUsernameLength bounds the display-name field.
	MaxUsernameLength = 50
	// MaxBodyLength bounds free-text payloads.
	MaxBodyLength = 500

	// DefaultListLimit applies when the caller omits a limit.
	DefaultListLimit = 20
	// MaxListLimit is the server-side clamp on every windowed read.
	MaxListLimit = 50
)

// StreamReactionSymbols is the allow-list for the aggregate reaction widget.
var StreamReactionSymbols = []string{"👍", "🔥", "😂", "😢", "👏"}

// LiveReactionSymbols is the allow-list for the per-channel reaction feed.
var LiveReactionSymbols = []string{"❤️", "👍", "👀", "👏", "🔥", "🎵", "🎧", "💃", "🎤", "🔊"}

// NormalizeChannel maps raw input onto a known channel, defaulting to tv.
func NormalizeChannel(value string) string {
	if strings.ToLower(strings.TrimSpace(value)) == ChannelRadio {
		return ChannelRadio
	}
	return ChannelTV
}

// Event is one immutable viewer interaction. Origin is the rate-limiting
// identity and is never rendered to clients.
type Event struct {
	ID               string `gorm:"column:id;primaryKey;size:36;not null"`
	Kind             string `gorm:"column:kind;size:32;not null;index:idx_live_events_window,priority:1"`
	Channel          string `gorm:"column:stream_type;size:16;not null;index:idx_live_events_window,priority:2"`
	Username         string `gorm:"column:username;size:50"`
	Body             string `gorm:"column:body;size:500;not null"`
	Session          string `gorm:"column:user_session;size:64;index"`
	Origin           string `gorm:"column:ip_address;size:64;index"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null;index:idx_live_events_window,priority:3"`
}

// TableName provides the explicit table binding for GORM.
func (Event) TableName() string {
	return "live_events"
}

// Presence is the liveness record for one viewer session. At most one row
// exists per session (upsert semantics).
type Presence struct {
	ID              string `gorm:"column:id;primaryKey;size:36;not null"`
	Session         string `gorm:"column:user_session;size:64;not null;uniqueIndex"`
	Channel         string `gorm:"column:stream_type;size:16;not null;index"`
	Username        string `gorm:"column:username;size:50"`
	LastSeenSeconds int64  `gorm:"column:last_seen_s;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (Presence) TableName() string {
	return "active_users"
}
