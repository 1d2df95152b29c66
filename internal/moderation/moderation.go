package moderation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Policy selects what happens when a submission contains a banned word.
type Policy string

const (
	// PolicyReject refuses the whole submission.
	PolicyReject Policy = "reject"
	// PolicyMask replaces each banned word with asterisks of equal length.
	PolicyMask Policy = "mask"
)

// ErrBannedContent indicates a submission was refused under PolicyReject.
var ErrBannedContent = errors.New("moderation: banned content")

var errUnknownPolicy = errors.New("moderation: unknown policy")

// Default word lists carried over from the comment and chat surfaces.
var (
	CommentBannedWords = []string{"spam", "scam", "hate", "abuse"}
	ChatBannedWords    = []string{"spam", "scam", "fake", "bot"}
)

// ParsePolicy validates a configuration value.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyReject:
		return PolicyReject, nil
	case PolicyMask:
		return PolicyMask, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownPolicy, value)
	}
}

// Filter scans free text case-insensitively for banned substrings and applies
// the configured policy.
type Filter struct {
	policy Policy
	words  []string
}

// NewFilter constructs a Filter. Words are matched as substrings, lower-cased.
func NewFilter(policy Policy, words []string) *Filter {
	normalized := make([]string, 0, len(words))
	for _, word := range words {
		trimmed := strings.ToLower(strings.TrimSpace(word))
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return &Filter{policy: policy, words: normalized}
}

// Policy reports the configured policy.
func (f *Filter) Policy() Policy {
	return f.policy
}

// Apply returns the text to persist. Under PolicyReject a match returns
// ErrBannedContent; under PolicyMask matches are starred out and the cleaned
// text is returned.
func (f *Filter) Apply(text string) (string, error) {
	if f == nil || len(f.words) == 0 {
		return text, nil
	}
	switch f.policy {
	case PolicyReject:
		lowered := strings.ToLower(text)
		for _, word := range f.words {
			if strings.Contains(lowered, word) {
				return "", ErrBannedContent
			}
		}
		return text, nil
	case PolicyMask:
		masked := text
		for _, word := range f.words {
			masked = maskWord(masked, word)
		}
		return masked, nil
	default:
		return "", errUnknownPolicy
	}
}

func maskWord(text, word string) string {
	wordRunes := []rune(word)
	stars := strings.Repeat("*", len(wordRunes))
	var builder strings.Builder
	for i := 0; i < len(text); {
		if width, ok := foldPrefix(text[i:], wordRunes); ok {
			builder.WriteString(stars)
			i += width
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		builder.WriteString(text[i : i+size])
		i += size
	}
	return builder.String()
}

// foldPrefix reports whether text begins with word under per-rune case
// folding, and how many bytes of text the match covers. All offsets come
// from text itself; lowercasing can change a rune's byte length.
func foldPrefix(text string, word []rune) (int, bool) {
	offset := 0
	for _, expected := range word {
		if offset >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[offset:])
		if unicode.ToLower(r) != unicode.ToLower(expected) {
			return 0, false
		}
		offset += size
	}
	return offset, true
}
