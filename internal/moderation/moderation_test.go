package moderation

import (
	"errors"
	"testing"
	"unicode/utf8"
)

func TestRejectPolicyRefusesBannedSubstring(t *testing.T) {
	filter := NewFilter(PolicyReject, CommentBannedWords)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "clean text passes", input: "great show tonight", wantErr: false},
		{name: "banned word rejected", input: "this is spam", wantErr: true},
		{name: "case insensitive", input: "SPAM alert", wantErr: true},
		{name: "embedded substring rejected", input: "antispammer", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := filter.Apply(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrBannedContent) {
					t.Fatalf("expected ErrBannedContent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tc.input {
				t.Fatalf("reject policy must not alter accepted text, got %q", out)
			}
		})
	}
}

func TestMaskPolicyStarsOutBannedWords(t *testing.T) {
	filter := NewFilter(PolicyMask, ChatBannedWords)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean text unchanged", input: "hello from Lira", want: "hello from Lira"},
		{name: "single word masked", input: "stop the spam please", want: "stop the **** please"},
		{name: "mixed case masked", input: "Spam and SCAM", want: "**** and ****"},
		{name: "repeated word masked", input: "bot bot bot", want: "*** *** ***"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := filter.Apply(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, out)
			}
		})
	}
}

func TestMaskPolicyHandlesLengthChangingRunes(t *testing.T) {
	filter := NewFilter(PolicyMask, ChatBannedWords)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		// U+023A grows from 2 to 3 bytes when lowercased.
		{name: "rune that grows when lowercased", input: "Ⱥspam", want: "Ⱥ****"},
		// U+0130 shrinks from 2 bytes to 1 when lowercased.
		{name: "dotted capital I before a match", input: "İspam", want: "İ****"},
		{name: "emoji around a match", input: "🔥spam🔥", want: "🔥****🔥"},
		{name: "multibyte text without a match", input: "Ⱥİ🔥 hello", want: "Ⱥİ🔥 hello"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := filter.Apply(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, out)
			}
			if !utf8.ValidString(out) {
				t.Fatalf("masked text is not valid UTF-8: %q", out)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	if policy, err := ParsePolicy(" Mask "); err != nil || policy != PolicyMask {
		t.Fatalf("expected mask policy, got %q err %v", policy, err)
	}
	if policy, err := ParsePolicy("reject"); err != nil || policy != PolicyReject {
		t.Fatalf("expected reject policy, got %q err %v", policy, err)
	}
	if _, err := ParsePolicy("censor"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestNilFilterPassesThrough(t *testing.T) {
	var filter *Filter
	out, err := filter.Apply("anything")
	if err != nil || out != "anything" {
		t.Fatalf("nil filter should pass text through, got %q err %v", out, err)
	}
}
