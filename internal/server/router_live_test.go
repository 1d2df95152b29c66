package server

import (
	"net/http"
	"testing"
	"time"
)

type commentListData struct {
	Comments    []commentPayload `json:"comments"`
	LastUpdated int64            `json:"last_updated"`
}

type reactionListData struct {
	Reactions   []reactionPayload `json:"reactions"`
	LastUpdated int64             `json:"last_updated"`
}

func TestCommentSubmitAndListByChannel(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Amy", "comment": "great show", "stream_type": "radio", "user_session": "s1"},
		requestOptions{})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", recorder.Code, recorder.Body.String())
	}
	created := decodeData[commentPayload](t, body.Data)
	if created.Comment != "great show" || created.StreamType != "radio" {
		t.Fatalf("unexpected comment: %+v", created)
	}

	_, body = server.do(t, http.MethodGet, "/api/live-comments/radio", nil, requestOptions{})
	listed := decodeData[commentListData](t, body.Data)
	if len(listed.Comments) != 1 || listed.Comments[0].ID != created.ID {
		t.Fatalf("expected the comment on the radio channel, got %+v", listed.Comments)
	}

	_, body = server.do(t, http.MethodGet, "/api/live-comments", nil, requestOptions{})
	listed = decodeData[commentListData](t, body.Data)
	if len(listed.Comments) != 1 {
		t.Fatalf("expected the comment in the global listing, got %+v", listed.Comments)
	}
}

func TestCommentSubmitRejectsBannedContent(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Amy", "comment": "this is spam", "user_session": "s1"}, requestOptions{})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if body.Error != "Message contains inappropriate content" {
		t.Fatalf("unexpected error message: %q", body.Error)
	}
}

func TestCommentRateLimitPerSession(t *testing.T) {
	server := newTestServer(t)

	recorder, _ := server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Amy", "comment": "first", "user_session": "s1"}, requestOptions{})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected first comment accepted, got %d", recorder.Code)
	}

	recorder, _ = server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Amy", "comment": "second", "user_session": "s1"}, requestOptions{})
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second comment within 10s rejected, got %d", recorder.Code)
	}

	// A different session has its own budget.
	recorder, _ = server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Ben", "comment": "hello", "user_session": "s2"}, requestOptions{})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected other session accepted, got %d", recorder.Code)
	}

	server.clock.Advance(11 * time.Second)
	recorder, _ = server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Amy", "comment": "third", "user_session": "s1"}, requestOptions{})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected recovery after the window, got %d", recorder.Code)
	}
}

func TestCommentDeleteRequiresAdmin(t *testing.T) {
	server := newTestServer(t)

	_, body := server.do(t, http.MethodPost, "/api/live-comments",
		map[string]any{"username": "Amy", "comment": "remove me", "user_session": "s1"}, requestOptions{})
	created := decodeData[commentPayload](t, body.Data)

	recorder, _ := server.do(t, http.MethodDelete, "/api/live-comments/"+created.ID, nil, requestOptions{})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}

	token := server.adminToken(t)
	recorder, _ = server.do(t, http.MethodDelete, "/api/live-comments/"+created.ID, nil, requestOptions{token: token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected delete with token, got %d", recorder.Code)
	}

	recorder, _ = server.do(t, http.MethodDelete, "/api/live-comments/"+created.ID, nil, requestOptions{token: token})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a removed comment, got %d", recorder.Code)
	}
}

func TestStreamReactionSixthWithinMinuteRejected(t *testing.T) {
	server := newTestServer(t)

	for attempt := 1; attempt <= 5; attempt++ {
		recorder, _ := server.do(t, http.MethodPost, "/api/reactions",
			map[string]any{"type": "🔥", "stream_type": "radio"}, requestOptions{})
		if recorder.Code != http.StatusOK {
			t.Fatalf("reaction %d should be accepted, got %d", attempt, recorder.Code)
		}
	}

	recorder, _ := server.do(t, http.MethodPost, "/api/reactions",
		map[string]any{"type": "🔥", "stream_type": "radio"}, requestOptions{})
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected sixth reaction rejected with 429, got %d", recorder.Code)
	}
}

func TestStreamReactionSummaryCountsSymbols(t *testing.T) {
	server := newTestServer(t)

	for _, symbol := range []string{"🔥", "🔥", "👍"} {
		recorder, _ := server.do(t, http.MethodPost, "/api/reactions",
			map[string]any{"type": symbol, "stream_type": "tv"}, requestOptions{})
		if recorder.Code != http.StatusOK {
			t.Fatalf("reaction rejected with %d", recorder.Code)
		}
	}

	_, body := server.do(t, http.MethodGet, "/api/reactions?stream_type=tv", nil, requestOptions{})
	summary := decodeData[map[string]any](t, body.Data)
	if summary["🔥"].(float64) != 2 || summary["👍"].(float64) != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary["total"].(float64) != 3 {
		t.Fatalf("unexpected total: %+v", summary["total"])
	}
	if summary["😂"].(float64) != 0 {
		t.Fatalf("expected zero default for unused symbols")
	}
}

func TestStreamReactionRejectsUnknownSymbol(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/reactions",
		map[string]any{"type": "💀", "stream_type": "tv"}, requestOptions{})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if body.Error != "Invalid reaction type" {
		t.Fatalf("unexpected error: %q", body.Error)
	}

	recorder, body = server.do(t, http.MethodPost, "/api/reactions",
		map[string]any{"stream_type": "tv"}, requestOptions{})
	if recorder.Code != http.StatusBadRequest || body.Error != "Missing reaction type" {
		t.Fatalf("expected missing-type rejection, got %d %q", recorder.Code, body.Error)
	}
}

func TestLiveReactionSubmitAndList(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/live-reactions",
		map[string]any{"reaction_type": "🎵", "stream_type": "radio", "user_session": "s1"}, requestOptions{})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", recorder.Code, recorder.Body.String())
	}
	created := decodeData[reactionPayload](t, body.Data)
	if created.ReactionType != "🎵" {
		t.Fatalf("unexpected reaction: %+v", created)
	}

	// Second reaction within two seconds from the same session is refused.
	recorder, _ = server.do(t, http.MethodPost, "/api/live-reactions",
		map[string]any{"reaction_type": "🔥", "stream_type": "radio", "user_session": "s1"}, requestOptions{})
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 within the 2s window, got %d", recorder.Code)
	}

	_, body = server.do(t, http.MethodGet, "/api/live-reactions/radio", nil, requestOptions{})
	listed := decodeData[reactionListData](t, body.Data)
	if len(listed.Reactions) != 1 || listed.Reactions[0].ID != created.ID {
		t.Fatalf("expected one reaction listed, got %+v", listed.Reactions)
	}
}
