package server

import (
	"net/http"
	"testing"
	"time"
)

func TestAdminLogin(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"username": "admin", "password": "stream-admin-pass"}, requestOptions{})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected login success, got %d %s", recorder.Code, recorder.Body.String())
	}
	login := decodeData[loginResponsePayload](t, body.Data)
	if login.AccessToken == "" || login.TokenType != "Bearer" || login.Username != "admin" {
		t.Fatalf("unexpected login payload: %+v", login)
	}
	if login.ExpiresIn != 3600 {
		t.Fatalf("expected hour-long token, got %d", login.ExpiresIn)
	}

	// The issued token opens admin routes.
	recorder, _ = server.do(t, http.MethodDelete, "/api/active-users/cleanup", nil,
		requestOptions{token: login.AccessToken})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected issued token accepted, got %d", recorder.Code)
	}
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"username": "admin", "password": "wrong"}, requestOptions{})
	if recorder.Code != http.StatusUnauthorized || body.Error != "Invalid credentials" {
		t.Fatalf("expected 401 invalid credentials, got %d %q", recorder.Code, body.Error)
	}

	recorder, _ = server.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"username": "admin"}, requestOptions{})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", recorder.Code)
	}
}

func TestAdminRoutesRejectMissingOrBadTokens(t *testing.T) {
	server := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/news"},
		{http.MethodPatch, "/api/song-requests/some-id"},
		{http.MethodDelete, "/api/song-requests/some-id"},
		{http.MethodPost, "/api/stream-status"},
		{http.MethodDelete, "/api/live-comments/cleanup"},
	}
	for _, route := range paths {
		recorder, _ := server.do(t, route.method, route.path, map[string]any{}, requestOptions{})
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without token, got %d", route.method, route.path, recorder.Code)
		}
		recorder, _ = server.do(t, route.method, route.path, map[string]any{}, requestOptions{token: "garbage"})
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 with bad token, got %d", route.method, route.path, recorder.Code)
		}
	}
}

func TestSongRequestLifecycle(t *testing.T) {
	server := newTestServer(t)

	recorder, body := server.do(t, http.MethodPost, "/api/song-requests",
		map[string]any{"song_title": "Sitya Loss", "requester_name": "Okello", "artist": "Eddy Kenzo"},
		requestOptions{})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", recorder.Code, recorder.Body.String())
	}
	created := decodeData[map[string]any](t, body.Data)
	if created["status"] != "pending" {
		t.Fatalf("expected pending status, got %+v", created["status"])
	}
	id := created["id"].(string)

	// Admin marks it played.
	token := server.adminToken(t)
	recorder, body = server.do(t, http.MethodPatch, "/api/song-requests/"+id,
		map[string]any{"status": "played", "priority": 3}, requestOptions{token: token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected patch success, got %d %s", recorder.Code, recorder.Body.String())
	}
	updated := decodeData[map[string]any](t, body.Data)
	if updated["status"] != "played" || updated["priority"].(float64) != 3 {
		t.Fatalf("patch not applied: %+v", updated)
	}

	// Unknown fields in the payload never reach the row.
	recorder, body = server.do(t, http.MethodPatch, "/api/song-requests/"+id,
		map[string]any{"requester_name": "Mallory", "artist": "Juliana"}, requestOptions{token: token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected patch success, got %d", recorder.Code)
	}
	updated = decodeData[map[string]any](t, body.Data)
	if updated["requester_name"] != "Okello" {
		t.Fatalf("non-whitelisted field must not change, got %+v", updated["requester_name"])
	}
	if updated["artist"] != "Juliana" {
		t.Fatalf("whitelisted field should change, got %+v", updated["artist"])
	}

	recorder, _ = server.do(t, http.MethodDelete, "/api/song-requests/"+id, nil, requestOptions{token: token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected delete success, got %d", recorder.Code)
	}
	recorder, _ = server.do(t, http.MethodGet, "/api/song-requests/"+id, nil, requestOptions{})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", recorder.Code)
	}
}

func TestSongRequestRateLimit(t *testing.T) {
	server := newTestServer(t)

	for attempt := 1; attempt <= 3; attempt++ {
		recorder, _ := server.do(t, http.MethodPost, "/api/song-requests",
			map[string]any{"song_title": "Song", "requester_name": "Okello"}, requestOptions{})
		if recorder.Code != http.StatusCreated {
			t.Fatalf("request %d should be accepted, got %d", attempt, recorder.Code)
		}
		server.clock.Advance(time.Minute)
	}

	recorder, _ := server.do(t, http.MethodPost, "/api/song-requests",
		map[string]any{"song_title": "Song", "requester_name": "Okello"}, requestOptions{})
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected fourth request within the hour rejected, got %d", recorder.Code)
	}
}

func TestNewsPublicListingHidesDrafts(t *testing.T) {
	server := newTestServer(t)
	token := server.adminToken(t)

	recorder, _ := server.do(t, http.MethodPost, "/api/news",
		map[string]any{"title": "Draft post", "content": "not yet"}, requestOptions{token: token})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected draft created, got %d", recorder.Code)
	}
	recorder, body := server.do(t, http.MethodPost, "/api/news",
		map[string]any{"title": "Flood update", "content": "river rising", "published": true, "category": "weather"},
		requestOptions{token: token})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected post created, got %d", recorder.Code)
	}
	published := decodeData[map[string]any](t, body.Data)

	_, body = server.do(t, http.MethodGet, "/api/news", nil, requestOptions{})
	listed := decodeData[[]map[string]any](t, body.Data)
	if len(listed) != 1 || listed[0]["id"] != published["id"] {
		t.Fatalf("expected only the published post, got %+v", listed)
	}

	// View counter bumps through the public endpoint.
	id := published["id"].(string)
	recorder, _ = server.do(t, http.MethodPost, "/api/news/"+id+"/view", nil, requestOptions{})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected view recorded, got %d", recorder.Code)
	}
	_, body = server.do(t, http.MethodGet, "/api/news/"+id, nil, requestOptions{})
	fetched := decodeData[map[string]any](t, body.Data)
	if fetched["view_count"].(float64) != 1 {
		t.Fatalf("expected view count 1, got %+v", fetched["view_count"])
	}

	// Admin patch and delete.
	title := "Flood resolved"
	recorder, body = server.do(t, http.MethodPatch, "/api/news/"+id,
		map[string]any{"title": title}, requestOptions{token: token})
	if recorder.Code != http.StatusOK || decodeData[map[string]any](t, body.Data)["title"] != title {
		t.Fatalf("expected title updated, got %d %s", recorder.Code, recorder.Body.String())
	}
	recorder, _ = server.do(t, http.MethodDelete, "/api/news/"+id, nil, requestOptions{token: token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected delete success, got %d", recorder.Code)
	}
	recorder, _ = server.do(t, http.MethodGet, "/api/news/"+id, nil, requestOptions{})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", recorder.Code)
	}
}

func TestStreamStatusDefaultsAndRecording(t *testing.T) {
	server := newTestServer(t)

	_, body := server.do(t, http.MethodGet, "/api/stream-status?type=tv", nil, requestOptions{})
	status := decodeData[map[string]any](t, body.Data)
	if status["status"] != "online" || status["quality"] != "HD" || status["viewers"].(float64) != 245 {
		t.Fatalf("unexpected tv defaults: %+v", status)
	}

	recorder, _ := server.do(t, http.MethodGet, "/api/stream-status?type=podcast", nil, requestOptions{})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown type, got %d", recorder.Code)
	}

	_, body = server.do(t, http.MethodGet, "/api/stream-status", nil, requestOptions{})
	all := decodeData[map[string]map[string]any](t, body.Data)
	if len(all) != 2 || all["radio"]["quality"] != "128kbps" {
		t.Fatalf("unexpected combined status: %+v", all)
	}

	token := server.adminToken(t)
	recorder, body = server.do(t, http.MethodPost, "/api/stream-status",
		map[string]any{"type": "radio", "viewers": 99, "current_song": "Sitya Loss"},
		requestOptions{token: token})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected record success, got %d %s", recorder.Code, recorder.Body.String())
	}
	recorded := decodeData[map[string]any](t, body.Data)
	if recorded["viewers"].(float64) != 99 || recorded["current_song"] != "Sitya Loss" {
		t.Fatalf("unexpected recorded status: %+v", recorded)
	}

	recorder, _ = server.do(t, http.MethodPost, "/api/stream-status",
		map[string]any{"viewers": 99}, requestOptions{token: token})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing type, got %d", recorder.Code)
	}
}
