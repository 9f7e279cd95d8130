package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil, nil, nil, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if _, ok := body["storage"]; ok {
		t.Error("expected no storage field without a backend reporter")
	}
}

func TestHealthHandler_ReportsBackendCacheAndSessions(t *testing.T) {
	handler := NewHealthHandler(nil, func() string { return "badger" }, func() int { return 3 }, func() int { return 2 })

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["storage"] != "badger" {
		t.Errorf("expected storage badger, got %v", body["storage"])
	}
	if body["cache_entries"] != float64(3) {
		t.Errorf("expected cache_entries 3, got %v", body["cache_entries"])
	}
	if body["sessions"] != float64(2) {
		t.Errorf("expected sessions 2, got %v", body["sessions"])
	}
}

func TestHealthHandler_RejectsNonGET(t *testing.T) {
	handler := NewHealthHandler(nil, nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
	if allow := w.Header().Get("Allow"); allow != "GET" {
		t.Errorf("expected Allow GET, got %q", allow)
	}
}

func TestVersionHandler_ReturnsJSON(t *testing.T) {
	handler := NewVersionHandler(nil)

	req := httptest.NewRequest("GET", "/api/version", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if _, ok := body["version"]; !ok {
		t.Error("expected version field in response")
	}
	if _, ok := body["build"]; !ok {
		t.Error("expected build field in response")
	}
	if _, ok := body["git_commit"]; !ok {
		t.Error("expected git_commit field in response")
	}
}

func TestWriteError_UsesErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "bad thing")

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(body) != 1 || body["error"] != "bad thing" {
		t.Errorf("expected {error: bad thing}, got %v", body)
	}
}

func TestPathParam(t *testing.T) {
	cases := map[string]string{
		"/api/favorites/bitcoin":  "bitcoin",
		"/api/favorites/bitcoin/": "bitcoin",
		"/api/favorites/":         "",
		"/api/favorites/a/b":      "",
		"/api/other/bitcoin":      "",
	}
	for path, want := range cases {
		if got := PathParam(path, "/api/favorites/"); got != want {
			t.Errorf("PathParam(%q) = %q, want %q", path, got, want)
		}
	}
}
