package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/streakforge/streakforge/internal/award"
	"github.com/streakforge/streakforge/internal/catalog"
	"github.com/streakforge/streakforge/internal/celebrate"
	"github.com/streakforge/streakforge/internal/engine"
	"github.com/streakforge/streakforge/internal/notify"
	"github.com/streakforge/streakforge/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()

	cat := catalog.Default()
	ledger, err := award.Open(filepath.Join(dir, "ledger.json"), cat)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	snapshotPath := filepath.Join(dir, "streaks.json")
	streaks := `{"streaks": {
		"@maya": {"current": 8, "best": 8, "last_active": "2026-08-30"},
		"@sam":  {"current": 1, "best": 1, "last_active": "2026-08-31"}
	}}`
	if err := os.WriteFile(snapshotPath, []byte(streaks), 0600); err != nil {
		t.Fatal(err)
	}

	eng := engine.New(cat, ledger, celebrate.NewGate(db), notify.NewService())
	return New(Config{
		Host:         "localhost",
		Port:         0,
		Engine:       eng,
		Notifier:     notify.NewService(),
		SnapshotPath: snapshotPath,
	})
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestHandleGetBadges(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/badges")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	badges, ok := body["badges"].([]interface{})
	if !ok {
		t.Fatal("expected badges array")
	}
	if len(badges) != 9 {
		t.Errorf("expected 9 badge definitions, got %d", len(badges))
	}
}

func TestHandleRunCheck_AwardsAndIsIdempotent(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/check")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	// @maya (best 8): first_day, early_bird, week_warrior; @sam: first_day
	if got := body["badges_awarded"].(float64); got != 4 {
		t.Errorf("badges_awarded = %v, want 4", got)
	}

	// Second run awards nothing
	rec = doRequest(t, s, http.MethodPost, "/api/v1/check")
	body = decodeBody(t, rec)
	if got := body["badges_awarded"].(float64); got != 0 {
		t.Errorf("second run badges_awarded = %v, want 0", got)
	}
}

func TestHandleGetUserBadges(t *testing.T) {
	s := testServer(t)
	doRequest(t, s, http.MethodPost, "/api/v1/check")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/users/@maya/badges")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["user"] != "@maya" {
		t.Errorf("user = %v, want @maya", body["user"])
	}
	// 10 + 25 + 50
	if got := body["points"].(float64); got != 85 {
		t.Errorf("points = %v, want 85", got)
	}
	if body["rank"] != "Creator" {
		t.Errorf("rank = %v, want Creator", body["rank"])
	}
}

func TestHandleGetUserBadges_UnknownUser(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/users/@nobody/badges")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unknown user", rec.Code)
	}

	body := decodeBody(t, rec)
	if got := body["points"].(float64); got != 0 {
		t.Errorf("points = %v, want 0", got)
	}
}

func TestHandleGetLeaderboard(t *testing.T) {
	s := testServer(t)
	doRequest(t, s, http.MethodPost, "/api/v1/check")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/leaderboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	board := body["leaderboard"].([]interface{})
	if len(board) != 2 {
		t.Fatalf("expected 2 leaderboard entries, got %d", len(board))
	}
	top := board[0].(map[string]interface{})
	if top["user"] != "@maya" {
		t.Errorf("top entry = %v, want @maya", top["user"])
	}
}

func TestCelebrationFlow(t *testing.T) {
	s := testServer(t)
	doRequest(t, s, http.MethodPost, "/api/v1/check")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/celebrations/pending")
	body := decodeBody(t, rec)
	pending := body["pending"].([]interface{})
	if len(pending) != 4 {
		t.Fatalf("expected 4 pending celebrations, got %d", len(pending))
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/celebrations/@sam/first_day/ack")
	if rec.Code != http.StatusOK {
		t.Fatalf("ack status = %d, want 200", rec.Code)
	}

	// Re-ack is a no-op, not an error
	rec = doRequest(t, s, http.MethodPost, "/api/v1/celebrations/@sam/first_day/ack")
	if rec.Code != http.StatusOK {
		t.Fatalf("re-ack status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/celebrations/pending")
	body = decodeBody(t, rec)
	pending = body["pending"].([]interface{})
	if len(pending) != 3 {
		t.Errorf("expected 3 pending after ack, got %d", len(pending))
	}
}

func TestHandleAckCelebration_NoSuchAward(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/celebrations/@maya/century_club/ack")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unearned badge", rec.Code)
	}
}

func TestHandleGetHealth(t *testing.T) {
	s := testServer(t)
	doRequest(t, s, http.MethodPost, "/api/v1/check")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if _, ok := body["community_health"].(float64); !ok {
		t.Error("expected community_health number")
	}
	if _, ok := body["at_risk"].([]interface{}); !ok {
		t.Error("expected at_risk array")
	}
}

func TestHandleGetStatus(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if got := body["badges_defined"].(float64); got != 9 {
		t.Errorf("badges_defined = %v, want 9", got)
	}
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	hub := NewWebSocketHub()

	// No clients: broadcast must not block
	hub.Broadcast(WebSocketMessage{Type: "celebration"})

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}
