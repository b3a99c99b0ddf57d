package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandler(t *testing.T) {
	cfg := newTestConfig()
	cfg.CacheEnabled = true
	cfg.DatabaseEnabled = false
	handler := HealthHandler(cfg, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected status %v", body["status"])
	}
	services := body["services"].(map[string]interface{})
	if services["redis"] != "enabled" || services["postgres"] != "disabled" {
		t.Errorf("unexpected services %v", services)
	}
}

func TestStatusHandler_NoStatusYet(t *testing.T) {
	r, _ := newTestReconciler(newMockRiotAPI())
	handler := StatusHandler(r, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before the first cycle, got %d", w.Code)
	}
}

func TestStatusHandler_ServesCurrentStatus(t *testing.T) {
	r, _ := newTestReconciler(newMockRiotAPI())
	r.current = &ReconciledStatus{
		State:      StateInGame,
		StateLabel: "In Game",
		Champion:   "Darius",
		MatchID:    "EUN1_42",
	}
	handler := StatusHandler(r, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %s", ct)
	}

	var status ReconciledStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.State != StateInGame || status.Champion != "Darius" {
		t.Errorf("unexpected payload %+v", status)
	}
}

func TestStatusHandler_CORSPreflight(t *testing.T) {
	r, _ := newTestReconciler(newMockRiotAPI())
	handler := StatusHandler(r, newTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("preflight should short-circuit with 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %s", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRefreshHandler_MethodNotAllowed(t *testing.T) {
	r, _ := newTestReconciler(newMockRiotAPI())
	handler := RefreshHandler(r, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/refresh", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}
}

func TestRefreshHandler_RunsCycle(t *testing.T) {
	r, _ := newTestReconciler(newMockRiotAPI())
	handler := RefreshHandler(r, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var status ReconciledStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.State != StateIdle {
		t.Errorf("expected idle, got %s", status.State)
	}
	if r.Status() == nil {
		t.Error("the manual refresh must publish like a scheduled one")
	}
}

func TestRefreshHandler_RateLimited(t *testing.T) {
	r, _ := newTestReconciler(newMockRiotAPI())
	handler := RefreshHandler(r, denyingLimiter{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestHistoryHandler_Disabled(t *testing.T) {
	cfg := newTestConfig()
	cfg.DatabaseEnabled = false
	handler := HistoryHandler(nil, cfg, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("expected 501 when storage is off, got %d", w.Code)
	}
}

type stubStore struct {
	records []StatusRecord
	limit   int
}

func (s *stubStore) SaveIdentity(identity *PlayerIdentity) error { return nil }
func (s *stubStore) GetIdentity(region, gameName, tagLine string) (*PlayerIdentity, error) {
	return nil, NewNotFoundError("none")
}
func (s *stubStore) SaveStatus(cycleID string, status *ReconciledStatus) error { return nil }
func (s *stubStore) GetStatusHistory(limit int) ([]StatusRecord, error) {
	s.limit = limit
	return s.records, nil
}
func (s *stubStore) GetHistoryStats() (map[string]interface{}, error) {
	return map[string]interface{}{"total_rows": len(s.records)}, nil
}
func (s *stubStore) Close() {}

func TestHistoryHandler_LimitValidation(t *testing.T) {
	cfg := newTestConfig()
	cfg.DatabaseEnabled = true
	store := &stubStore{}
	handler := HistoryHandler(store, cfg, newTestLogger())

	for _, bad := range []string{"0", "-5", "501", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/history?limit="+bad, nil)
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", bad, w.Code)
		}
	}
}

func TestHistoryHandler_ReturnsRecords(t *testing.T) {
	cfg := newTestConfig()
	cfg.DatabaseEnabled = true
	store := &stubStore{
		records: []StatusRecord{
			{State: StateInGame, Champion: "Darius", CreatedAt: time.Now()},
		},
	}
	handler := HistoryHandler(store, cfg, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/history?limit=25", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.limit != 25 {
		t.Errorf("expected limit 25 passed through, got %d", store.limit)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["count"] != float64(1) {
		t.Errorf("unexpected count %v", body["count"])
	}
}

func TestMetricsHandler(t *testing.T) {
	mc := newTestMetrics()
	mc.RecordCycle(StateIdle, time.Second, 0, false)
	handler := MetricsHandler(mc, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := body["cycles"]; !ok {
		t.Error("expected a cycles section")
	}
}
