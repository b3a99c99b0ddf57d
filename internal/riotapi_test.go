package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestRiotClient(serverURL string, client *http.Client) *RiotAPIClient {
	c := NewRiotAPIClient(newTestConfig(), nil, newTestLogger(), nil)
	c.platformURL = serverURL
	c.clusterURL = serverURL
	if client != nil {
		c.client = client
	}
	return c
}

func TestNewRiotAPIClient_URLs(t *testing.T) {
	c := NewRiotAPIClient(newTestConfig(), nil, newTestLogger(), nil)

	if c.platformURL != "https://eun1.api.riotgames.com" {
		t.Errorf("unexpected platform url %s", c.platformURL)
	}
	if c.clusterURL != "https://europe.api.riotgames.com" {
		t.Errorf("unexpected cluster url %s", c.clusterURL)
	}
}

func TestDoRequest_SetsRiotToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "test-key" {
			t.Error("missing or incorrect riot token header")
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	data, err := c.doRequest(context.Background(), "test", server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(string(data), "ok") {
		t.Errorf("unexpected body %s", data)
	}
}

func TestDoRequest_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusUnauthorized, IsAuthError, "auth"},
		{http.StatusForbidden, IsAuthError, "auth"},
		{http.StatusNotFound, IsNotFoundError, "not_found"},
		{http.StatusTooManyRequests, IsRateLimitError, "rate_limited"},
		{http.StatusInternalServerError, IsTransientError, "transient"},
		{http.StatusServiceUnavailable, IsTransientError, "transient"},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte("error body"))
		}))

		c := newTestRiotClient(server.URL, server.Client())
		_, err := c.doRequest(context.Background(), "test", server.URL)
		server.Close()

		if err == nil {
			t.Errorf("status %d: expected an error", tt.status)
			continue
		}
		if !tt.check(err) {
			t.Errorf("status %d: expected %s, got %v", tt.status, tt.name, err)
		}
	}
}

func TestDoRequest_LocalRateLimitDenied(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())
	c.limiter = denyingLimiter{}

	_, err := c.doRequest(context.Background(), "test", server.URL)
	if !IsRateLimitError(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if called {
		t.Error("the upstream must not be called when the local budget is exhausted")
	}
}

type denyingLimiter struct{}

func (denyingLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, nil
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, NewTransientError("redis down", nil)
}

func TestDoRequest_LimiterBackendFailureDoesNotBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())
	c.limiter = brokenLimiter{}

	if _, err := c.doRequest(context.Background(), "test", server.URL); err != nil {
		t.Fatalf("a broken limiter backend must not drop the call: %v", err)
	}
}

func TestGetAccountByRiotID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/riot/account/v1/accounts/by-riot-id/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(AccountData{PUUID: "p-1", GameName: "DariusTFox", TagLine: "EUNE"})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	account, err := c.GetAccountByRiotID(context.Background(), "DariusTFox", "EUNE")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account.PUUID != "p-1" {
		t.Errorf("unexpected puuid %s", account.PUUID)
	}
}

func TestGetAccountByRiotID_EmptyGameName(t *testing.T) {
	c := NewRiotAPIClient(newTestConfig(), nil, newTestLogger(), nil)

	_, err := c.GetAccountByRiotID(context.Background(), "", "EUNE")
	if !IsNotFoundError(err) {
		t.Fatalf("expected not-found error without a network call, got %v", err)
	}
}

func TestGetAccountByRiotID_MissingPUUID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AccountData{GameName: "DariusTFox"})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	_, err := c.GetAccountByRiotID(context.Background(), "DariusTFox", "EUNE")
	if !IsInconsistentError(err) {
		t.Fatalf("expected inconsistent-state error, got %v", err)
	}
}

func TestGetAccountByRiotID_EscapesPathSegments(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(AccountData{PUUID: "p-1"})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	if _, err := c.GetAccountByRiotID(context.Background(), "Name With Space", "EUNE"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(gotPath, "Name%20With%20Space") {
		t.Errorf("expected escaped game name in path, got %s", gotPath)
	}
}

func TestGetActiveGame_Path(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lol/spectator/v5/active-games/by-summoner/p-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(CurrentGameInfo{GameID: 1})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	game, err := c.GetActiveGame(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if game.GameID != 1 {
		t.Errorf("unexpected game id %d", game.GameID)
	}
}

func TestGetMatchIDs_CountParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "10" {
			t.Errorf("unexpected count %s", r.URL.Query().Get("count"))
		}
		json.NewEncoder(w).Encode([]string{"EUN1_2", "EUN1_1"})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	ids, err := c.GetMatchIDs(context.Background(), "p-1", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ids) != 2 || ids[0] != "EUN1_2" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestGetLeagueEntriesByPUUID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lol/league/v4/entries/by-puuid/p-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]LeagueEntry{{QueueType: QueueSoloDuo, Tier: "GOLD"}})
	}))
	defer server.Close()

	c := newTestRiotClient(server.URL, server.Client())

	entries, err := c.GetLeagueEntriesByPUUID(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 1 || entries[0].Tier != "GOLD" {
		t.Errorf("unexpected entries %v", entries)
	}
}
