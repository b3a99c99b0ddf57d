package internal

import (
	"context"
	"testing"
)

func TestComputeKDA(t *testing.T) {
	tests := []struct {
		kills, deaths, assists int
		expected               float64
	}{
		{5, 0, 3, 8.0},
		{3, 2, 4, 3.5},
		{0, 0, 0, 0.0},
		{10, 3, 7, 5.67},
		{1, 7, 2, 0.43},
	}

	for _, tt := range tests {
		if got := ComputeKDA(tt.kills, tt.deaths, tt.assists); got != tt.expected {
			t.Errorf("ComputeKDA(%d,%d,%d): expected %v, got %v",
				tt.kills, tt.deaths, tt.assists, tt.expected, got)
		}
	}
}

func TestComputeWinRate(t *testing.T) {
	tests := []struct {
		wins, losses int
		expected     float64
	}{
		{7, 3, 70.0},
		{0, 0, 0.0},
		{1, 2, 33.3},
		{10, 0, 100.0},
		{0, 5, 0.0},
	}

	for _, tt := range tests {
		if got := ComputeWinRate(tt.wins, tt.losses); got != tt.expected {
			t.Errorf("ComputeWinRate(%d,%d): expected %v, got %v",
				tt.wins, tt.losses, tt.expected, got)
		}
	}
}

func TestFetchLatestMatch_NoHistory(t *testing.T) {
	riot := newMockRiotAPI()
	r, _ := newTestReconciler(riot)

	summary, err := r.fetchLatestMatch(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary != nil {
		t.Error("expected nil summary for an empty history")
	}
	if riot.callCount("match_by_id") != 0 {
		t.Error("no detail fetch without match ids")
	}
}

func TestFetchLatestMatch_NotFoundHistoryIsNotAnError(t *testing.T) {
	riot := newMockRiotAPI()
	riot.matchIDsFn = func(string, int) ([]string, error) {
		return nil, NewNotFoundError("no matches")
	}
	r, _ := newTestReconciler(riot)

	summary, err := r.fetchLatestMatch(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("a 404 history should degrade silently, got %v", err)
	}
	if summary != nil {
		t.Error("expected nil summary")
	}
}

func TestFetchLatestMatch_SummarizesParticipant(t *testing.T) {
	riot := newMockRiotAPI()
	riot.matchIDsFn = func(string, int) ([]string, error) {
		return []string{"EUN1_77", "EUN1_76"}, nil
	}
	riot.matchByIDFn = func(matchID string) (*MatchData, error) {
		match := matchDataFor("test-puuid", matchID)
		p := &match.Info.Participants[0]
		p.GoldEarned = 12000
		p.TotalMinionsKilled = 180
		p.NeutralMinionsKilled = 20
		p.Item0 = 3071
		p.Item3 = 3065
		return match, nil
	}
	r, _ := newTestReconciler(riot)

	summary, err := r.fetchLatestMatch(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.MatchID != "EUN1_77" {
		t.Errorf("expected the newest id, got %s", summary.MatchID)
	}
	if summary.KDA != 6.0 {
		t.Errorf("expected kda 6.0, got %v", summary.KDA)
	}
	if summary.CreepScore != 200 {
		t.Errorf("expected creep score 200, got %d", summary.CreepScore)
	}
	if len(summary.Items) != 2 {
		t.Errorf("expected 2 items, got %v", summary.Items)
	}
	if !summary.Win {
		t.Error("expected a win")
	}
}

func TestFetchLatestMatch_CachedIDSkipsDetailFetch(t *testing.T) {
	riot := newMockRiotAPI()
	riot.matchIDsFn = func(string, int) ([]string, error) {
		return []string{"EUN1_55"}, nil
	}
	riot.matchByIDFn = func(matchID string) (*MatchData, error) {
		return matchDataFor("test-puuid", matchID), nil
	}
	r, _ := newTestReconciler(riot)

	first, err := r.fetchLatestMatch(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	r.lastMatch = first

	second, err := r.fetchLatestMatch(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if second != first {
		t.Error("expected the cached summary back")
	}
	if riot.callCount("match_by_id") != 1 {
		t.Errorf("expected one detail fetch, got %d", riot.callCount("match_by_id"))
	}
}

func TestSummarizeMatch_MissingParticipant(t *testing.T) {
	match := matchDataFor("someone-else", "EUN1_9")

	_, err := summarizeMatch(match, "test-puuid")
	if !IsInconsistentError(err) {
		t.Fatalf("expected inconsistent-state error, got %v", err)
	}
}

func TestFetchRankedStanding_SoloQueueSelected(t *testing.T) {
	riot := newMockRiotAPI()
	riot.leagueFn = func(string) ([]LeagueEntry, error) {
		return []LeagueEntry{
			{QueueType: "RANKED_FLEX_SR", Tier: "GOLD", Rank: "I", Wins: 1, Losses: 1},
			{QueueType: QueueSoloDuo, Tier: "PLATINUM", Rank: "II", LeaguePoints: 54, Wins: 7, Losses: 3},
		}, nil
	}
	r, _ := newTestReconciler(riot)

	standing, err := r.fetchRankedStanding(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if standing.Tier != "PLATINUM" || standing.Division != "II" {
		t.Errorf("unexpected standing %+v", standing)
	}
	if standing.WinRatePercent != 70.0 {
		t.Errorf("expected win rate 70.0, got %v", standing.WinRatePercent)
	}
	if standing.Rank() != "PLATINUM II" {
		t.Errorf("unexpected rank string %s", standing.Rank())
	}
}

func TestFetchRankedStanding_UnrankedSentinel(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) ([]LeagueEntry, error)
	}{
		{"no entries", func(string) ([]LeagueEntry, error) { return nil, nil }},
		{"not found", func(string) ([]LeagueEntry, error) { return nil, NewNotFoundError("none") }},
		{"flex only", func(string) ([]LeagueEntry, error) {
			return []LeagueEntry{{QueueType: "RANKED_FLEX_SR", Tier: "GOLD"}}, nil
		}},
	}

	for _, tt := range tests {
		riot := newMockRiotAPI()
		riot.leagueFn = tt.fn
		r, _ := newTestReconciler(riot)

		standing, err := r.fetchRankedStanding(context.Background(), testIdentity())
		if err != nil {
			t.Errorf("%s: expected no error, got %v", tt.name, err)
		}
		if standing.Tier != UnrankedTier {
			t.Errorf("%s: expected the unranked sentinel, got %s", tt.name, standing.Tier)
		}
		if standing.Rank() != UnrankedTier {
			t.Errorf("%s: unexpected rank string %s", tt.name, standing.Rank())
		}
	}
}

func TestFetchRankedStanding_ErrorStillReturnsSentinel(t *testing.T) {
	riot := newMockRiotAPI()
	riot.leagueFn = func(string) ([]LeagueEntry, error) {
		return nil, NewTransientError("upstream down", nil)
	}
	r, _ := newTestReconciler(riot)

	standing, err := r.fetchRankedStanding(context.Background(), testIdentity())
	if err == nil {
		t.Fatal("expected the error back for logging")
	}
	if standing.Tier != UnrankedTier {
		t.Errorf("the standing itself must stay the sentinel, got %s", standing.Tier)
	}
}

func TestFetchSummonerLevel(t *testing.T) {
	riot := newMockRiotAPI()
	r, _ := newTestReconciler(riot)

	level, err := r.fetchSummonerLevel(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if level != 150 {
		t.Errorf("expected level 150, got %d", level)
	}

	riot.summonerFn = func(string) (*Summoner, error) {
		return nil, NewTransientError("down", nil)
	}
	level, err = r.fetchSummonerLevel(context.Background(), testIdentity())
	if err == nil {
		t.Fatal("expected an error")
	}
	if level != 0 {
		t.Errorf("expected 0 on failure, got %d", level)
	}
}
