package internal

import (
	"context"
	"time"
)

// RiotAPI is the upstream surface the reconciler depends on.
type RiotAPI interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountData, error)
	GetSummonerByPUUID(ctx context.Context, puuid string) (*Summoner, error)
	GetActiveGame(ctx context.Context, puuid string) (*CurrentGameInfo, error)
	GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error)
	GetMatchByID(ctx context.Context, matchID string) (*MatchData, error)
	GetLeagueEntriesByPUUID(ctx context.Context, puuid string) ([]LeagueEntry, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Cache interface {
	Get(ctx context.Context, key string, result interface{}) error
	Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error
	Key(parts ...string) string
	GetIdentity(ctx context.Context, region, gameName, tagLine string) (*PlayerIdentity, error)
	SetIdentity(ctx context.Context, identity *PlayerIdentity) error
	GetMatchSummary(ctx context.Context, puuid string) (*MatchSummary, error)
	SetMatchSummary(ctx context.Context, puuid string, summary *MatchSummary) error
	GetRankedStanding(ctx context.Context, puuid string) (*RankedStanding, error)
	SetRankedStanding(ctx context.Context, puuid string, standing RankedStanding) error
}

type StatusStore interface {
	SaveIdentity(identity *PlayerIdentity) error
	GetIdentity(region, gameName, tagLine string) (*PlayerIdentity, error)
	SaveStatus(cycleID string, status *ReconciledStatus) error
	GetStatusHistory(limit int) ([]StatusRecord, error)
	GetHistoryStats() (map[string]interface{}, error)
	Close()
}

type Publisher interface {
	PublishStatusChanged(event StatusEvent) error
	PublishMatchCompleted(event MatchEvent) error
}
