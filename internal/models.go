package internal

import "time"

// PlayerState is the reconciled activity bucket for the tracked player.
type PlayerState string

const (
	StateUnknown        PlayerState = "unknown"
	StateInGame         PlayerState = "in_game"
	StateRecentlyPlayed PlayerState = "recently_played"
	StateIdle           PlayerState = "idle"
	StateOffline        PlayerState = "offline"
)

var stateLabels = map[PlayerState]string{
	StateUnknown:        "Unknown",
	StateInGame:         "In Game",
	StateRecentlyPlayed: "Played Recently",
	StateIdle:           "Touching Grass",
	StateOffline:        "Offline",
}

// Label returns the human-readable form used by the HTTP surface.
func (s PlayerState) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return stateLabels[StateUnknown]
}

// PlayerIdentity is the resolved identity of the tracked player.
// The PUUID is resolved lazily, written once, and treated as valid for
// the process lifetime unless an auth/identity error invalidates it.
type PlayerIdentity struct {
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
	Region   string `json:"region"`
	PUUID    string `json:"puuid"`
}

func (id *PlayerIdentity) RiotID() string {
	if id.TagLine == "" {
		return id.GameName
	}
	return id.GameName + "#" + id.TagLine
}

// LiveGameSnapshot holds the current game as seen by the spectator
// endpoint. Rebuilt from scratch every cycle the player is in game.
type LiveGameSnapshot struct {
	MatchID          string    `json:"matchId"`
	ChampionID       int       `json:"championId"`
	ChampionName     string    `json:"championName"`
	QueueID          int       `json:"queueId"`
	QueueName        string    `json:"queueName"`
	MapID            int       `json:"mapId"`
	MapName          string    `json:"mapName"`
	GameMode         string    `json:"gameMode"`
	GameType         string    `json:"gameType"`
	GameStartEpochMs int64     `json:"gameStartEpochMs"`
	GameLengthSec    int64     `json:"gameLengthSeconds"`
	ObservedAt       time.Time `json:"observedAt"`
}

// MatchSummary is the player's view of a completed match. Cached across
// cycles and replaced only when a newer match id shows up.
type MatchSummary struct {
	MatchID       string  `json:"matchId"`
	Champion      string  `json:"champion"`
	ChampionLevel int     `json:"championLevel"`
	Kills         int     `json:"kills"`
	Deaths        int     `json:"deaths"`
	Assists       int     `json:"assists"`
	KDA           float64 `json:"kda"`
	Win           bool    `json:"win"`
	GameMode      string  `json:"gameMode"`
	GameType      string  `json:"gameType"`
	QueueID       int     `json:"queueId"`
	DurationSec   int64   `json:"gameDurationSeconds"`
	StartEpochMs  int64   `json:"startEpochMs"`
	EndEpochMs    int64   `json:"endEpochMs"`
	DamageDealt   int     `json:"damageDealt"`
	DamageTaken   int     `json:"damageTaken"`
	GoldEarned    int     `json:"goldEarned"`
	CreepScore    int     `json:"creepScore"`
	VisionScore   int     `json:"visionScore"`
	Items         []int   `json:"items"`
}

// RankedStanding is the solo/duo queue standing. Never nil: failures
// and unranked players get the sentinel from UnrankedStanding.
type RankedStanding struct {
	Tier           string  `json:"tier"`
	Division       string  `json:"division"`
	LeaguePoints   int     `json:"leaguePoints"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRatePercent float64 `json:"winRatePercent"`
}

const UnrankedTier = "Unranked"

func UnrankedStanding() RankedStanding {
	return RankedStanding{Tier: UnrankedTier}
}

func (r RankedStanding) Rank() string {
	if r.Tier == "" || r.Tier == UnrankedTier {
		return UnrankedTier
	}
	if r.Division == "" {
		return r.Tier
	}
	return r.Tier + " " + r.Division
}

// ReconciledStatus is the single output record of a refresh cycle.
// Always built fresh from the cycle's fetch results; never mutated in
// place after publication.
type ReconciledStatus struct {
	State      PlayerState `json:"state"`
	StateLabel string      `json:"stateLabel"`

	// Primary fields: live snapshot when in game, last match otherwise.
	Champion  string  `json:"champion"`
	MatchID   string  `json:"matchId"`
	GameMode  string  `json:"gameMode"`
	QueueName string  `json:"queueName"`
	MapName   string  `json:"mapName"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	Assists   int     `json:"assists"`
	KDA       float64 `json:"kda"`

	Live *LiveGameSnapshot `json:"live,omitempty"`

	// Last completed match, always attached when known.
	LatestMatch *MatchSummary `json:"latestMatch,omitempty"`

	Ranked        RankedStanding `json:"ranked"`
	SummonerLevel int            `json:"summonerLevel"`

	DesiredInterval time.Duration `json:"desiredInterval"`
	LastUpdated     time.Time     `json:"lastUpdated"`
	Error           string        `json:"error,omitempty"`
}

// Riot API payloads.

type AccountData struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type Summoner struct {
	ID            string `json:"id"`
	AccountID     string `json:"accountId"`
	PUUID         string `json:"puuid"`
	ProfileIconID int    `json:"profileIconId"`
	RevisionDate  int64  `json:"revisionDate"`
	SummonerLevel int    `json:"summonerLevel"`
}

type CurrentGameInfo struct {
	GameID            int64                    `json:"gameId"`
	GameType          string                   `json:"gameType"`
	GameStartTime     int64                    `json:"gameStartTime"`
	MapID             int                      `json:"mapId"`
	GameLength        int64                    `json:"gameLength"`
	GameMode          string                   `json:"gameMode"`
	GameQueueConfigID int                      `json:"gameQueueConfigId"`
	Participants      []CurrentGameParticipant `json:"participants"`
}

type CurrentGameParticipant struct {
	PUUID        string `json:"puuid"`
	SummonerID   string `json:"summonerId"`
	SummonerName string `json:"summonerName"`
	RiotID       string `json:"riotId"`
	ChampionID   int    `json:"championId"`
	ChampionName string `json:"championName"`
	TeamID       int    `json:"teamId"`
}

type LeagueEntry struct {
	LeagueID     string `json:"leagueId"`
	PUUID        string `json:"puuid"`
	SummonerID   string `json:"summonerId"`
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	HotStreak    bool   `json:"hotStreak"`
	Veteran      bool   `json:"veteran"`
	FreshBlood   bool   `json:"freshBlood"`
	Inactive     bool   `json:"inactive"`
}

const QueueSoloDuo = "RANKED_SOLO_5x5"

type MatchData struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type MatchInfo struct {
	GameMode           string             `json:"gameMode"`
	GameType           string             `json:"gameType"`
	QueueID            int                `json:"queueId"`
	GameDuration       int64              `json:"gameDuration"`
	GameStartTimestamp int64              `json:"gameStartTimestamp"`
	GameEndTimestamp   int64              `json:"gameEndTimestamp"`
	Participants       []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	PUUID                       string `json:"puuid"`
	ChampionID                  int    `json:"championId"`
	ChampionName                string `json:"championName"`
	ChampLevel                  int    `json:"champLevel"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	Win                         bool   `json:"win"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	TotalDamageTaken            int    `json:"totalDamageTaken"`
	GoldEarned                  int    `json:"goldEarned"`
	TotalMinionsKilled          int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int    `json:"neutralMinionsKilled"`
	VisionScore                 int    `json:"visionScore"`
	Item0                       int    `json:"item0"`
	Item1                       int    `json:"item1"`
	Item2                       int    `json:"item2"`
	Item3                       int    `json:"item3"`
	Item4                       int    `json:"item4"`
	Item5                       int    `json:"item5"`
	Item6                       int    `json:"item6"`
}

// ItemIDs collects the non-empty item slots.
func (p *MatchParticipant) ItemIDs() []int {
	items := make([]int, 0, 7)
	for _, id := range []int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5, p.Item6} {
		if id > 0 {
			items = append(items, id)
		}
	}
	return items
}

// StatusEvent is the NATS payload published on state transitions.
type StatusEvent struct {
	CycleID   string      `json:"cycleId"`
	RiotID    string      `json:"riotId"`
	Region    string      `json:"region"`
	Previous  PlayerState `json:"previous"`
	Current   PlayerState `json:"current"`
	Champion  string      `json:"champion,omitempty"`
	MatchID   string      `json:"matchId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// MatchEvent is published whenever a newly completed match is cached.
type MatchEvent struct {
	CycleID   string       `json:"cycleId"`
	RiotID    string       `json:"riotId"`
	Region    string       `json:"region"`
	Match     MatchSummary `json:"match"`
	Timestamp time.Time    `json:"timestamp"`
}
