package internal

import (
	"context"
	"math"
)

// fetchLatestMatch lists recent match ids and, when the newest id
// differs from the cached one, pulls the full match detail. Returning
// the cached summary on an id match keeps the re-fetch idempotent.
func (r *Reconciler) fetchLatestMatch(ctx context.Context, identity *PlayerIdentity) (*MatchSummary, error) {
	ids, err := r.riot.GetMatchIDs(ctx, identity.PUUID, r.cfg.MatchHistorySize)
	if err != nil {
		if IsNotFoundError(err) {
			// No match history at all.
			return nil, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	newest := ids[0]
	if r.lastMatch != nil && r.lastMatch.MatchID == newest {
		return r.lastMatch, nil
	}

	match, err := r.riot.GetMatchByID(ctx, newest)
	if err != nil {
		return nil, err
	}

	summary, err := summarizeMatch(match, identity.PUUID)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// summarizeMatch extracts the player's participant record from a full
// match payload. An absent participant means the identity and the
// match data disagree, which fails this fetch only.
func summarizeMatch(match *MatchData, puuid string) (*MatchSummary, error) {
	var participant *MatchParticipant
	for i := range match.Info.Participants {
		if match.Info.Participants[i].PUUID == puuid {
			participant = &match.Info.Participants[i]
			break
		}
	}
	if participant == nil {
		return nil, NewInconsistentStateError("player not found in match " + match.Metadata.MatchID)
	}

	return &MatchSummary{
		MatchID:       match.Metadata.MatchID,
		Champion:      ChampionName(participant.ChampionID, participant.ChampionName),
		ChampionLevel: participant.ChampLevel,
		Kills:         participant.Kills,
		Deaths:        participant.Deaths,
		Assists:       participant.Assists,
		KDA:           ComputeKDA(participant.Kills, participant.Deaths, participant.Assists),
		Win:           participant.Win,
		GameMode:      match.Info.GameMode,
		GameType:      GameTypeName(match.Info.GameType),
		QueueID:       match.Info.QueueID,
		DurationSec:   match.Info.GameDuration,
		StartEpochMs:  match.Info.GameStartTimestamp,
		EndEpochMs:    match.Info.GameEndTimestamp,
		DamageDealt:   participant.TotalDamageDealtToChampions,
		DamageTaken:   participant.TotalDamageTaken,
		GoldEarned:    participant.GoldEarned,
		CreepScore:    participant.TotalMinionsKilled + participant.NeutralMinionsKilled,
		VisionScore:   participant.VisionScore,
		Items:         participant.ItemIDs(),
	}, nil
}

// ComputeKDA is (kills+assists)/max(deaths,1), rounded to two
// decimals. A deathless game yields a finite, inflated ratio rather
// than an error.
func ComputeKDA(kills, deaths, assists int) float64 {
	divisor := deaths
	if divisor < 1 {
		divisor = 1
	}
	kda := float64(kills+assists) / float64(divisor)
	return math.Round(kda*100) / 100
}

// fetchRankedStanding pulls league entries and reduces them to the
// solo/duo standing. Every failure path degrades to the Unranked
// sentinel; the error is returned alongside for logging only.
func (r *Reconciler) fetchRankedStanding(ctx context.Context, identity *PlayerIdentity) (RankedStanding, error) {
	entries, err := r.riot.GetLeagueEntriesByPUUID(ctx, identity.PUUID)
	if err != nil {
		if IsNotFoundError(err) {
			return UnrankedStanding(), nil
		}
		return UnrankedStanding(), err
	}

	var solo *LeagueEntry
	for i := range entries {
		if entries[i].QueueType == QueueSoloDuo {
			solo = &entries[i]
			break
		}
	}
	if solo == nil {
		return UnrankedStanding(), nil
	}

	return RankedStanding{
		Tier:           solo.Tier,
		Division:       solo.Rank,
		LeaguePoints:   solo.LeaguePoints,
		Wins:           solo.Wins,
		Losses:         solo.Losses,
		WinRatePercent: ComputeWinRate(solo.Wins, solo.Losses),
	}, nil
}

// ComputeWinRate is wins/(wins+losses)*100 rounded to one decimal;
// zero games played is 0.0, not NaN.
func ComputeWinRate(wins, losses int) float64 {
	total := wins + losses
	if total == 0 {
		return 0.0
	}
	rate := float64(wins) / float64(total) * 100
	return math.Round(rate*10) / 10
}

// fetchSummonerLevel returns the account level, 0 on any failure.
func (r *Reconciler) fetchSummonerLevel(ctx context.Context, identity *PlayerIdentity) (int, error) {
	summoner, err := r.riot.GetSummonerByPUUID(ctx, identity.PUUID)
	if err != nil {
		return 0, err
	}
	return summoner.SummonerLevel, nil
}
