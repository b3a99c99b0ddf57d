package internal

import (
	"context"
	"strconv"
	"strings"
	"time"
)

const (
	// liveGameRetries is the number of extra probes after a transient
	// failure, with linearly increasing backoff between them.
	liveGameRetries = 2
	liveGameBackoff = 1 * time.Second

	// inGameGraceWindow keeps the last InGame snapshot alive through
	// short upstream blips instead of flapping to not-in-game.
	inGameGraceWindow = 3 * time.Minute

	// gameOverRecheckDelay smooths the window right after a game ends
	// where the spectator endpoint may still return stale data.
	gameOverRecheckDelay = 3 * time.Second
)

// detection is the outcome of one live-game probe sequence.
// definitive is true only when the upstream gave a real answer (200
// with our participant, or 404); degraded outcomes carry whatever the
// hysteresis policy decided plus the error that caused the degrade.
type detection struct {
	snapshot   *LiveGameSnapshot
	definitive bool
	err        error
}

// detectGameState probes the spectator endpoint with bounded retries.
// Policy, in order:
//  1. 200 with our participant: InGame.
//  2. 200 without it: InconsistentState, no snapshot.
//  3. 404: definitive not-in-game.
//  4. Transient/429: retry up to liveGameRetries with linear backoff;
//     when exhausted, keep the last InGame snapshot if it is inside
//     the grace window, otherwise report not-in-game with the error
//     attached for the cycle failure accounting.
func (r *Reconciler) detectGameState(ctx context.Context, identity *PlayerIdentity) detection {
	var lastErr error

	for attempt := 0; attempt <= liveGameRetries; attempt++ {
		if attempt > 0 {
			r.sleep(time.Duration(attempt) * liveGameBackoff)
		}

		game, err := r.riot.GetActiveGame(ctx, identity.PUUID)
		if err == nil {
			snapshot, perr := r.buildSnapshot(game, identity)
			if perr != nil {
				r.logger.Warn("live_game_participant_missing").
					Component("detector").
					Operation("detect_game_state").
					Player(identity.PUUID, identity.Region).
					Err(perr).
					Log()
				return detection{err: perr}
			}

			r.lastSnapshot = snapshot
			r.lastInGameAt = r.now()

			r.logger.Debug("live_game_detected").
				Component("detector").
				Operation("detect_game_state").
				Player(identity.PUUID, identity.Region).
				Match(snapshot.MatchID).
				Meta("champion", snapshot.ChampionName).
				Meta("game_length", FormatGameDuration(snapshot.GameLengthSec)).
				Log()
			return detection{snapshot: snapshot, definitive: true}
		}

		if IsNotFoundError(err) {
			// A confirmed game-over invalidates the grace window, so a
			// later outage cannot resurrect the stale snapshot.
			r.lastSnapshot = nil
			r.lastInGameAt = time.Time{}
			return detection{definitive: true}
		}
		if !isRetryable(err) {
			return detection{err: err}
		}

		lastErr = err
		r.logger.Warn("live_game_probe_failed").
			Component("detector").
			Operation("detect_game_state").
			Player(identity.PUUID, identity.Region).
			Err(err).
			Meta("attempt", attempt+1).
			Log()
	}

	// Retries exhausted. Prefer the recent InGame observation over
	// flipping state on an upstream blip.
	if r.lastSnapshot != nil && r.now().Sub(r.lastInGameAt) <= inGameGraceWindow {
		r.logger.Info("live_game_hysteresis_applied").
			Component("detector").
			Operation("detect_game_state").
			Player(identity.PUUID, identity.Region).
			Meta("last_in_game_age", r.now().Sub(r.lastInGameAt).String()).
			Log()
		return detection{snapshot: r.lastSnapshot}
	}

	return detection{err: lastErr}
}

// buildSnapshot locates our participant in the spectator payload and
// flattens the game into a LiveGameSnapshot. A payload without our
// participant is an inconsistency, never a silent not-in-game.
func (r *Reconciler) buildSnapshot(game *CurrentGameInfo, identity *PlayerIdentity) (*LiveGameSnapshot, error) {
	participant := findParticipant(game.Participants, identity)
	if participant == nil {
		return nil, NewInconsistentStateError("player not found in active game participants")
	}

	matchID := ""
	if game.GameID != 0 {
		matchID = formatGameID(identity.Region, game.GameID)
	}

	return &LiveGameSnapshot{
		MatchID:          matchID,
		ChampionID:       participant.ChampionID,
		ChampionName:     ChampionName(participant.ChampionID, participant.ChampionName),
		QueueID:          game.GameQueueConfigID,
		QueueName:        QueueName(game.GameQueueConfigID),
		MapID:            game.MapID,
		MapName:          MapName(game.MapID),
		GameMode:         game.GameMode,
		GameType:         GameTypeName(game.GameType),
		GameStartEpochMs: game.GameStartTime,
		GameLengthSec:    game.GameLength,
		ObservedAt:       r.now(),
	}, nil
}

// findParticipant matches by PUUID first, then falls back to a
// case-insensitive display-name match for payloads that omit ids.
func findParticipant(participants []CurrentGameParticipant, identity *PlayerIdentity) *CurrentGameParticipant {
	for i := range participants {
		if participants[i].PUUID != "" && participants[i].PUUID == identity.PUUID {
			return &participants[i]
		}
	}

	name := strings.ToLower(identity.GameName)
	riotID := strings.ToLower(identity.RiotID())
	for i := range participants {
		p := &participants[i]
		if strings.ToLower(p.SummonerName) == name || strings.ToLower(p.RiotID) == riotID {
			return p
		}
	}

	return nil
}

// formatGameID renders an in-progress game id in match-v5 style
// ("EUN1_123456789") so live and completed ids are comparable.
func formatGameID(region string, gameID int64) string {
	return strings.ToUpper(region) + "_" + strconv.FormatInt(gameID, 10)
}
