package internal

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// maxConsecutiveErrors is the whole-cycle failure threshold after
	// which the visible state flips to Offline.
	maxConsecutiveErrors = 5

	// recentlyPlayedWindow classifies idle time from the last match
	// end timestamp.
	recentlyPlayedWindow = 4 * time.Hour
)

// Reconciler owns the cached identity, the per-cycle fetch plan, and
// the merge step that produces one ReconciledStatus per refresh.
// Refresh can be entered from the poll loop, the HTTP handler, and the
// NATS worker at once; refreshMu serializes whole cycles so the cycle
// state below is only ever touched by one caller. The read-write mutex
// only protects the published status against concurrent HTTP readers.
type Reconciler struct {
	cfg     *Config
	riot    RiotAPI
	cache   Cache
	store   StatusStore
	events  Publisher
	logger  *Logger
	metrics *MetricsCollector

	refreshMu sync.Mutex

	mu      sync.RWMutex
	current *ReconciledStatus

	identity          *PlayerIdentity
	lastMatch         *MatchSummary
	lastGood          *ReconciledStatus
	lastState         PlayerState
	lastSnapshot      *LiveGameSnapshot
	lastInGameAt      time.Time
	consecutiveErrors int
	hadSuccess        bool
	seeded            bool

	now   func() time.Time
	sleep func(time.Duration)
}

// NewReconciler wires the reconciler. cache, store, and events may be
// nil; every use is guarded.
func NewReconciler(cfg *Config, riot RiotAPI, cache Cache, store StatusStore, events Publisher, logger *Logger, metrics *MetricsCollector) *Reconciler {
	return &Reconciler{
		cfg:       cfg,
		riot:      riot,
		cache:     cache,
		store:     store,
		events:    events,
		logger:    logger,
		metrics:   metrics,
		lastState: StateUnknown,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Status returns the most recently published status, nil before the
// first cycle completes.
func (r *Reconciler) Status() *ReconciledStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Refresh runs one reconciliation cycle and returns the merged status.
// Sub-fetch failures degrade to sentinels; whole-cycle failures below
// the threshold return the last good status verbatim; at the threshold
// an Offline status is synthesized. An identity or auth failure before
// the first ever success propagates so setup can fail fast.
func (r *Reconciler) Refresh(ctx context.Context) (*ReconciledStatus, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	cycleID := uuid.New().String()
	start := r.now()

	r.logger.Debug("cycle_started").
		Component("reconciler").
		Operation("refresh").
		Cycle(cycleID).
		Log()

	status, err := r.runCycle(ctx, cycleID)
	duration := r.now().Sub(start)

	if err != nil {
		return r.handleCycleFailure(cycleID, duration, err)
	}

	r.consecutiveErrors = 0
	r.hadSuccess = true
	r.lastGood = status
	r.publish(cycleID, status)

	if r.metrics != nil {
		r.metrics.RecordCycle(status.State, duration, 0, false)
	}
	r.logger.Info("cycle_completed").
		Component("reconciler").
		Operation("refresh").
		Cycle(cycleID).
		State(status.State).
		Match(status.MatchID).
		Duration(duration).
		Log()

	return status, nil
}

func (r *Reconciler) handleCycleFailure(cycleID string, duration time.Duration, err error) (*ReconciledStatus, error) {
	r.consecutiveErrors++

	if r.metrics != nil {
		r.metrics.RecordCycle(StateUnknown, duration, r.consecutiveErrors, true)
	}
	r.logger.Error("cycle_failed").
		Component("reconciler").
		Operation("refresh").
		Cycle(cycleID).
		Err(err).
		Meta("consecutive_errors", r.consecutiveErrors).
		Meta("threshold", maxConsecutiveErrors).
		Log()

	// A dead credential invalidates the cached identity: the next
	// successful setup must resolve it again.
	if IsAuthError(err) {
		r.identity = nil
	}

	// Fail fast during setup so the operator sees bad credentials or a
	// bad Riot ID immediately instead of an eternal Offline sensor.
	if !r.hadSuccess && (IsAuthError(err) || IsNotFoundError(err)) {
		return nil, err
	}

	if r.consecutiveErrors >= maxConsecutiveErrors {
		offline := r.offlineStatus(err)
		r.publish(cycleID, offline)
		return offline, nil
	}

	if r.lastGood != nil {
		return r.lastGood, nil
	}

	return nil, err
}

// runCycle executes the sequential fetch plan. It fails as a whole
// only when identity resolution fails, the credential is rejected, or
// no upstream signal succeeded at all.
func (r *Reconciler) runCycle(ctx context.Context, cycleID string) (*ReconciledStatus, error) {
	identity, err := r.ResolveIdentity(ctx)
	if err != nil {
		return nil, err
	}

	r.seedFromCache(ctx, identity)

	// Latest match, best-effort. A new match id replaces the cache and
	// emits an event; failures keep the previous summary.
	matchErr := r.refreshLatestMatch(ctx, cycleID, identity)
	if matchErr != nil && IsAuthError(matchErr) {
		return nil, matchErr
	}

	det := r.detectGameState(ctx, identity)
	if det.err != nil && IsAuthError(det.err) {
		return nil, det.err
	}

	// Double-check an InGame -> not-in-game flip once after a short
	// delay; right after a game ends the spectator endpoint can lag.
	if det.snapshot == nil && r.lastState == StateInGame {
		r.sleep(gameOverRecheckDelay)
		recheck := r.detectGameState(ctx, identity)
		if recheck.snapshot != nil {
			r.logger.Info("game_over_recheck_still_in_game").
				Component("reconciler").
				Operation("refresh").
				Cycle(cycleID).
				Log()
			det = recheck
		}
	}

	ranked, rankedErr := r.fetchRankedStanding(ctx, identity)
	if rankedErr != nil {
		if IsAuthError(rankedErr) {
			return nil, rankedErr
		}
		r.logger.Warn("ranked_fetch_degraded").
			Component("reconciler").
			Operation("refresh").
			Cycle(cycleID).
			Player(identity.PUUID, identity.Region).
			Err(rankedErr).
			Log()
		// A stale standing beats the sentinel when Redis has one.
		if r.cache != nil {
			if cached, err := r.cache.GetRankedStanding(ctx, identity.PUUID); err == nil {
				ranked = *cached
			}
		}
	} else if r.cache != nil {
		r.cache.SetRankedStanding(ctx, identity.PUUID, ranked)
	}

	level, levelErr := r.fetchSummonerLevel(ctx, identity)
	if levelErr != nil {
		r.logger.Warn("summoner_level_degraded").
			Component("reconciler").
			Operation("refresh").
			Cycle(cycleID).
			Player(identity.PUUID, identity.Region).
			Err(levelErr).
			Log()
	}

	// Every upstream signal failing in the same cycle is a whole-cycle
	// failure; anything less degrades to sentinels.
	if det.err != nil && matchErr != nil && rankedErr != nil && levelErr != nil {
		return nil, det.err
	}

	return r.buildStatus(det.snapshot, ranked, level), nil
}

// ResolveIdentity returns the cached PUUID, warming from Redis and
// Postgres before going to the network. Once resolved, the identity is
// permanent for the process lifetime.
func (r *Reconciler) ResolveIdentity(ctx context.Context) (*PlayerIdentity, error) {
	if r.identity != nil && r.identity.PUUID != "" {
		return r.identity, nil
	}

	if r.cache != nil {
		if identity, err := r.cache.GetIdentity(ctx, r.cfg.Region, r.cfg.GameName, r.cfg.TagLine); err == nil {
			if r.metrics != nil {
				r.metrics.RecordCacheHit("identity")
			}
			r.identity = identity
			return identity, nil
		}
		if r.metrics != nil {
			r.metrics.RecordCacheMiss("identity")
		}
	}

	if r.store != nil {
		if identity, err := r.store.GetIdentity(r.cfg.Region, r.cfg.GameName, r.cfg.TagLine); err == nil {
			r.identity = identity
			if r.cache != nil {
				r.cache.SetIdentity(ctx, identity)
			}
			return identity, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("identity_store_lookup_failed").
				Component("reconciler").
				Operation("resolve_identity").
				Err(err).
				Log()
		}
	}

	account, err := r.riot.GetAccountByRiotID(ctx, r.cfg.GameName, r.cfg.TagLine)
	if err != nil {
		return nil, err
	}

	identity := &PlayerIdentity{
		GameName: account.GameName,
		TagLine:  account.TagLine,
		Region:   r.cfg.Region,
		PUUID:    account.PUUID,
	}
	if identity.GameName == "" {
		identity.GameName = r.cfg.GameName
	}
	if identity.TagLine == "" {
		identity.TagLine = r.cfg.TagLine
	}

	r.identity = identity
	if r.cache != nil {
		r.cache.SetIdentity(ctx, identity)
	}
	if r.store != nil {
		r.store.SaveIdentity(identity)
	}

	r.logger.Info("identity_resolved").
		Component("reconciler").
		Operation("resolve_identity").
		Player(identity.PUUID, identity.Region).
		Meta("riot_id", identity.RiotID()).
		Log()

	return identity, nil
}

// seedFromCache warms the last-match cache once per process so idle
// classification works immediately after a restart.
func (r *Reconciler) seedFromCache(ctx context.Context, identity *PlayerIdentity) {
	if r.seeded {
		return
	}
	r.seeded = true

	if r.cache == nil || r.lastMatch != nil {
		return
	}
	if summary, err := r.cache.GetMatchSummary(ctx, identity.PUUID); err == nil {
		r.lastMatch = summary
		if r.metrics != nil {
			r.metrics.RecordCacheHit("last_match")
		}
	}
}

func (r *Reconciler) refreshLatestMatch(ctx context.Context, cycleID string, identity *PlayerIdentity) error {
	summary, err := r.fetchLatestMatch(ctx, identity)
	if err != nil {
		r.logger.Warn("match_fetch_degraded").
			Component("reconciler").
			Operation("refresh_latest_match").
			Cycle(cycleID).
			Player(identity.PUUID, identity.Region).
			Err(err).
			Log()
		return err
	}
	if summary == nil || (r.lastMatch != nil && r.lastMatch.MatchID == summary.MatchID) {
		return nil
	}

	r.lastMatch = summary
	if r.cache != nil {
		r.cache.SetMatchSummary(ctx, identity.PUUID, summary)
	}
	if r.events != nil {
		r.events.PublishMatchCompleted(MatchEvent{
			CycleID:   cycleID,
			RiotID:    identity.RiotID(),
			Region:    identity.Region,
			Match:     *summary,
			Timestamp: r.now(),
		})
	}

	r.logger.Info("latest_match_updated").
		Component("reconciler").
		Operation("refresh_latest_match").
		Cycle(cycleID).
		Match(summary.MatchID).
		Meta("champion", summary.Champion).
		Meta("kda", summary.KDA).
		Meta("ended_at", FormatEpochMs(summary.EndEpochMs)).
		Log()
	return nil
}

// classifyIdle buckets not-in-game time using the cached match's end
// timestamp. No history at all is plain Idle.
func (r *Reconciler) classifyIdle() PlayerState {
	if r.lastMatch == nil || r.lastMatch.EndEpochMs <= 0 {
		return StateIdle
	}

	sinceEnd := r.now().Sub(time.UnixMilli(r.lastMatch.EndEpochMs))
	if sinceEnd <= recentlyPlayedWindow {
		return StateRecentlyPlayed
	}
	return StateIdle
}

// buildStatus is the merge step. Live snapshot fields win while in
// game; otherwise the cached match summary fills the primary fields,
// with explicit zero sentinels when there is no data at all. Ranked
// standing and level merge unconditionally.
func (r *Reconciler) buildStatus(snapshot *LiveGameSnapshot, ranked RankedStanding, level int) *ReconciledStatus {
	status := &ReconciledStatus{
		Ranked:        ranked,
		SummonerLevel: level,
		LatestMatch:   r.lastMatch,
		LastUpdated:   r.now(),
	}

	if snapshot != nil {
		status.State = StateInGame
		status.Champion = snapshot.ChampionName
		status.MatchID = snapshot.MatchID
		status.GameMode = GameModeName(snapshot.GameMode)
		status.QueueName = snapshot.QueueName
		status.MapName = snapshot.MapName
		// Live games carry no scoreboard; the latest match stats stay
		// available under LatestMatch.
		status.Kills = 0
		status.Deaths = 0
		status.Assists = 0
		status.KDA = 0.0
		status.Live = snapshot
		status.DesiredInterval = r.cfg.InGameInterval
	} else {
		status.State = r.classifyIdle()
		status.DesiredInterval = r.cfg.ScanInterval
		if r.lastMatch != nil {
			status.Champion = r.lastMatch.Champion
			status.MatchID = r.lastMatch.MatchID
			status.GameMode = GameModeName(r.lastMatch.GameMode)
			status.QueueName = QueueName(r.lastMatch.QueueID)
			status.Kills = r.lastMatch.Kills
			status.Deaths = r.lastMatch.Deaths
			status.Assists = r.lastMatch.Assists
			status.KDA = r.lastMatch.KDA
		}
	}

	status.StateLabel = status.State.Label()
	return status
}

// offlineStatus is the synthesized record for persistent total
// failure. It keeps the last known match attached but makes the state
// and the error explicit.
func (r *Reconciler) offlineStatus(err error) *ReconciledStatus {
	status := &ReconciledStatus{
		State:           StateOffline,
		StateLabel:      StateOffline.Label(),
		Ranked:          UnrankedStanding(),
		LatestMatch:     r.lastMatch,
		DesiredInterval: r.cfg.ScanInterval,
		LastUpdated:     r.now(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// publish makes the status visible to HTTP readers, records the state
// transition, and emits the NATS event when the state changed.
func (r *Reconciler) publish(cycleID string, status *ReconciledStatus) {
	r.mu.Lock()
	r.current = status
	r.mu.Unlock()

	if status.State == r.lastState {
		return
	}
	previous := r.lastState
	r.lastState = status.State

	if r.store != nil {
		r.store.SaveStatus(cycleID, status)
	}
	if r.events != nil && r.identity != nil {
		r.events.PublishStatusChanged(StatusEvent{
			CycleID:   cycleID,
			RiotID:    r.identity.RiotID(),
			Region:    r.identity.Region,
			Previous:  previous,
			Current:   status.State,
			Champion:  status.Champion,
			MatchID:   status.MatchID,
			Timestamp: r.now(),
		})
	}

	r.logger.Info("state_transition").
		Component("reconciler").
		Operation("publish").
		Cycle(cycleID).
		State(status.State).
		Meta("previous", string(previous)).
		Log()
}

// Teardown releases the reconciler's share of resources. The owner of
// the cache, store, and event connections closes those.
func (r *Reconciler) Teardown() {
	if closer, ok := r.riot.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}
