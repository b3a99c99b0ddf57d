package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const riotRequestTimeout = 10 * time.Second

// RiotAPIClient issues authenticated requests against the Riot API.
// Platform endpoints (summoner, spectator, league) use the configured
// platform region; account and match endpoints use the routing cluster.
type RiotAPIClient struct {
	apiKey      string
	region      string
	platformURL string
	clusterURL  string
	client      *http.Client
	limiter     Limiter
	logger      *Logger
	metrics     *MetricsCollector
}

func NewRiotAPIClient(cfg *Config, limiter Limiter, logger *Logger, metrics *MetricsCollector) *RiotAPIClient {
	region := strings.ToLower(cfg.Region)
	cluster := RegionCluster(region)

	if !IsKnownRegion(region) {
		logger.Warn("unknown_platform_region").
			Component("riot_api").
			Operation("configure").
			Meta("region", region).
			Meta("cluster_fallback", cluster).
			Log()
	}

	return &RiotAPIClient{
		apiKey:      cfg.RiotAPIKey,
		region:      region,
		platformURL: fmt.Sprintf("https://%s.api.riotgames.com", region),
		clusterURL:  fmt.Sprintf("https://%s.api.riotgames.com", cluster),
		limiter:     limiter,
		logger:      logger,
		metrics:     metrics,
		client: &http.Client{
			Timeout: riotRequestTimeout,
		},
	}
}

func (c *RiotAPIClient) doRequest(ctx context.Context, endpoint, requestURL string) ([]byte, error) {
	if c.limiter != nil {
		allowed, err := c.limiter.Allow(ctx, endpoint)
		if err == nil && !allowed {
			return nil, NewRateLimitError("local rate limit budget exhausted")
		}
		// Limiter backend failures are not a reason to drop the call.
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, NewTransientError("building request", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRiotCall(endpoint, time.Since(start), 0)
		}
		return nil, NewTransientError("request failed", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordRiotCall(endpoint, time.Since(start), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := classifyStatus(resp.StatusCode, string(body))

		c.logger.Debug("riot_api_non_200").
			Component("riot_api").
			Operation(endpoint).
			HTTP(http.MethodGet, requestURL, resp.StatusCode).
			ErrorCode(string(apiErr.Kind)).
			Log()
		return nil, apiErr
	}

	return io.ReadAll(resp.Body)
}

// GetAccountByRiotID resolves a Riot ID to account data on the routing
// cluster.
func (c *RiotAPIClient) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*AccountData, error) {
	if gameName == "" {
		return nil, NewNotFoundError("gameName cannot be empty")
	}

	requestURL := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.clusterURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	data, err := c.doRequest(ctx, "account_by_riot_id", requestURL)
	if err != nil {
		return nil, err
	}

	var result AccountData
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTransientError("decoding account response", err)
	}
	if result.PUUID == "" {
		return nil, NewInconsistentStateError("account response carries no puuid")
	}

	return &result, nil
}

func (c *RiotAPIClient) GetSummonerByPUUID(ctx context.Context, puuid string) (*Summoner, error) {
	requestURL := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.platformURL, puuid)

	data, err := c.doRequest(ctx, "summoner_by_puuid", requestURL)
	if err != nil {
		return nil, err
	}

	var result Summoner
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTransientError("decoding summoner response", err)
	}

	return &result, nil
}

// GetActiveGame fetches the spectator view of the player's current
// game. A 404 comes back as a NotFound error; the detector treats that
// as the definitive not-in-game signal.
func (c *RiotAPIClient) GetActiveGame(ctx context.Context, puuid string) (*CurrentGameInfo, error) {
	requestURL := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s", c.platformURL, puuid)

	data, err := c.doRequest(ctx, "active_game", requestURL)
	if err != nil {
		return nil, err
	}

	var result CurrentGameInfo
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTransientError("decoding active game response", err)
	}

	return &result, nil
}

// GetMatchIDs lists recent match ids, newest first.
func (c *RiotAPIClient) GetMatchIDs(ctx context.Context, puuid string, count int) ([]string, error) {
	if count < 1 {
		count = 1
	}
	requestURL := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=0&count=%d",
		c.clusterURL, puuid, count)

	data, err := c.doRequest(ctx, "match_ids", requestURL)
	if err != nil {
		return nil, err
	}

	var result []string
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTransientError("decoding match id list", err)
	}

	return result, nil
}

func (c *RiotAPIClient) GetMatchByID(ctx context.Context, matchID string) (*MatchData, error) {
	requestURL := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.clusterURL, matchID)

	data, err := c.doRequest(ctx, "match_by_id", requestURL)
	if err != nil {
		return nil, err
	}

	var result MatchData
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTransientError("decoding match response", err)
	}

	return &result, nil
}

func (c *RiotAPIClient) GetLeagueEntriesByPUUID(ctx context.Context, puuid string) ([]LeagueEntry, error) {
	requestURL := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.platformURL, puuid)

	data, err := c.doRequest(ctx, "league_entries", requestURL)
	if err != nil {
		return nil, err
	}

	var result []LeagueEntry
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTransientError("decoding league entries", err)
	}

	return result, nil
}

// CloseIdleConnections releases pooled HTTP connections on teardown.
func (c *RiotAPIClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
