package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	identityCacheTTL = 0 // identity never expires on its own
	matchCacheTTL    = 24 * time.Hour
	rankedCacheTTL   = 30 * time.Minute
)

// CacheManager is the Redis write-through cache for resolved identity
// and per-player fetch results. When disabled, reads report redis.Nil
// and writes are dropped, so the reconciler runs purely from memory.
type CacheManager struct {
	redisClient *redis.Client
	enabled     bool
}

func NewCacheManager(cfg *Config) *CacheManager {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &CacheManager{
		redisClient: client,
		enabled:     cfg.CacheEnabled,
	}
}

func (cm *CacheManager) Get(ctx context.Context, key string, result interface{}) error {
	if !cm.enabled {
		return redis.Nil
	}

	data, err := cm.redisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

func (cm *CacheManager) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	if !cm.enabled {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return cm.redisClient.Set(ctx, key, jsonData, ttl).Err()
}

func (cm *CacheManager) Key(parts ...string) string {
	key := "lol"
	for _, part := range parts {
		key = key + ":" + part
	}
	return key
}

func (cm *CacheManager) GetIdentity(ctx context.Context, region, gameName, tagLine string) (*PlayerIdentity, error) {
	var identity PlayerIdentity
	key := cm.Key("identity", region, gameName, tagLine)
	if err := cm.Get(ctx, key, &identity); err != nil {
		return nil, err
	}
	if identity.PUUID == "" {
		return nil, redis.Nil
	}
	return &identity, nil
}

func (cm *CacheManager) SetIdentity(ctx context.Context, identity *PlayerIdentity) error {
	key := cm.Key("identity", identity.Region, identity.GameName, identity.TagLine)
	return cm.Set(ctx, key, identity, identityCacheTTL)
}

func (cm *CacheManager) GetMatchSummary(ctx context.Context, puuid string) (*MatchSummary, error) {
	var summary MatchSummary
	key := cm.Key("last_match", puuid)
	if err := cm.Get(ctx, key, &summary); err != nil {
		return nil, err
	}
	if summary.MatchID == "" {
		return nil, redis.Nil
	}
	return &summary, nil
}

func (cm *CacheManager) SetMatchSummary(ctx context.Context, puuid string, summary *MatchSummary) error {
	key := cm.Key("last_match", puuid)
	return cm.Set(ctx, key, summary, matchCacheTTL)
}

func (cm *CacheManager) GetRankedStanding(ctx context.Context, puuid string) (*RankedStanding, error) {
	var standing RankedStanding
	key := cm.Key("ranked", puuid)
	if err := cm.Get(ctx, key, &standing); err != nil {
		return nil, err
	}
	return &standing, nil
}

func (cm *CacheManager) SetRankedStanding(ctx context.Context, puuid string, standing RankedStanding) error {
	key := cm.Key("ranked", puuid)
	return cm.Set(ctx, key, standing, rankedCacheTTL)
}

func (cm *CacheManager) Close() error {
	if cm.redisClient != nil {
		return cm.redisClient.Close()
	}
	return nil
}
