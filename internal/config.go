package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultRegion       = "eun1"
	DefaultScanInterval = 300 * time.Second
	InGameScanInterval  = 60 * time.Second
	MinScanInterval     = 60 * time.Second
	MaxScanInterval     = 3600 * time.Second
)

type Config struct {
	RiotAPIKey string
	GameName   string
	TagLine    string
	Region     string

	// ScanInterval is the slow (not in game) poll interval; the in-game
	// interval is the fast one. Both surface through DesiredInterval.
	ScanInterval     time.Duration
	InGameInterval   time.Duration
	MatchHistorySize int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDb       string
	PostgresSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	NATSUrl      string
	NATSClientID string

	RateLimitRedisPrefix string

	AppPort  string
	AppEnv   string
	LogLevel string

	CacheEnabled    bool
	DatabaseEnabled bool
	EventsEnabled   bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		RiotAPIKey: os.Getenv("RIOT_API_KEY"),
		GameName:   os.Getenv("RIOT_GAME_NAME"),
		TagLine:    os.Getenv("RIOT_TAG_LINE"),
		Region:     getEnv("RIOT_REGION", DefaultRegion),

		ScanInterval:     getEnvDuration("SCAN_INTERVAL", DefaultScanInterval),
		InGameInterval:   getEnvDuration("IN_GAME_SCAN_INTERVAL", InGameScanInterval),
		MatchHistorySize: getEnvInt("MATCH_HISTORY_SIZE", 10),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDb:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		NATSUrl:      getEnv("NATS_URL", ""),
		NATSClientID: getEnv("NATS_CLIENT_ID", "league-assistant"),

		RateLimitRedisPrefix: getEnv("RATE_LIMIT_REDIS_PREFIX", "ratelimit"),

		AppPort:  getEnv("APP_PORT", "8000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CacheEnabled:    getEnvBool("CACHE_ENABLED", true),
		DatabaseEnabled: getEnvBool("DATABASE_ENABLED", true),
		EventsEnabled:   getEnvBool("EVENTS_ENABLED", true),
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.GameName == "" {
		return nil, fmt.Errorf("RIOT_GAME_NAME is required")
	}

	// Intervals outside the allowed band are clamped, not rejected.
	cfg.ScanInterval = clampInterval(cfg.ScanInterval)
	cfg.InGameInterval = clampInterval(cfg.InGameInterval)

	if cfg.MatchHistorySize < 1 {
		cfg.MatchHistorySize = 1
	}

	return cfg, nil
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinScanInterval {
		return MinScanInterval
	}
	if d > MaxScanInterval {
		return MaxScanInterval
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Plain numbers are treated as seconds.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
