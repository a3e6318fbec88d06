package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	PostgresURL   string
	Redis         RedisConfig
	KafkaSeeds    string
	ClaimTopic    string
	JWTSigningKey string

	// FriendServiceURL points at the external friend-graph API. Empty disables
	// friend counts on profile reads.
	FriendServiceURL string

	// ClaimRetryAttempts bounds how many times the claim coordinator re-runs
	// a transaction that lost a write conflict before surfacing a retryable
	// failure to the caller.
	ClaimRetryAttempts int

	// LeaderboardCacheTTL bounds staleness of the cached top-locations view.
	LeaderboardCacheTTL time.Duration
}

// RedisConfig mirrors the go-redis options we care about.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("WAYFARER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("WAYFARER_CLAIM_TOPIC")
	if topic == "" {
		topic = "wayfarer.claims"
	}

	return Server{
		Addr:                addr,
		PostgresURL:         os.Getenv("WAYFARER_POSTGRES_URL"),
		KafkaSeeds:          os.Getenv("WAYFARER_KAFKA_SEEDS"),
		ClaimTopic:          topic,
		JWTSigningKey:       jwtSigningKey,
		FriendServiceURL:    os.Getenv("WAYFARER_FRIEND_SERVICE_URL"),
		ClaimRetryAttempts:  envInt("WAYFARER_CLAIM_RETRIES", 5),
		LeaderboardCacheTTL: envDuration("WAYFARER_LEADERBOARD_TTL", 30*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("WAYFARER_REDIS_URL"),
			PoolSize:     envInt("WAYFARER_REDIS_POOL", 10),
			MinIdleConns: envInt("WAYFARER_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("WAYFARER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("WAYFARER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("WAYFARER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
