package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean.
type Config struct {
	Addr string

	// Confirmation cycle tuning.
	CheckOffsets []time.Duration
	FixTimeout   time.Duration
	StaleTimeout time.Duration
	ReapInterval time.Duration

	// Session store backend: "memory", "redis", or "postgres".
	StoreBackend string
	RedisURL     string
	PostgresDSN  string

	// Kafka event sink; empty brokers disables it.
	KafkaBrokers []string
	KafkaTopic   string

	EventBuffer int

	// Fix uploads allowed per device per minute.
	FixRateLimit int

	JWTSigningKey string
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything but secrets in production.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:         getEnv("EGRESS_ADDR", ":8080"),
		FixTimeout:   5 * time.Second,
		StaleTimeout: 24 * time.Hour,
		ReapInterval: 15 * time.Minute,
		StoreBackend: getEnv("EGRESS_STORE", "memory"),
		RedisURL:     os.Getenv("EGRESS_REDIS_URL"),
		PostgresDSN:  os.Getenv("EGRESS_POSTGRES_DSN"),
		KafkaTopic:   getEnv("EGRESS_KAFKA_TOPIC", "egress.exit-sessions.resolved"),
		EventBuffer:  256,
		FixRateLimit: 120,
	}

	offsets, err := parseOffsets(getEnv("EGRESS_CHECK_OFFSETS", "60s,180s,300s"))
	if err != nil {
		return Config{}, err
	}
	cfg.CheckOffsets = offsets

	if cfg.FixTimeout, err = parseDuration("EGRESS_FIX_TIMEOUT", cfg.FixTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StaleTimeout, err = parseDuration("EGRESS_STALE_TIMEOUT", cfg.StaleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ReapInterval, err = parseDuration("EGRESS_REAP_INTERVAL", cfg.ReapInterval); err != nil {
		return Config{}, err
	}

	if brokers := os.Getenv("EGRESS_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if raw := os.Getenv("EGRESS_EVENT_BUFFER"); raw != "" {
		buffer, err := strconv.Atoi(raw)
		if err != nil || buffer <= 0 {
			return Config{}, fmt.Errorf("invalid EGRESS_EVENT_BUFFER %q", raw)
		}
		cfg.EventBuffer = buffer
	}

	if raw := os.Getenv("EGRESS_FIX_RATE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("invalid EGRESS_FIX_RATE_LIMIT %q", raw)
		}
		cfg.FixRateLimit = limit
	}

	cfg.JWTSigningKey = os.Getenv("EGRESS_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func parseOffsets(raw string) ([]time.Duration, error) {
	parts := strings.Split(raw, ",")
	offsets := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid check offset %q", part)
		}
		if len(offsets) > 0 && d <= offsets[len(offsets)-1] {
			return nil, fmt.Errorf("check offsets must be strictly ascending, got %q", raw)
		}
		offsets = append(offsets, d)
	}
	return offsets, nil
}
