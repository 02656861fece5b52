// Package config builds the demo service configuration from environment
// variables so main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures everything the demo service needs at startup. Optional
// backends (Redis consent source, Postgres/Kafka audit sinks) are enabled by
// leaving their settings non-empty.
type Server struct {
	Addr         string
	Debug        bool
	ReadyTimeout time.Duration

	RedisURL     string
	PostgresDSN  string
	KafkaBrokers string
	KafkaTopic   string
}

// FromEnv reads CONSENTGATE_* variables, falling back to local-dev defaults.
func FromEnv() Server {
	cfg := Server{
		Addr:         envOr("CONSENTGATE_ADDR", ":8080"),
		Debug:        os.Getenv("CONSENTGATE_DEBUG") == "true",
		ReadyTimeout: 30 * time.Second,
		RedisURL:     os.Getenv("CONSENTGATE_REDIS_URL"),
		PostgresDSN:  os.Getenv("CONSENTGATE_POSTGRES_DSN"),
		KafkaBrokers: os.Getenv("CONSENTGATE_KAFKA_BROKERS"),
		KafkaTopic:   envOr("CONSENTGATE_KAFKA_TOPIC", "consentgate.audit"),
	}
	if v := os.Getenv("CONSENTGATE_READY_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.ReadyTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
