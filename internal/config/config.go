// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the shadow-store implementation the worker wires up.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// Config holds all application configuration.
type Config struct {
	Backend    Backend
	SQLitePath string

	// PrimarySQLitePath, when set, points the verifier's primary side at a
	// SQLite snapshot of the authoritative store. Empty means an in-process
	// store (stub mode).
	PrimarySQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EntityTypes lists the entity types verified by the sweep workflow.
	EntityTypes []string
	// CompareFields are the fields checked for data_mismatch detection.
	CompareFields []string

	MaxEntities    int
	MaxDuration    time.Duration
	PageSize       int
	ReadsPerSecond float64

	LogLevel    string
	ServiceName string
	OTLPEnabled bool
}

// LoadFromEnv reads configuration from SHADOWSYNC_* environment variables
// with sensible defaults.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Backend:           Backend(envOr("SHADOWSYNC_BACKEND", "memory")),
		SQLitePath:        envOr("SHADOWSYNC_SQLITE_PATH", "shadowsync.db"),
		PrimarySQLitePath: os.Getenv("SHADOWSYNC_PRIMARY_SQLITE_PATH"),
		RedisAddr:         os.Getenv("SHADOWSYNC_REDIS_ADDR"),
		RedisPassword:     os.Getenv("SHADOWSYNC_REDIS_PASSWORD"),
		EntityTypes:       splitList(envOr("SHADOWSYNC_ENTITY_TYPES", "Listing")),
		CompareFields:     splitList(envOr("SHADOWSYNC_COMPARE_FIELDS", "title,status,price,updated_at")),
		LogLevel:          envOr("SHADOWSYNC_LOG_LEVEL", "info"),
		ServiceName:       envOr("SHADOWSYNC_SERVICE_NAME", "shadowsync"),
		OTLPEnabled:       os.Getenv("SHADOWSYNC_OTLP_ENABLED") == "true",
	}

	var err error
	if cfg.RedisDB, err = envInt("SHADOWSYNC_REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxEntities, err = envInt("SHADOWSYNC_MAX_ENTITIES", 0); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = envInt("SHADOWSYNC_PAGE_SIZE", 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxDuration, err = envDuration("SHADOWSYNC_MAX_DURATION", 0); err != nil {
		return Config{}, err
	}
	if cfg.ReadsPerSecond, err = envFloat("SHADOWSYNC_READS_PER_SECOND", 0); err != nil {
		return Config{}, err
	}

	switch cfg.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return Config{}, fmt.Errorf("config: SHADOWSYNC_REDIS_ADDR required for redis backend")
		}
	default:
		return Config{}, fmt.Errorf("config: invalid SHADOWSYNC_BACKEND %q (must be memory, sqlite, or redis)", cfg.Backend)
	}

	if len(cfg.EntityTypes) == 0 {
		return Config{}, fmt.Errorf("config: SHADOWSYNC_ENTITY_TYPES must name at least one entity type")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
