package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DBSQLite   = "sqlite"
	DBPostgres = "postgres"
	DBMemory   = "memory"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type Config struct {
	DBDriver    string
	DatabaseURL string

	CacheDriver  string
	RedisURL     string
	StandingsTTL time.Duration

	// An empty NATSURL disables event publishing.
	NATSURL     string
	NATSSubject string

	LogLevel slog.Level
	Port     int
}

// Load reads the environment, after loading .env if there is one.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", DBSQLite)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CacheDriver: strings.ToLower(getenv("CACHE_DRIVER", CacheMemory)),
		RedisURL:    os.Getenv("REDIS_URL"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: getenv("NATS_SUBJECT", "tourney.events"),
	}

	switch cfg.DBDriver {
	case DBSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "tourney.db?_journal_mode=WAL"
		}
	case DBPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER is %s", DBPostgres)
		}
	case DBMemory:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: expected sqlite, postgres or memory", cfg.DBDriver)
	}

	switch cfg.CacheDriver {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when CACHE_DRIVER is %s", CacheRedis)
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_DRIVER %q: expected memory, redis or none", cfg.CacheDriver)
	}

	ttl, err := time.ParseDuration(getenv("STANDINGS_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid STANDINGS_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("STANDINGS_TTL must be positive, got %s", ttl)
	}
	cfg.StandingsTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	port, err := strconv.Atoi(getenv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", port)
	}
	cfg.Port = port

	return cfg, nil
}

// SQLDriver is the database/sql driver name for DBDriver.
func (c *Config) SQLDriver() string {
	if c.DBDriver == DBSQLite {
		return "sqlite3"
	}
	return c.DBDriver
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
