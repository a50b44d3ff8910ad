// Package config loads the process configuration. Static values come from
// environment variables, read once at startup; quota budgets can additionally
// come from a YAML file that is hot-reloaded while the server runs.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort string

	// DatabaseURL selects the store: empty means the in-memory
	// repository, anything else is a postgres connection string.
	DatabaseURL string

	// RedisAddr enables the upstream catalog cache; empty disables it.
	RedisAddr string

	// JWTSecret is the process-wide signing key. Read-only after startup;
	// rotating it means restarting, which invalidates all outstanding
	// tokens.
	JWTSecret     string
	TokenLifetime time.Duration

	MinSecretLength int

	// QuotaFile optionally points at a YAML file with per-route-class
	// budgets. When set, edits to the file take effect without a restart.
	QuotaFile string

	PokeAPIBaseURL  string
	CatalogCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		JWTSecret:       getEnv("JWT_SECRET", "secret-key"),
		TokenLifetime:   getDuration("TOKEN_LIFETIME", 60*time.Minute),
		MinSecretLength: getInt("MIN_SECRET_LENGTH", 6),
		QuotaFile:       getEnv("QUOTA_FILE", ""),
		PokeAPIBaseURL:  getEnv("POKEAPI_BASE_URL", "https://pokeapi.co/api/v2"),
		CatalogCacheTTL: getDuration("CATALOG_CACHE_TTL", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
