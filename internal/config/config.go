// Package config loads server settings from the environment, with a
// .env file as the local-development convenience layer.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment
type Config struct {
	Port              string
	AllowedOrigin     string
	StatsDB           string
	LogLevel          string
	MinActivePlayers  int
	MaxPlayers        int
	ReconnectGrace    time.Duration
	ForceAdvanceDelay time.Duration
	MatchHistoryCap   int
}

// Load reads .env if present, then the environment, falling back to
// defaults. A missing .env is not an error; a malformed value falls
// back silently so a bad deploy still boots.
func Load() Config {
	godotenv.Load()

	return Config{
		Port:              getString("PORT", "8080"),
		AllowedOrigin:     getString("ALLOWED_ORIGIN", "*"),
		StatsDB:           getString("STATS_DB", "saboteurs.db"),
		LogLevel:          getString("LOG_LEVEL", "info"),
		MinActivePlayers:  getInt("MIN_ACTIVE_PLAYERS", 4),
		MaxPlayers:        getInt("MAX_PLAYERS", 12),
		ReconnectGrace:    getDuration("RECONNECT_GRACE", 60*time.Second),
		ForceAdvanceDelay: getDuration("FORCE_ADVANCE_DELAY", 30*time.Second),
		MatchHistoryCap:   getInt("MATCH_HISTORY_CAP", 500),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
