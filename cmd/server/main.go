package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/saboteurs-game/backend/internal/config"
	"github.com/saboteurs-game/backend/internal/game"
	"github.com/saboteurs-game/backend/internal/handlers"
	"github.com/saboteurs-game/backend/internal/stats"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	store, err := stats.Open(cfg.StatsDB, cfg.MatchHistoryCap, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.StatsDB).Msg("failed to open stats database")
	}
	defer store.Close()

	rules := game.Rules{
		MinActivePlayers:  cfg.MinActivePlayers,
		MaxPlayers:        cfg.MaxPlayers,
		ForceAdvanceDelay: cfg.ForceAdvanceDelay,
		ReconnectGrace:    cfg.ReconnectGrace,
		MatchLogCap:       game.DefaultRules().MatchLogCap,
		RandomTiebreak:    game.DefaultRules().RandomTiebreak,
	}

	registry := game.NewRegistry(rules.MaxPlayers)
	engine := game.NewEngine(rules, store, logger)
	server := handlers.NewServer(registry, engine, store, cfg.AllowedOrigin, logger)

	router := gin.Default()

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.AllowedOrigin == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.AllowedOrigin}
	}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	{
		api.POST("/rooms", server.CreateRoom)
		api.GET("/rooms/:code", server.GetRoom)
		api.POST("/rooms/:code/join", server.JoinRoom)
		api.GET("/stats/players/:name", server.PlayerStats)
		api.GET("/stats/leaderboard", server.Leaderboard)
		api.GET("/stats/matches", server.RecentMatches)
	}

	router.GET("/ws", server.HandleWebSocket)
	router.GET("/health", server.Health)

	logger.Info().Str("port", cfg.Port).Msg("saboteurs server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
