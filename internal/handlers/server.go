package handlers

import (
	"github.com/rs/zerolog"

	"github.com/saboteurs-game/backend/internal/game"
	"github.com/saboteurs-game/backend/internal/stats"
)

// Server bundles the room registry, the game engine, the stats store
// and the WebSocket hub behind the HTTP surface
type Server struct {
	registry *game.Registry
	engine   *game.Engine
	stats    *stats.Store
	hub      *Hub
	logger   zerolog.Logger
}

// NewServer wires the handler layer. stats may be nil when persistence
// is disabled.
func NewServer(registry *game.Registry, engine *game.Engine, store *stats.Store, allowedOrigin string, logger zerolog.Logger) *Server {
	s := &Server{
		registry: registry,
		engine:   engine,
		stats:    store,
		logger:   logger,
	}
	s.hub = newHub(s, allowedOrigin)
	go s.hub.run()
	return s
}
