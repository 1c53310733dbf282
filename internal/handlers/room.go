package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saboteurs-game/backend/internal/game"
	"github.com/saboteurs-game/backend/internal/models"
)

type CreateRoomRequest struct {
	Username string             `json:"username" binding:"required"`
	Config   *models.RoomConfig `json:"config,omitempty"`
}

type JoinRoomRequest struct {
	Username string `json:"username" binding:"required"`
	PlayerID string `json:"playerId,omitempty"` // set on reconnection
}

// CreateRoom creates a new game room with the caller as host
func (s *Server) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := models.RoomConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}

	playerID := uuid.New().String()
	room := s.registry.CreateRoom(playerID, req.Username, cfg)

	c.JSON(http.StatusCreated, gin.H{
		"room":     s.engine.Snapshot(room, playerID),
		"playerId": playerID,
	})
}

// GetRoom returns a spectator projection of a room
func (s *Server) GetRoom(c *gin.Context) {
	room, ok := s.registry.GetRoom(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": game.ErrRoomNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": s.engine.Snapshot(room, "")})
}

// JoinRoom adds a player to a room, or reattaches a known player id
func (s *Server) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = uuid.New().String()
	}

	room, err := s.registry.JoinRoom(c.Param("code"), playerID, req.Username)
	if err != nil {
		c.JSON(joinStatus(err), gin.H{"error": err.Error()})
		return
	}

	s.hub.broadcastRoom(room)
	c.JSON(http.StatusOK, gin.H{
		"room":     s.engine.Snapshot(room, playerID),
		"playerId": playerID,
	})
}

func joinStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrRoomFull), errors.Is(err, game.ErrGameAlreadyStarted):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// PlayerStats returns one player's lifetime record with per-role detail
func (s *Server) PlayerStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats disabled"})
		return
	}
	name := c.Param("name")
	ps, err := s.stats.PlayerStats(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rs, err := s.stats.RoleStats(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": ps, "roles": rs})
}

// Leaderboard returns the top players by wins
func (s *Server) Leaderboard(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	board, err := s.stats.Leaderboard(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": board})
}

// RecentMatches returns the newest finished games
func (s *Server) RecentMatches(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	matches, err := s.stats.RecentMatches(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Health is the liveness probe
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
