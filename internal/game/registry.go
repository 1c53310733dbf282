package game

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saboteurs-game/backend/internal/models"
)

// Registry owns the lifecycle of all game rooms. It is constructed once
// at process start and injected into handlers; the map is guarded by its
// own lock while per-room mutations are serialized by each room's mutex.
type Registry struct {
	rooms      map[string]*models.Room
	mu         sync.RWMutex
	maxPlayers int
}

// NewRegistry creates an empty room registry
func NewRegistry(maxPlayers int) *Registry {
	return &Registry{
		rooms:      make(map[string]*models.Room),
		maxPlayers: maxPlayers,
	}
}

// CreateRoom creates a new room with the given host as its first player
func (r *Registry) CreateRoom(hostID, hostName string, cfg models.RoomConfig) *models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := generateRoomCode()
	room := &models.Room{
		Code:       code,
		HostID:     hostID,
		Config:     cfg,
		Phase:      models.PhaseLobby,
		PhaseData:  models.NewPhaseData(),
		PhaseAck:   make(map[string]bool),
		Players:    make(map[string]*models.Player),
		MaxPlayers: r.maxPlayers,
		CreatedAt:  time.Now(),
	}

	room.Players[hostID] = &models.Player{
		ID:        hostID,
		Name:      hostName,
		Status:    models.StatusAlive,
		Connected: true,
		JoinedAt:  time.Now(),
	}

	r.rooms[code] = room
	return room
}

// GetRoom retrieves a room by code
func (r *Registry) GetRoom(code string) (*models.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[strings.ToUpper(code)]
	return room, exists
}

// JoinRoom adds a player to a room. A playerID already present in the
// roster reattaches instead (reconnection), which is allowed mid-game.
func (r *Registry) JoinRoom(code, playerID, name string) (*models.Room, error) {
	r.mu.RLock()
	room, exists := r.rooms[strings.ToUpper(code)]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrRoomNotFound
	}

	room.Lock()
	defer room.Unlock()

	if existing, ok := room.Players[playerID]; ok {
		if existing.Status == models.StatusLeft {
			return nil, ErrPlayerLeft
		}
		existing.Connected = true
		return room, nil
	}

	if room.Started {
		return nil, ErrGameAlreadyStarted
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range room.Players {
		if p.Name == name {
			return nil, ErrNameTaken
		}
	}

	room.Players[playerID] = &models.Player{
		ID:        playerID,
		Name:      name,
		Status:    models.StatusAlive,
		Connected: true,
		JoinedAt:  time.Now(),
	}
	return room, nil
}

// RemovePlayer drops a player from a lobby-phase room, deleting the room
// when it empties and reassigning the host slot when the host walks out.
// In-game departures go through Engine.MarkLeft instead so the roster is
// preserved for stats and history.
func (r *Registry) RemovePlayer(code, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = strings.ToUpper(code)
	room, exists := r.rooms[code]
	if !exists {
		return ErrRoomNotFound
	}

	room.Lock()
	defer room.Unlock()

	delete(room.Players, playerID)

	if len(room.Players) == 0 {
		delete(r.rooms, code)
		return nil
	}

	if room.HostID == playerID {
		oldest := time.Now().Add(time.Hour)
		for _, p := range room.Players {
			if p.JoinedAt.Before(oldest) {
				oldest = p.JoinedAt
				room.HostID = p.ID
			}
		}
	}
	return nil
}

// HasPlayer reports whether the player id is on the room's roster
func (r *Registry) HasPlayer(room *models.Room, playerID string) bool {
	room.Lock()
	defer room.Unlock()
	_, ok := room.Players[playerID]
	return ok
}

// DeleteRoom removes a room outright
func (r *Registry) DeleteRoom(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, strings.ToUpper(code))
}

// generateRoomCode generates a random 6-character room code
func generateRoomCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

// Custom errors
var (
	ErrRoomNotFound       = &GameError{"room not found"}
	ErrRoomFull           = &GameError{"room is full"}
	ErrGameAlreadyStarted = &GameError{"game already started"}
	ErrNotEnoughPlayers   = &GameError{"not enough players to start"}
	ErrNameTaken          = &GameError{"name already taken"}
	ErrPlayerLeft         = &GameError{"player has left the game"}
	ErrNotHost            = &GameError{"only the host can do that"}
)

type GameError struct {
	message string
}

func (e *GameError) Error() string {
	return e.message
}
