package game

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/saboteurs-game/backend/internal/models"
)

func newTestEngine() *Engine {
	e := NewEngine(DefaultRules(), nil, zerolog.Nop())
	e.rng = rand.New(rand.NewSource(1))
	return e
}

// testRoom builds a room with n connected players p1..pn in stable join
// order, already past the registry
func testRoom(n int, cfg models.RoomConfig) *models.Room {
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	room := &models.Room{
		Code:       "TEST01",
		HostID:     "p1",
		Config:     cfg,
		Phase:      models.PhaseLobby,
		PhaseData:  models.NewPhaseData(),
		PhaseAck:   make(map[string]bool),
		Players:    make(map[string]*models.Player),
		MaxPlayers: 12,
		CreatedAt:  base,
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		room.Players[id] = &models.Player{
			ID:        id,
			Name:      "player-" + id,
			Status:    models.StatusAlive,
			Connected: true,
			JoinedAt:  base.Add(time.Duration(i) * time.Second),
		}
	}
	return room
}

// ackAll submits an ack for every currently required player; the last
// one triggers the phase resolution
func ackAll(t *testing.T, e *Engine, room *models.Room) {
	t.Helper()
	required := append([]string(nil), e.requiredSet(room)...)
	for _, id := range required {
		rej := e.Apply(room, id, Action{Type: ActionAck})
		require.Nil(t, rej, "ack by %s in %s", id, room.Phase)
	}
}

// vote submits a vote action and requires it to be accepted
func vote(t *testing.T, e *Engine, room *models.Room, voter, target string) {
	t.Helper()
	rej := e.Apply(room, voter, Action{Type: ActionVote, TargetID: target})
	require.Nil(t, rej, "vote by %s for %s in %s", voter, target, room.Phase)
}

// night submits a night action and requires it to be accepted
func night(t *testing.T, e *Engine, room *models.Room, actor, kind, target string) {
	t.Helper()
	rej := e.Apply(room, actor, Action{Type: ActionNight, Kind: kind, TargetID: target})
	require.Nil(t, rej, "night %s by %s in %s", kind, actor, room.Phase)
}

// enterNight marks the room started and advances through NIGHT_START
// into the first applicable night sub-phase
func enterNight(t *testing.T, e *Engine, room *models.Room) {
	t.Helper()
	room.Started = true
	e.transition(room, models.PhaseNightStart)
	ackAll(t, e, room)
}
