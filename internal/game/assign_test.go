package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

func TestStartGameAutoAssign(t *testing.T) {
	e := newTestEngine()
	room := testRoom(6, models.RoomConfig{})

	require.NoError(t, e.StartGame(room, "p1"))
	assert.Equal(t, models.PhaseRoleReveal, room.Phase)
	assert.True(t, room.Started)

	saboteurs := 0
	for _, p := range room.Players {
		require.NotEmpty(t, p.Role)
		assert.False(t, p.IsCaptain)
		assert.Empty(t, p.LinkedTo)
		if roles.IsSaboteur(p.Role) {
			saboteurs++
		}
	}
	assert.Equal(t, 1, saboteurs, "6 players get exactly one saboteur")
}

func TestStartGameGuards(t *testing.T) {
	e := newTestEngine()
	room := testRoom(6, models.RoomConfig{})

	assert.ErrorIs(t, e.StartGame(room, "p2"), ErrNotHost)

	small := testRoom(3, models.RoomConfig{})
	assert.ErrorIs(t, e.StartGame(small, "p1"), ErrNotEnoughPlayers)

	require.NoError(t, e.StartGame(room, "p1"))
	assert.ErrorIs(t, e.StartGame(room, "p1"), ErrGameAlreadyStarted)
}

func TestManualRolePick(t *testing.T) {
	e := newTestEngine()
	cfg := models.RoomConfig{
		ManualRoles: true,
		Roles:       models.RolesEnabled{Doctor: true},
	}
	room := testRoom(5, cfg)

	require.NoError(t, e.StartGame(room, "p1"))
	require.Equal(t, models.PhaseManualRolePick, room.Phase)
	assert.Equal(t, 1, room.PhaseData.Picks[models.RoleSaboteur])
	assert.Equal(t, 1, room.PhaseData.Picks[models.RoleDoctor])
	assert.Equal(t, 3, room.PhaseData.Picks[models.RoleCrew])

	pick := func(id string, role models.Role) *Rejection {
		return e.Apply(room, id, Action{Type: ActionPickRole, RoleKey: role})
	}

	require.Nil(t, pick("p1", models.RoleSaboteur))
	assert.NotNil(t, pick("p2", models.RoleSaboteur), "saboteur slot exhausted")

	// changing a pick returns the old role to the pool
	require.Nil(t, pick("p1", models.RoleDoctor))
	assert.Equal(t, 1, room.PhaseData.Picks[models.RoleSaboteur])
	require.Nil(t, pick("p2", models.RoleSaboteur))

	require.Nil(t, pick("p3", models.RoleCrew))
	require.Nil(t, pick("p4", models.RoleCrew))
	require.Nil(t, pick("p5", models.RoleCrew))

	assert.Equal(t, models.PhaseRoleReveal, room.Phase, "exhausted pool completes the phase")
	assert.Equal(t, models.RoleDoctor, room.Players["p1"].Role)
	assert.Equal(t, models.RoleSaboteur, room.Players["p2"].Role)
}
