package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saboteurs-game/backend/internal/models"
)

// sevenPlayerRoom returns a started-style roster with two saboteurs and
// five crew, roles pre-assigned
func sevenPlayerRoom(cfg models.RoomConfig) *models.Room {
	room := testRoom(7, cfg)
	room.Players["p1"].Role = models.RoleSaboteur
	room.Players["p2"].Role = models.RoleSaboteur
	for i := 3; i <= 7; i++ {
		room.Players[pid(i)].Role = models.RoleCrew
	}
	return room
}

func TestSaboteurKillRequiresUnanimity(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{})

	enterNight(t, e, room)
	require.Equal(t, models.PhaseNightSaboteurs, room.Phase)

	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p4")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.Empty(t, room.PhaseData.Deaths, "split votes mean no kill")
	assert.Equal(t, models.StatusAlive, room.Players["p3"].Status)
	assert.Equal(t, models.StatusAlive, room.Players["p4"].Status)
}

func TestSaboteurKillUnanimous(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{})

	enterNight(t, e, room)
	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p3")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.Equal(t, []string{"p3"}, room.PhaseData.Deaths)
	assert.Equal(t, models.StatusDead, room.Players["p3"].Status)
}

func TestSaboteurVoteResubmissionOverwrites(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{})

	enterNight(t, e, room)
	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p1", "", "p4") // changed their mind
	night(t, e, room, "p2", "", "p4")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.Equal(t, []string{"p4"}, room.PhaseData.Deaths)
	assert.Equal(t, models.StatusAlive, room.Players["p3"].Status)
}

func TestSaboteurCannotTargetSaboteur(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{})

	enterNight(t, e, room)
	rej := e.Apply(room, "p1", Action{Type: ActionNight, TargetID: "p2"})
	require.NotNil(t, rej)

	rej = e.Apply(room, "p3", Action{Type: ActionNight, TargetID: "p4"})
	require.NotNil(t, rej, "crew has no night kill")
}

func TestDoctorLifePotionSaves(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Doctor: true}})
	room.Players["p5"].Role = models.RoleDoctor

	enterNight(t, e, room)
	require.Equal(t, models.PhaseNightSaboteurs, room.Phase)
	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p3")

	require.Equal(t, models.PhaseNightDoctor, room.Phase)
	night(t, e, room, "p5", "life", "")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.Empty(t, room.PhaseData.Deaths)
	assert.Equal(t, models.StatusAlive, room.Players["p3"].Status)
	assert.True(t, room.DoctorLifeUsed)
	assert.False(t, room.DoctorDeathUsed)
}

func TestDoctorDeathPotion(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Doctor: true}})
	room.Players["p5"].Role = models.RoleDoctor

	enterNight(t, e, room)
	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p3")

	require.Equal(t, models.PhaseNightDoctor, room.Phase)
	night(t, e, room, "p5", "death", "p1")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.ElementsMatch(t, []string{"p1", "p3"}, room.PhaseData.Deaths)
	assert.True(t, room.DoctorDeathUsed)
}

func TestDoctorPassKeepsPotions(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Doctor: true}})
	room.Players["p5"].Role = models.RoleDoctor

	enterNight(t, e, room)
	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p3")

	require.Equal(t, models.PhaseNightDoctor, room.Phase)
	night(t, e, room, "p5", "pass", "")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.Equal(t, []string{"p3"}, room.PhaseData.Deaths)
	assert.False(t, room.DoctorLifeUsed)
	assert.False(t, room.DoctorDeathUsed)
}

func TestDoctorLifePotionSingleUse(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Doctor: true}})
	room.Players["p5"].Role = models.RoleDoctor

	// night one: the saboteurs strike, the doctor saves
	enterNight(t, e, room)
	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p3")
	require.Equal(t, models.PhaseNightDoctor, room.Phase)
	night(t, e, room, "p5", "life", "")
	require.Equal(t, models.PhaseNightResults, room.Phase)
	require.True(t, room.DoctorLifeUsed)

	// play through the day so the second night is reached legitimately
	ackAll(t, e, room) // night results
	require.Equal(t, models.PhaseDayWake, room.Phase)
	ackAll(t, e, room)
	require.Equal(t, models.PhaseDayVote, room.Phase)
	for i := 1; i <= 7; i++ {
		vote(t, e, room, pid(i), "p4")
	}
	require.Equal(t, models.PhaseDayResults, room.Phase)
	ackAll(t, e, room)
	require.Equal(t, models.PhaseNightStart, room.Phase)
	require.Equal(t, 2, room.Night)

	ackAll(t, e, room)
	require.Equal(t, models.PhaseNightSaboteurs, room.Phase)
	night(t, e, room, "p1", "", "p6")
	night(t, e, room, "p2", "", "p6")

	// the death potion keeps the doctor phase alive, but the spent life
	// potion is refused
	require.Equal(t, models.PhaseNightDoctor, room.Phase)
	rej := e.Apply(room, "p5", Action{Type: ActionNight, Kind: "life"})
	require.NotNil(t, rej)
	assert.Equal(t, "life potion already used", rej.Reason)

	night(t, e, room, "p5", "pass", "")
	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.Equal(t, []string{"p6"}, room.PhaseData.Deaths)
}

func TestDoctorDeathPotionSingleUse(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Doctor: true}})
	room.Started = true
	room.Players["p5"].Role = models.RoleDoctor
	room.DoctorDeathUsed = true
	e.transition(room, models.PhaseNightDoctor)

	rej := e.Apply(room, "p5", Action{Type: ActionNight, Kind: "death", TargetID: "p3"})
	require.NotNil(t, rej)
	assert.Equal(t, "death potion already used", rej.Reason)
}

func TestChameleonSwapSingleUse(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Chameleon: true}})
	room.Started = true
	room.Players["p5"].Role = models.RoleChameleon
	room.ChameleonUsed = true
	e.transition(room, models.PhaseNightChameleon)

	rej := e.Apply(room, "p5", Action{Type: ActionNight, Kind: "swap", TargetID: "p1"})
	require.NotNil(t, rej)
	assert.Equal(t, "ability already used", rej.Reason)
}

func TestDayVoteTiebreakByCaptain(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{})
	room.Started = true
	room.Players["p7"].IsCaptain = true
	e.transition(room, models.PhaseDayVote)

	vote(t, e, room, "p1", "p3")
	vote(t, e, room, "p2", "p3")
	vote(t, e, room, "p3", "p4")
	vote(t, e, room, "p4", "p3")
	vote(t, e, room, "p5", "p4")
	vote(t, e, room, "p6", "p4")
	vote(t, e, room, "p7", "p7")

	require.Equal(t, models.PhaseDayTiebreak, room.Phase)
	assert.ElementsMatch(t, []string{"p3", "p4"}, room.PhaseData.Candidates)

	// only the captain may break the tie
	rej := e.Apply(room, "p1", Action{Type: ActionVote, TargetID: "p3"})
	require.NotNil(t, rej)

	vote(t, e, room, "p7", "p3")
	require.Equal(t, models.PhaseDayResults, room.Phase)
	assert.Equal(t, []string{"p3"}, room.PhaseData.Deaths)
	assert.Equal(t, models.StatusDead, room.Players["p3"].Status)
}

func TestSecurityRevengeInterrupt(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Security: true}})
	room.Started = true
	room.Players["p4"].Role = models.RoleSecurity
	e.transition(room, models.PhaseDayVote)

	for i := 1; i <= 7; i++ {
		vote(t, e, room, pid(i), "p4")
	}

	require.Equal(t, models.PhaseRevenge, room.Phase)
	require.NotNil(t, room.Revenge)
	assert.Equal(t, "p4", room.Revenge.ShooterID)
	assert.Equal(t, "day", room.Revenge.Origin)

	// nobody else may act for the chief
	rej := e.Apply(room, "p1", Action{Type: ActionNight, Kind: "shoot", TargetID: "p1"})
	require.NotNil(t, rej)

	night(t, e, room, "p4", "shoot", "p1")
	require.Equal(t, models.PhaseDayResults, room.Phase)
	assert.ElementsMatch(t, []string{"p4", "p1"}, room.PhaseData.Deaths)
	assert.Equal(t, models.StatusDead, room.Players["p1"].Status)
	assert.Nil(t, room.Revenge, "revenge context cleared at results")
}

func TestRevengeShooterLeavingResolvesAsPass(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Security: true}})
	room.Started = true
	room.Players["p4"].Role = models.RoleSecurity
	e.transition(room, models.PhaseDayVote)

	for i := 1; i <= 7; i++ {
		vote(t, e, room, pid(i), "p4")
	}
	require.Equal(t, models.PhaseRevenge, room.Phase)

	// the chief rage-quits instead of shooting; the phase must not stall
	e.MarkLeft(room, "p4")

	require.Equal(t, models.PhaseDayResults, room.Phase)
	assert.Equal(t, []string{"p4"}, room.PhaseData.Deaths)
	assert.Nil(t, room.Revenge)
}

func TestChameleonSwapReplaysReveal(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Chameleon: true}})
	room.Players["p5"].Role = models.RoleChameleon

	enterNight(t, e, room)
	require.Equal(t, models.PhaseNightChameleon, room.Phase)

	night(t, e, room, "p5", "swap", "p1")

	require.Equal(t, models.PhaseRoleReveal, room.Phase, "everyone re-confirms after the swap")
	assert.Equal(t, models.RoleSaboteur, room.Players["p5"].Role)
	assert.Equal(t, models.RoleChameleon, room.Players["p1"].Role)
	assert.True(t, room.ChameleonUsed)

	ackAll(t, e, room)
	require.Equal(t, models.PhaseNightSaboteurs, room.Phase,
		"the night resumes after the chameleon slot")
}

func TestAIAgentLinkAndCascade(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{AIAgent: true}})
	room.Players["p5"].Role = models.RoleAIAgent

	enterNight(t, e, room)
	require.Equal(t, models.PhaseNightAIAgent, room.Phase)

	night(t, e, room, "p5", "link", "p3")
	require.Equal(t, models.PhaseNightAIExchange, room.Phase)
	assert.Equal(t, "p3", room.Players["p5"].LinkedTo)
	assert.Equal(t, "p5", room.Players["p3"].LinkedTo)

	ackAll(t, e, room) // both linked players confirm the exchange
	require.Equal(t, models.PhaseNightSaboteurs, room.Phase)

	night(t, e, room, "p1", "", "p3")
	night(t, e, room, "p2", "", "p3")

	require.Equal(t, models.PhaseNightResults, room.Phase)
	assert.ElementsMatch(t, []string{"p3", "p5"}, room.PhaseData.Deaths,
		"the linked partner dies of the broken bond")
	assert.Equal(t, models.StatusDead, room.Players["p5"].Status)
}

func TestRadarInspection(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{Roles: models.RolesEnabled{Radar: true}})
	room.Players["p5"].Role = models.RoleRadar

	enterNight(t, e, room)
	require.Equal(t, models.PhaseNightRadar, room.Phase)

	rej := e.Apply(room, "p5", Action{Type: ActionNight, Kind: "inspect", TargetID: "p5"})
	require.NotNil(t, rej, "no self-inspection")

	night(t, e, room, "p5", "inspect", "p1")
	require.Equal(t, models.PhaseNightSaboteurs, room.Phase)
}

func TestActionsRejectedAfterGameOver(t *testing.T) {
	e := newTestEngine()
	room := sevenPlayerRoom(models.RoomConfig{})
	room.Started = true
	room.Ended = true
	room.Winner = models.WinnerCrew

	rej := e.Apply(room, "p1", Action{Type: ActionAck})
	require.NotNil(t, rej)
}
