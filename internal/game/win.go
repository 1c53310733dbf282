package game

import (
	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// EvaluateWinner is a pure function over room state, called after every
// death-resolution point. It returns the winner and whether the game is
// over; it never mutates the room (the engine sets the abort flag when
// the active count verdict comes back).
func EvaluateWinner(room *models.Room, minActive int) (models.Winner, bool) {
	if room.Aborted {
		return models.WinnerAborted, true
	}

	active := 0
	for _, p := range room.Players {
		if p.Status != models.StatusLeft {
			active++
		}
	}
	if active < minActive {
		return models.WinnerAborted, true
	}

	alive := 0
	var living []*models.Player
	for _, p := range room.Players {
		if p.Status == models.StatusAlive {
			alive++
			living = append(living, p)
		}
	}

	// linked lovers across factions override the faction rule
	if alive == 2 && mutuallyLinked(living[0], living[1]) &&
		roles.FactionOf(living[0].Role) != roles.FactionOf(living[1].Role) {
		return models.WinnerLovers, true
	}

	crew, saboteurs := aliveFactionCounts(room)
	if saboteurs == 0 {
		return models.WinnerCrew, true
	}
	if saboteurs >= crew {
		// at exact 2-vs-2 parity the game holds on while any reversible
		// event could still flip the balance before the next night
		if saboteurs == 2 && crew == 2 && reversibleEventPending(room) {
			return models.WinnerNone, false
		}
		return models.WinnerSaboteurs, true
	}
	return models.WinnerNone, false
}

func mutuallyLinked(a, b *models.Player) bool {
	return a.LinkedTo == b.ID && b.LinkedTo == a.ID
}

// reversibleEventPending reports whether an unused doctor potion, an
// unused night-1 chameleon swap, or a living security chief's future
// revenge could still change the balance
func reversibleEventPending(room *models.Room) bool {
	if room.Config.Roles.Doctor && len(aliveWithRole(room, models.RoleDoctor)) > 0 &&
		(!room.DoctorLifeUsed || !room.DoctorDeathUsed) {
		return true
	}
	if room.Config.Roles.Chameleon && room.Night <= 1 && !room.ChameleonUsed &&
		len(aliveWithRole(room, models.RoleChameleon)) > 0 {
		return true
	}
	if len(aliveWithRole(room, models.RoleSecurity)) > 0 {
		return true
	}
	return false
}
