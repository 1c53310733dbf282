package game

import (
	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// assignAuto shuffles both the active player list and the role pool and
// zips them 1:1. Requires the room lock.
func (e *Engine) assignAuto(room *models.Room) {
	var players []*models.Player
	for _, p := range alivePlayers(room) {
		players = append(players, p)
	}

	pool := roles.BuildPool(len(players), room.Config.Roles)

	e.rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	e.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for i, p := range players {
		p.Role = pool[i]
		p.IsCaptain = false
		p.LinkedTo = ""
	}
}

// pickRole handles one manual-mode self-selection. A player changing
// their pick returns the previous role to the pool, so resubmission
// overwrites rather than double-spends a slot.
func (e *Engine) pickRole(room *models.Room, p *models.Player, role models.Role) *Rejection {
	remaining := room.PhaseData.Picks
	if remaining == nil {
		return reject("no role pool")
	}
	if _, ok := roles.Lookup(role); !ok {
		return reject("unknown role")
	}
	if p.Role == role {
		return nil // idempotent re-pick
	}
	if remaining[role] <= 0 {
		return reject("role exhausted")
	}
	if p.Role != "" {
		remaining[p.Role]++
	}
	remaining[role]--
	p.Role = role
	return nil
}

// manualPickComplete reports whether every active player holds a role
// and the pool is exhausted
func manualPickComplete(room *models.Room) bool {
	for _, p := range alivePlayers(room) {
		if p.Role == "" {
			return false
		}
	}
	for _, n := range room.PhaseData.Picks {
		if n != 0 {
			return false
		}
	}
	return true
}
