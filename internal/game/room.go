package game

import (
	"sort"

	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// Helpers over the room roster. All of these require the room lock to
// be held by the caller.

func alivePlayers(room *models.Room) []*models.Player {
	var out []*models.Player
	for _, p := range room.Players {
		if p.Status == models.StatusAlive {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out
}

// sortPlayers orders by join time, with the id as a stable tiebreak
func sortPlayers(ps []*models.Player) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].JoinedAt.Before(ps[j].JoinedAt)
	})
}

func aliveIDs(room *models.Room) []string {
	var ids []string
	for _, p := range alivePlayers(room) {
		ids = append(ids, p.ID)
	}
	return ids
}

func aliveWithRole(room *models.Room, role models.Role) []*models.Player {
	var out []*models.Player
	for _, p := range alivePlayers(room) {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

func aliveSaboteurs(room *models.Room) []*models.Player {
	var out []*models.Player
	for _, p := range alivePlayers(room) {
		if roles.IsSaboteur(p.Role) {
			out = append(out, p)
		}
	}
	return out
}

func aliveFactionCounts(room *models.Room) (crew, saboteurs int) {
	for _, p := range room.Players {
		if p.Status != models.StatusAlive {
			continue
		}
		if roles.IsSaboteur(p.Role) {
			saboteurs++
		} else {
			crew++
		}
	}
	return crew, saboteurs
}

// currentCaptain returns the player holding the captain flag, dead or
// alive. A dead captain keeps the flag until the transfer resolves so
// uniqueness holds throughout.
func currentCaptain(room *models.Room) *models.Player {
	for _, p := range room.Players {
		if p.IsCaptain {
			return p
		}
	}
	return nil
}

func isAlive(room *models.Room, id string) bool {
	p, ok := room.Players[id]
	return ok && p.Status == models.StatusAlive
}

// killPlayers marks the given players dead and cascades linked-fate
// bonds to a fixed point. Returns every player that died, cascade
// victims included, in deterministic order.
func (e *Engine) killPlayers(room *models.Room, ids ...string) []string {
	var died []string
	for _, id := range ids {
		if p, ok := room.Players[id]; ok && p.Status == models.StatusAlive {
			p.Status = models.StatusDead
			died = append(died, id)
			e.appendLog(room, "death", p.Name+" died", "", id)
		}
	}
	died = append(died, e.cascadeLinks(room)...)
	return died
}

// cascadeLinks repeatedly scans linked pairs: a living player whose
// linked partner is dead dies too, until no further deaths occur.
// Chains through multiple bonds are possible.
func (e *Engine) cascadeLinks(room *models.Room) []string {
	var died []string
	for {
		changed := false
		for _, p := range room.Players {
			if p.Status != models.StatusAlive || p.LinkedTo == "" {
				continue
			}
			partner, ok := room.Players[p.LinkedTo]
			if ok && partner.Status == models.StatusDead {
				p.Status = models.StatusDead
				died = append(died, p.ID)
				e.appendLog(room, "death", p.Name+" died of a broken link", "", p.ID)
				changed = true
			}
		}
		if !changed {
			return died
		}
	}
}
