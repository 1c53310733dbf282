package roles

import "github.com/saboteurs-game/backend/internal/models"

// Info describes one catalog entry
type Info struct {
	Faction models.Faction
	Special bool // competes for a finite pool slot against plain crew
}

// catalog is the static role table consulted by every other component
var catalog = map[models.Role]Info{
	models.RoleCrew:      {Faction: models.FactionCrew},
	models.RoleSaboteur:  {Faction: models.FactionSaboteur},
	models.RoleDoctor:    {Faction: models.FactionCrew, Special: true},
	models.RoleSecurity:  {Faction: models.FactionCrew, Special: true},
	models.RoleRadar:     {Faction: models.FactionCrew, Special: true},
	models.RoleAIAgent:   {Faction: models.FactionCrew, Special: true},
	models.RoleEngineer:  {Faction: models.FactionCrew, Special: true},
	models.RoleChameleon: {Faction: models.FactionCrew, Special: true},
}

// Lookup returns the catalog entry for a role key
func Lookup(role models.Role) (Info, bool) {
	info, ok := catalog[role]
	return info, ok
}

// FactionOf returns the faction a role belongs to. Unknown roles
// (including the empty pre-assignment role) count as crew.
func FactionOf(role models.Role) models.Faction {
	if info, ok := catalog[role]; ok {
		return info.Faction
	}
	return models.FactionCrew
}

// IsSaboteur reports whether a role belongs to the saboteur faction
func IsSaboteur(role models.Role) bool {
	return FactionOf(role) == models.FactionSaboteur
}

// SaboteurCount returns how many saboteurs a game of n players gets
func SaboteurCount(n int) int {
	switch {
	case n <= 6:
		return 1
	case n <= 11:
		return 2
	default:
		return 3
	}
}

// enabledSpecials lists the enabled special roles in a fixed order so
// pool construction is deterministic before the shuffle
func enabledSpecials(enabled models.RolesEnabled) []models.Role {
	var specials []models.Role
	if enabled.Doctor {
		specials = append(specials, models.RoleDoctor)
	}
	if enabled.Security {
		specials = append(specials, models.RoleSecurity)
	}
	if enabled.Radar {
		specials = append(specials, models.RoleRadar)
	}
	if enabled.AIAgent {
		specials = append(specials, models.RoleAIAgent)
	}
	if enabled.Engineer {
		specials = append(specials, models.RoleEngineer)
	}
	if enabled.Chameleon {
		specials = append(specials, models.RoleChameleon)
	}
	return specials
}

// BuildPool builds a role pool of exactly n entries: saboteurs first,
// then as many enabled specials as slots allow, then plain crew filler.
func BuildPool(n int, enabled models.RolesEnabled) []models.Role {
	pool := make([]models.Role, 0, n)

	saboteurs := SaboteurCount(n)
	for i := 0; i < saboteurs; i++ {
		pool = append(pool, models.RoleSaboteur)
	}

	for _, role := range enabledSpecials(enabled) {
		if len(pool) >= n {
			break
		}
		pool = append(pool, role)
	}

	for len(pool) < n {
		pool = append(pool, models.RoleCrew)
	}

	return pool
}

// PoolCounts returns the pool as remaining-count-per-role, used to
// drive the manual pick flow
func PoolCounts(pool []models.Role) map[models.Role]int {
	counts := make(map[models.Role]int)
	for _, role := range pool {
		counts[role]++
	}
	return counts
}
