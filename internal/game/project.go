package game

import (
	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// PlayerView is a player as one specific viewer is allowed to see them
type PlayerView struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    models.PlayerStatus `json:"status"`
	Role      models.Role         `json:"role,omitempty"`
	IsCaptain bool                `json:"isCaptain"`
	LinkedTo  string              `json:"linkedTo,omitempty"`
	Connected bool                `json:"connected"`
}

// AckSummary shows who is holding up the current phase. Intentionally
// public.
type AckSummary struct {
	Done    int      `json:"done"`
	Total   int      `json:"total"`
	Pending []string `json:"pending"`
}

// TeamCounts are the living headcounts per faction
type TeamCounts struct {
	Crew      int `json:"crew"`
	Saboteurs int `json:"saboteurs"`
}

// RadarReading is a radar result, visible only to the inspector and
// only for the current phase
type RadarReading struct {
	TargetID string         `json:"targetId"`
	Faction  models.Faction `json:"faction"`
	Role     models.Role    `json:"role"`
}

// PhaseView is the viewer-specific slice of phase data
type PhaseView struct {
	Candidates     []string            `json:"candidates,omitempty"`
	YourVote       string              `json:"yourVote,omitempty"`
	YourCandidacy  *bool               `json:"yourCandidacy,omitempty"`
	SaboteurVotes  map[string]string   `json:"saboteurVotes,omitempty"`
	RemainingRoles map[models.Role]int `json:"remainingRoles,omitempty"`
	Radar          *RadarReading       `json:"radar,omitempty"`
	NightVictim    string              `json:"nightVictim,omitempty"`
	Deaths         []string            `json:"deaths,omitempty"`
	Reason         string              `json:"reason,omitempty"`
}

// VideoPermission is the per-player conferencing tuple consumed by the
// video SDK binding; it is a signal, not server-side enforcement
type VideoPermission struct {
	Video  bool   `json:"video"`
	Audio  bool   `json:"audio"`
	Reason string `json:"reason"`
}

// Snapshot is the full redacted state pushed to one viewer
type Snapshot struct {
	RoomCode         string                     `json:"roomCode"`
	HostID           string                     `json:"hostId"`
	Config           models.RoomConfig          `json:"config"`
	Phase            models.Phase               `json:"phase"`
	PrevPhase        models.Phase               `json:"prevPhase,omitempty"`
	Day              int                        `json:"day"`
	Night            int                        `json:"night"`
	Started          bool                       `json:"started"`
	Ended            bool                       `json:"ended"`
	Aborted          bool                       `json:"aborted"`
	Winner           models.Winner              `json:"winner,omitempty"`
	Players          []PlayerView               `json:"players"`
	You              *PlayerView                `json:"you,omitempty"`
	Teams            TeamCounts                 `json:"teams"`
	PhaseData        PhaseView                  `json:"phaseData"`
	Logs             []models.MatchEvent        `json:"logs"`
	Ack              AckSummary                 `json:"ack"`
	VideoPermissions map[string]VideoPermission `json:"videoPermissions"`
}

// Snapshot builds the redacted per-viewer state push. It locks the room
// for a consistent read; project is the pure core.
func (e *Engine) Snapshot(room *models.Room, viewerID string) Snapshot {
	room.Lock()
	defer room.Unlock()
	return e.project(room, viewerID)
}

// project is a pure function of full state plus viewer id: no side
// effects, recomputed from scratch on every broadcast. The snapshot
// shares no maps or slices with the room, so callers may marshal it
// after the room lock is released.
func (e *Engine) project(room *models.Room, viewerID string) Snapshot {
	viewer := room.Players[viewerID]
	revealAll := room.Ended || room.Aborted

	snap := Snapshot{
		RoomCode:         room.Code,
		HostID:           room.HostID,
		Config:           room.Config,
		Phase:            room.Phase,
		PrevPhase:        room.PrevPhase,
		Day:              room.Day,
		Night:            room.Night,
		Started:          room.Started,
		Ended:            room.Ended,
		Aborted:          room.Aborted,
		Winner:           room.Winner,
		Logs:             append([]models.MatchEvent(nil), room.MatchLog...),
		VideoPermissions: e.videoPermissions(room),
	}

	crew, saboteurs := aliveFactionCounts(room)
	snap.Teams = TeamCounts{Crew: crew, Saboteurs: saboteurs}

	for _, p := range rosterOrder(room) {
		view := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Status:    p.Status,
			IsCaptain: p.IsCaptain,
			Connected: p.Connected,
		}
		if roleVisible(viewer, p, revealAll) {
			view.Role = p.Role
		}
		if linkVisible(viewer, p, revealAll) {
			view.LinkedTo = p.LinkedTo
		}
		snap.Players = append(snap.Players, view)
		if p.ID == viewerID {
			you := view
			snap.You = &you
		}
	}

	snap.PhaseData = e.projectPhaseData(room, viewer)
	snap.Ack = e.ackSummary(room)
	return snap
}

// roleVisible: own role, game over, or saboteurs seeing each other
func roleVisible(viewer, subject *models.Player, revealAll bool) bool {
	if revealAll {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.ID == subject.ID {
		return true
	}
	return roles.IsSaboteur(viewer.Role) && roles.IsSaboteur(subject.Role)
}

// linkVisible: a bond is known to its two members only, until game end
func linkVisible(viewer, subject *models.Player, revealAll bool) bool {
	if revealAll {
		return true
	}
	if viewer == nil {
		return false
	}
	return viewer.ID == subject.ID || viewer.ID == subject.LinkedTo
}

func (e *Engine) projectPhaseData(room *models.Room, viewer *models.Player) PhaseView {
	pd := room.PhaseData
	view := PhaseView{
		Candidates: append([]string(nil), pd.Candidates...),
		Reason:     pd.Reason,
	}

	if viewer == nil {
		return view
	}

	switch room.Phase {
	case models.PhaseManualRolePick:
		view.RemainingRoles = copyRoleCounts(pd.Picks)

	case models.PhaseCaptainCandidacy:
		if runs, ok := pd.Candidacies[viewer.ID]; ok {
			r := runs
			view.YourCandidacy = &r
		}

	case models.PhaseCaptainVote, models.PhaseDayVote, models.PhaseDayTiebreak,
		models.PhaseDayCaptainTransfer:
		// public votes are reduced to "your own vote" mid-phase
		view.YourVote = pd.Votes[viewer.ID]

	case models.PhaseNightSaboteurs:
		// the live tally is team-visible for living saboteurs only
		if roles.IsSaboteur(viewer.Role) && viewer.Status == models.StatusAlive {
			view.SaboteurVotes = copyStringMap(pd.Votes)
			view.YourVote = pd.Votes[viewer.ID]
		}

	case models.PhaseNightRadar:
		if target, ok := pd.Inspections[viewer.ID]; ok {
			if t, exists := room.Players[target]; exists {
				view.Radar = &RadarReading{
					TargetID: target,
					Faction:  roles.FactionOf(t.Role),
					Role:     t.Role,
				}
			}
		}

	case models.PhaseNightDoctor:
		if viewer.Role == models.RoleDoctor && viewer.Status == models.StatusAlive {
			view.NightVictim = room.NightTarget
			view.YourVote = pd.Votes[viewer.ID]
		}

	case models.PhaseRevenge:
		if room.Revenge != nil && viewer.ID == room.Revenge.ShooterID {
			view.YourVote = pd.Votes[viewer.ID]
		}

	case models.PhaseNightResults, models.PhaseDayResults:
		view.Deaths = append([]string(nil), pd.Deaths...)
	}

	return view
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyRoleCounts(m map[models.Role]int) map[models.Role]int {
	out := make(map[models.Role]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e *Engine) ackSummary(room *models.Room) AckSummary {
	required := e.requiredSet(room)
	summary := AckSummary{Total: len(required)}
	for _, id := range required {
		if room.PhaseAck[id] {
			summary.Done++
		} else {
			summary.Pending = append(summary.Pending, id)
		}
	}
	return summary
}

// nightPhases are the sub-phases during which the room goes dark
var nightPhases = map[models.Phase]bool{
	models.PhaseNightStart:      true,
	models.PhaseNightChameleon:  true,
	models.PhaseNightAIAgent:    true,
	models.PhaseNightAIExchange: true,
	models.PhaseNightRadar:      true,
	models.PhaseNightSaboteurs:  true,
	models.PhaseNightDoctor:     true,
	models.PhaseRevenge:         true,
}

// videoPermissions recomputes the conferencing tuple for every player
// from phase, role and status
func (e *Engine) videoPermissions(room *models.Room) map[string]VideoPermission {
	perms := make(map[string]VideoPermission, len(room.Players))
	for _, p := range room.Players {
		perms[p.ID] = e.videoPermission(room, p)
	}
	return perms
}

func (e *Engine) videoPermission(room *models.Room, p *models.Player) VideoPermission {
	if p.Status == models.StatusLeft {
		return VideoPermission{Reason: "left"}
	}
	if room.Ended || room.Aborted {
		return VideoPermission{Video: true, Audio: true, Reason: "game_over"}
	}
	if p.Status == models.StatusDead {
		return VideoPermission{Reason: "eliminated"}
	}
	if !nightPhases[room.Phase] {
		return VideoPermission{Video: true, Audio: true, Reason: "open"}
	}

	switch room.Phase {
	case models.PhaseNightSaboteurs:
		if roles.IsSaboteur(p.Role) {
			return VideoPermission{Video: true, Audio: true, Reason: "saboteurs_wake"}
		}
	case models.PhaseNightAIExchange:
		if contains(linkedPairIDs(room), p.ID) {
			return VideoPermission{Video: true, Audio: true, Reason: "linked_pair"}
		}
	case models.PhaseRevenge:
		if room.Revenge != nil && p.ID == room.Revenge.ShooterID {
			return VideoPermission{Video: true, Audio: true, Reason: "revenge"}
		}
	}
	return VideoPermission{Reason: "night"}
}

// rosterOrder returns players in stable join order regardless of status
func rosterOrder(room *models.Room) []*models.Player {
	out := make([]*models.Player, 0, len(room.Players))
	for _, p := range room.Players {
		out = append(out, p)
	}
	sortPlayers(out)
	return out
}
