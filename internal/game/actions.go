package game

import (
	"time"

	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// ActionType enumerates inbound player intents
type ActionType string

const (
	ActionAck          ActionType = "ack"
	ActionCandidacy    ActionType = "candidacy"
	ActionVote         ActionType = "vote"
	ActionNight        ActionType = "night"
	ActionPickRole     ActionType = "pick_role"
	ActionForceAdvance ActionType = "force_advance"
)

// Action is one submitted player intent. Handlers translate wire
// messages into Actions; the engine validates and records them.
type Action struct {
	Type      ActionType
	TargetID  string
	Kind      string
	Candidacy bool
	RoleKey   models.Role
}

// Rejection explains why an action was a no-op. The room state is
// untouched on rejection; the client just sees its action not
// reflected in the next state push.
type Rejection struct {
	Reason string
}

func reject(reason string) *Rejection {
	return &Rejection{Reason: reason}
}

// Apply validates and records one action, then synchronously evaluates
// the phase-completion gate. It returns nil when the action was
// accepted. Actions only record intent; all mutation of roles, links,
// potions and lives happens at phase resolution, which is what makes
// resubmission overwrite instead of append.
func (e *Engine) Apply(room *models.Room, playerID string, a Action) *Rejection {
	room.Lock()
	defer room.Unlock()

	if room.Ended || room.Aborted {
		return reject("game is over")
	}

	p, ok := room.Players[playerID]
	if !ok || p.Status == models.StatusLeft {
		return reject("not in this room")
	}

	var rej *Rejection
	switch a.Type {
	case ActionAck:
		rej = e.applyAck(room, p)
	case ActionCandidacy:
		rej = e.applyCandidacy(room, p, a.Candidacy)
	case ActionVote:
		rej = e.applyVote(room, p, a.TargetID)
	case ActionNight:
		rej = e.applyNightAction(room, p, a.Kind, a.TargetID)
	case ActionPickRole:
		rej = e.applyPickRole(room, p, a.RoleKey)
	case ActionForceAdvance:
		return e.applyForceAdvance(room, p)
	default:
		return reject("unknown action")
	}
	if rej != nil {
		return rej
	}

	room.PhaseAck[p.ID] = true
	e.checkCompletion(room)
	return nil
}

// ackPhases are the phases completed by a bare acknowledgment
var ackPhases = map[models.Phase]bool{
	models.PhaseRoleReveal:      true,
	models.PhaseNightStart:      true,
	models.PhaseNightAIExchange: true,
	models.PhaseNightResults:    true,
	models.PhaseDayWake:         true,
	models.PhaseDayResults:      true,
}

func (e *Engine) applyAck(room *models.Room, p *models.Player) *Rejection {
	if !ackPhases[room.Phase] {
		return reject("nothing to acknowledge")
	}
	if !inRequiredSet(e.requiredSet(room), p.ID) {
		return reject("not required this phase")
	}
	return nil
}

func (e *Engine) applyCandidacy(room *models.Room, p *models.Player, runs bool) *Rejection {
	if room.Phase != models.PhaseCaptainCandidacy {
		return reject("wrong phase")
	}
	if p.Status != models.StatusAlive {
		return reject("dead players cannot run")
	}
	room.PhaseData.Candidacies[p.ID] = runs
	return nil
}

func (e *Engine) applyVote(room *models.Room, p *models.Player, targetID string) *Rejection {
	switch room.Phase {
	case models.PhaseCaptainVote:
		if p.Status != models.StatusAlive {
			return reject("dead players cannot vote")
		}
		if !contains(room.PhaseData.Candidates, targetID) {
			return reject("target is not a candidate")
		}
	case models.PhaseDayVote:
		if p.Status != models.StatusAlive {
			return reject("dead players cannot vote")
		}
		if !isAlive(room, targetID) {
			return reject("target is not alive")
		}
	case models.PhaseDayTiebreak:
		if !p.IsCaptain || p.Status != models.StatusAlive {
			return reject("only the captain breaks ties")
		}
		if !contains(room.PhaseData.Candidates, targetID) {
			return reject("target is not among the tied")
		}
	case models.PhaseDayCaptainTransfer:
		if !p.IsCaptain || p.Status != models.StatusDead {
			return reject("only the fallen captain chooses")
		}
		if !isAlive(room, targetID) {
			return reject("target is not alive")
		}
	default:
		return reject("no vote in this phase")
	}
	room.PhaseData.Votes[p.ID] = targetID
	return nil
}

func (e *Engine) applyNightAction(room *models.Room, p *models.Player, kind, targetID string) *Rejection {
	switch room.Phase {
	case models.PhaseNightChameleon:
		return e.recordChameleon(room, p, kind, targetID)
	case models.PhaseNightAIAgent:
		return e.recordAIAgent(room, p, kind, targetID)
	case models.PhaseNightRadar:
		return e.recordRadar(room, p, kind, targetID)
	case models.PhaseNightSaboteurs:
		return e.recordSaboteurVote(room, p, targetID)
	case models.PhaseNightDoctor:
		return e.recordDoctor(room, p, kind, targetID)
	case models.PhaseRevenge:
		return e.recordRevenge(room, p, kind, targetID)
	default:
		return reject("no night action in this phase")
	}
}

func (e *Engine) recordChameleon(room *models.Room, p *models.Player, kind, targetID string) *Rejection {
	if p.Role != models.RoleChameleon || p.Status != models.StatusAlive {
		return reject("not the chameleon")
	}
	if room.ChameleonUsed {
		return reject("ability already used")
	}
	switch kind {
	case "swap":
		if !isAlive(room, targetID) || targetID == p.ID {
			return reject("invalid swap target")
		}
		room.PhaseData.NightChoices[p.ID] = "swap"
		room.PhaseData.Votes[p.ID] = targetID
	case "skip":
		room.PhaseData.NightChoices[p.ID] = "skip"
		delete(room.PhaseData.Votes, p.ID)
	default:
		return reject("unknown chameleon action")
	}
	return nil
}

func (e *Engine) recordAIAgent(room *models.Room, p *models.Player, kind, targetID string) *Rejection {
	if p.Role != models.RoleAIAgent || p.Status != models.StatusAlive {
		return reject("not the agent")
	}
	switch kind {
	case "link":
		if !isAlive(room, targetID) || targetID == p.ID {
			return reject("invalid link target")
		}
		room.PhaseData.NightChoices[p.ID] = "link"
		room.PhaseData.Votes[p.ID] = targetID
	case "skip":
		// linking is optional
		room.PhaseData.NightChoices[p.ID] = "skip"
		delete(room.PhaseData.Votes, p.ID)
	default:
		return reject("unknown agent action")
	}
	return nil
}

func (e *Engine) recordRadar(room *models.Room, p *models.Player, kind, targetID string) *Rejection {
	if p.Role != models.RoleRadar || p.Status != models.StatusAlive {
		return reject("not the radar operator")
	}
	if kind != "inspect" {
		return reject("unknown radar action")
	}
	if !isAlive(room, targetID) || targetID == p.ID {
		return reject("invalid inspection target")
	}
	room.PhaseData.Inspections[p.ID] = targetID
	return nil
}

func (e *Engine) recordSaboteurVote(room *models.Room, p *models.Player, targetID string) *Rejection {
	if !roles.IsSaboteur(p.Role) || p.Status != models.StatusAlive {
		return reject("not a saboteur")
	}
	target, ok := room.Players[targetID]
	if !ok || target.Status != models.StatusAlive {
		return reject("target is not alive")
	}
	if roles.IsSaboteur(target.Role) {
		return reject("cannot target a fellow saboteur")
	}
	room.PhaseData.Votes[p.ID] = targetID
	return nil
}

func (e *Engine) recordDoctor(room *models.Room, p *models.Player, kind, targetID string) *Rejection {
	if p.Role != models.RoleDoctor || p.Status != models.StatusAlive {
		return reject("not the doctor")
	}
	switch kind {
	case "life":
		if room.DoctorLifeUsed {
			return reject("life potion already used")
		}
		if room.NightTarget == "" {
			return reject("no one to save tonight")
		}
		room.PhaseData.DoctorActions[p.ID] = "life"
		delete(room.PhaseData.Votes, p.ID)
	case "death":
		if room.DoctorDeathUsed {
			return reject("death potion already used")
		}
		if !isAlive(room, targetID) {
			return reject("target is not alive")
		}
		room.PhaseData.DoctorActions[p.ID] = "death"
		room.PhaseData.Votes[p.ID] = targetID
	case "pass":
		room.PhaseData.DoctorActions[p.ID] = "pass"
		delete(room.PhaseData.Votes, p.ID)
	default:
		return reject("unknown doctor action")
	}
	return nil
}

func (e *Engine) recordRevenge(room *models.Room, p *models.Player, kind, targetID string) *Rejection {
	if room.Revenge == nil || room.Revenge.ShooterID != p.ID {
		return reject("no revenge pending for you")
	}
	switch kind {
	case "shoot":
		if !isAlive(room, targetID) {
			return reject("target is not alive")
		}
		room.PhaseData.NightChoices[p.ID] = "shoot"
		room.PhaseData.Votes[p.ID] = targetID
	case "pass":
		room.PhaseData.NightChoices[p.ID] = "pass"
		delete(room.PhaseData.Votes, p.ID)
	default:
		return reject("unknown revenge action")
	}
	return nil
}

func (e *Engine) applyPickRole(room *models.Room, p *models.Player, role models.Role) *Rejection {
	if room.Phase != models.PhaseManualRolePick {
		return reject("wrong phase")
	}
	if p.Status != models.StatusAlive {
		return reject("not in the game")
	}
	return e.pickRole(room, p, role)
}

// applyForceAdvance is the host escape hatch for a stalled phase,
// guarded by a minimum elapsed time since phase entry
func (e *Engine) applyForceAdvance(room *models.Room, p *models.Player) *Rejection {
	if p.ID != room.HostID {
		return reject("only the host can force advance")
	}
	if !room.Started {
		return reject("game not started")
	}
	if time.Since(room.PhaseStartedAt) < e.rules.ForceAdvanceDelay {
		return reject("too early to force advance")
	}
	e.appendLog(room, "force", "the host forced the phase forward", p.ID, "")
	e.logger.Info().Str("room", room.Code).Str("phase", string(room.Phase)).Msg("force advance")
	e.forceCompletion(room)
	return nil
}

func inRequiredSet(required []string, id string) bool {
	return contains(required, id)
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
