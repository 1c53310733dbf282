package game

import (
	"time"

	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// nightOrder is the fixed sequence of night sub-phases; each is entered
// only when its skip conditions allow
var nightOrder = []models.Phase{
	models.PhaseNightChameleon,
	models.PhaseNightAIAgent,
	models.PhaseNightAIExchange,
	models.PhaseNightRadar,
	models.PhaseNightSaboteurs,
	models.PhaseNightDoctor,
}

// requiredSet computes, for the current phase, the player ids whose
// acknowledgment is necessary for the phase to complete. Left players
// are never required.
func (e *Engine) requiredSet(room *models.Room) []string {
	switch room.Phase {
	case models.PhaseManualRolePick,
		models.PhaseRoleReveal,
		models.PhaseCaptainCandidacy,
		models.PhaseCaptainVote,
		models.PhaseNightStart,
		models.PhaseNightResults,
		models.PhaseDayWake,
		models.PhaseDayVote,
		models.PhaseDayResults:
		return aliveIDs(room)

	case models.PhaseNightChameleon:
		return roleIDs(room, models.RoleChameleon)
	case models.PhaseNightAIAgent:
		return roleIDs(room, models.RoleAIAgent)
	case models.PhaseNightAIExchange:
		return linkedPairIDs(room)
	case models.PhaseNightRadar:
		return roleIDs(room, models.RoleRadar)
	case models.PhaseNightSaboteurs:
		var ids []string
		for _, p := range aliveSaboteurs(room) {
			ids = append(ids, p.ID)
		}
		return ids
	case models.PhaseNightDoctor:
		return roleIDs(room, models.RoleDoctor)

	case models.PhaseRevenge:
		if room.Revenge != nil {
			if p, ok := room.Players[room.Revenge.ShooterID]; ok && p.Status != models.StatusLeft {
				return []string{room.Revenge.ShooterID}
			}
		}
		return nil
	case models.PhaseDayCaptainTransfer:
		if cap := currentCaptain(room); cap != nil && cap.Status == models.StatusDead {
			return []string{cap.ID}
		}
		return nil
	case models.PhaseDayTiebreak:
		if cap := currentCaptain(room); cap != nil && cap.Status == models.StatusAlive {
			return []string{cap.ID}
		}
		return nil
	}
	return nil
}

func roleIDs(room *models.Room, role models.Role) []string {
	var ids []string
	for _, p := range aliveWithRole(room, role) {
		ids = append(ids, p.ID)
	}
	return ids
}

// linkedPairIDs returns the living members of the AI-agent bond
func linkedPairIDs(room *models.Room) []string {
	var ids []string
	for _, p := range aliveWithRole(room, models.RoleAIAgent) {
		if p.LinkedTo == "" {
			continue
		}
		ids = append(ids, p.ID)
		if isAlive(room, p.LinkedTo) {
			ids = append(ids, p.LinkedTo)
		}
	}
	return ids
}

// transition moves the room to the next phase, recording the phase
// being left and resetting phase-scoped state. Entry effects for
// counter phases run here.
func (e *Engine) transition(room *models.Room, next models.Phase) {
	room.PrevPhase = room.Phase
	room.Phase = next
	room.PhaseData = models.NewPhaseData()
	room.PhaseAck = make(map[string]bool)
	room.PhaseStartedAt = time.Now()

	switch next {
	case models.PhaseNightStart:
		room.Night++
		room.NightTarget = ""
		room.NightSaved = false
		room.PoisonedID = ""
		room.PendingDeaths = nil
		e.appendLog(room, "phase", "night falls", "", "")
	case models.PhaseDayWake:
		room.Day++
		e.appendLog(room, "phase", "the crew wakes up", "", "")
	case models.PhaseNightResults, models.PhaseDayResults:
		room.PhaseData.Deaths = append([]string(nil), room.PendingDeaths...)
		room.Revenge = nil
	}

	e.logger.Debug().Str("room", room.Code).
		Str("from", string(room.PrevPhase)).Str("to", string(next)).
		Msg("phase transition")
}

// checkCompletion advances the room when every required player has
// acknowledged the current phase. Evaluated synchronously after each
// accepted action.
func (e *Engine) checkCompletion(room *models.Room) {
	if room.Ended || room.Aborted {
		return
	}
	for _, id := range e.requiredSet(room) {
		if !room.PhaseAck[id] {
			return
		}
	}
	e.resolvePhase(room)
}

// forceCompletion marks every missing required ack as done (missing
// votes stay missing, ability phases resolve as pass) and resolves
func (e *Engine) forceCompletion(room *models.Room) {
	for _, id := range e.requiredSet(room) {
		room.PhaseAck[id] = true
	}
	e.resolvePhase(room)
}

// resolvePhase applies the completing phase's outcome and transitions
func (e *Engine) resolvePhase(room *models.Room) {
	switch room.Phase {
	case models.PhaseManualRolePick:
		if !manualPickComplete(room) {
			return // pool not exhausted yet; completion gate stays shut
		}
		e.transition(room, models.PhaseRoleReveal)

	case models.PhaseRoleReveal:
		if room.PrevPhase == models.PhaseNightChameleon {
			// reveal replay after the swap; resume the night sequence
			e.gotoNightPhase(room, e.nightPhaseAfter(room, models.PhaseNightChameleon))
			return
		}
		e.transition(room, models.PhaseCaptainCandidacy)

	case models.PhaseCaptainCandidacy:
		e.resolveCandidacy(room)

	case models.PhaseCaptainVote:
		e.resolveCaptainVote(room)

	case models.PhaseNightStart:
		e.gotoNightPhase(room, e.nightPhaseAfter(room, ""))

	case models.PhaseNightChameleon:
		e.resolveChameleon(room)

	case models.PhaseNightAIAgent:
		e.resolveAIAgent(room)

	case models.PhaseNightAIExchange, models.PhaseNightRadar:
		e.gotoNightPhase(room, e.nightPhaseAfter(room, room.Phase))

	case models.PhaseNightSaboteurs:
		e.resolveSaboteurVotes(room)
		e.gotoNightPhase(room, e.nightPhaseAfter(room, room.Phase))

	case models.PhaseNightDoctor:
		e.resolveDoctor(room)
		e.gotoNightPhase(room, e.nightPhaseAfter(room, room.Phase))

	case models.PhaseRevenge:
		e.resolveRevenge(room)

	case models.PhaseNightResults:
		e.transition(room, models.PhaseDayWake)

	case models.PhaseDayWake:
		e.enterDay(room)

	case models.PhaseDayCaptainTransfer:
		e.resolveCaptainTransfer(room)

	case models.PhaseDayVote:
		e.resolveDayVote(room)

	case models.PhaseDayTiebreak:
		e.resolveTiebreak(room)

	case models.PhaseDayResults:
		e.transition(room, models.PhaseNightStart)
	}
}

// nightPhaseAfter returns the next non-skipped night sub-phase after
// current ("" means start of the sequence); empty result means the
// night is over and resolution runs.
func (e *Engine) nightPhaseAfter(room *models.Room, current models.Phase) models.Phase {
	idx := 0
	if current != "" {
		for i, p := range nightOrder {
			if p == current {
				idx = i + 1
				break
			}
		}
	}
	for _, p := range nightOrder[idx:] {
		if !e.skipNightPhase(room, p) {
			return p
		}
	}
	return ""
}

// skipNightPhase implements the conditional skip rules: role disabled,
// no living holder, or single-use ability already consumed
func (e *Engine) skipNightPhase(room *models.Room, p models.Phase) bool {
	cfg := room.Config.Roles
	switch p {
	case models.PhaseNightChameleon:
		return !cfg.Chameleon || room.Night != 1 || room.ChameleonUsed ||
			len(aliveWithRole(room, models.RoleChameleon)) == 0
	case models.PhaseNightAIAgent:
		if !cfg.AIAgent || room.Night != 1 {
			return true
		}
		agents := aliveWithRole(room, models.RoleAIAgent)
		return len(agents) == 0 || agents[0].LinkedTo != ""
	case models.PhaseNightAIExchange:
		return room.Night != 1 || len(linkedPairIDs(room)) < 2
	case models.PhaseNightRadar:
		return !cfg.Radar || len(aliveWithRole(room, models.RoleRadar)) == 0
	case models.PhaseNightSaboteurs:
		return len(aliveSaboteurs(room)) == 0
	case models.PhaseNightDoctor:
		return !cfg.Doctor || len(aliveWithRole(room, models.RoleDoctor)) == 0 ||
			(room.DoctorLifeUsed && room.DoctorDeathUsed)
	}
	return true
}

func (e *Engine) gotoNightPhase(room *models.Room, p models.Phase) {
	if p == "" {
		e.resolveNight(room)
		return
	}
	e.transition(room, p)
}

func (e *Engine) resolveCandidacy(room *models.Room) {
	var candidates []string
	for _, p := range alivePlayers(room) {
		if room.PhaseData.Candidacies[p.ID] {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		e.transition(room, models.PhaseCaptainCandidacy)
		room.PhaseData.Reason = "no candidates, retry election"
		return
	}
	e.transition(room, models.PhaseCaptainVote)
	room.PhaseData.Candidates = candidates
}

func (e *Engine) resolveCaptainVote(room *models.Room) {
	candidates := room.PhaseData.Candidates
	top := pluralityWinners(room.PhaseData.Votes, candidates)
	switch len(top) {
	case 0:
		// forced advance with no votes: elect among all candidates
		e.electCaptain(room, candidates[e.rng.Intn(len(candidates))])
	case 1:
		e.electCaptain(room, top[0])
	default:
		// tie: revote restricted to the tied subset
		e.transition(room, models.PhaseCaptainVote)
		room.PhaseData.Candidates = top
		room.PhaseData.Reason = "tie, revote among tied candidates"
	}
}

func (e *Engine) electCaptain(room *models.Room, id string) {
	for _, p := range room.Players {
		p.IsCaptain = false
	}
	p := room.Players[id]
	p.IsCaptain = true
	e.appendLog(room, "captain", p.Name+" was elected captain", "", id)
	e.logger.Info().Str("room", room.Code).Str("captain", p.Name).Msg("captain elected")
	e.transition(room, models.PhaseNightStart)
}

// resolveSaboteurVotes enforces the unanimity rule: every living
// saboteur must have voted the identical non-saboteur target, else no
// kill happens tonight.
func (e *Engine) resolveSaboteurVotes(room *models.Room) {
	room.NightTarget = ""
	saboteurs := aliveSaboteurs(room)
	if len(saboteurs) == 0 {
		return
	}
	target := ""
	for _, s := range saboteurs {
		v, ok := room.PhaseData.Votes[s.ID]
		if !ok || v == "" {
			return
		}
		if target == "" {
			target = v
		} else if v != target {
			return
		}
	}
	if t, ok := room.Players[target]; !ok || roles.IsSaboteur(t.Role) || t.Status != models.StatusAlive {
		return
	}
	room.NightTarget = target
}

// resolveDoctor consumes potions according to the recorded intent.
// Intents are only applied here so in-phase resubmission overwrites
// cleanly.
func (e *Engine) resolveDoctor(room *models.Room) {
	for _, d := range aliveWithRole(room, models.RoleDoctor) {
		switch room.PhaseData.DoctorActions[d.ID] {
		case "life":
			if !room.DoctorLifeUsed && room.NightTarget != "" {
				room.NightSaved = true
				room.DoctorLifeUsed = true
				e.appendLog(room, "doctor", "the doctor used the life potion", "", "")
			}
		case "death":
			target := room.PhaseData.Votes[d.ID]
			if !room.DoctorDeathUsed && isAlive(room, target) {
				room.PoisonedID = target
				room.DoctorDeathUsed = true
				e.appendLog(room, "doctor", "the doctor used the death potion", "", "")
			}
		}
	}
}

func (e *Engine) resolveChameleon(room *models.Room) {
	for _, c := range aliveWithRole(room, models.RoleChameleon) {
		if room.PhaseData.NightChoices[c.ID] != "swap" {
			continue
		}
		target := room.Players[room.PhaseData.Votes[c.ID]]
		if target == nil || target.Status != models.StatusAlive || room.ChameleonUsed {
			continue
		}
		c.Role, target.Role = target.Role, c.Role
		room.ChameleonUsed = true
		e.appendLog(room, "chameleon", "two roles were secretly exchanged", "", "")
		e.logger.Info().Str("room", room.Code).Msg("chameleon swap, replaying role reveal")
		// everyone must re-confirm what they now are
		e.transition(room, models.PhaseRoleReveal)
		return
	}
	e.gotoNightPhase(room, e.nightPhaseAfter(room, models.PhaseNightChameleon))
}

func (e *Engine) resolveAIAgent(room *models.Room) {
	for _, a := range aliveWithRole(room, models.RoleAIAgent) {
		if room.PhaseData.NightChoices[a.ID] != "link" {
			continue
		}
		target := room.Players[room.PhaseData.Votes[a.ID]]
		if target == nil || target.Status != models.StatusAlive || target.ID == a.ID {
			continue
		}
		a.LinkedTo = target.ID
		target.LinkedTo = a.ID
	}
	e.gotoNightPhase(room, e.nightPhaseAfter(room, models.PhaseNightAIAgent))
}

// resolveNight finalizes the night: applies the saboteur kill unless
// saved, the poison, and link cascades, then routes through revenge or
// straight to results.
func (e *Engine) resolveNight(room *models.Room) {
	var victims []string
	if room.NightTarget != "" && !room.NightSaved {
		victims = append(victims, room.NightTarget)
	}
	if room.PoisonedID != "" {
		victims = append(victims, room.PoisonedID)
	}
	room.PendingDeaths = e.killPlayers(room, victims...)
	e.afterDeaths(room, "night")
}

// enterDay routes DAY_WAKE completion: a dead connected captain picks a
// successor; a dead or absent disconnected captain triggers the random
// fallback.
func (e *Engine) enterDay(room *models.Room) {
	cap := currentCaptain(room)
	switch {
	case cap != nil && cap.Status == models.StatusAlive:
		e.transition(room, models.PhaseDayVote)
	case cap != nil && cap.Status == models.StatusDead && cap.Connected:
		e.transition(room, models.PhaseDayCaptainTransfer)
	default:
		e.fallbackCaptain(room)
		e.transition(room, models.PhaseDayVote)
	}
}

// fallbackCaptain hands the captaincy to a living player picked
// uniformly at random
func (e *Engine) fallbackCaptain(room *models.Room) {
	living := alivePlayers(room)
	if len(living) == 0 {
		return
	}
	e.electToCaptaincy(room, living[e.rng.Intn(len(living))].ID)
}

func (e *Engine) electToCaptaincy(room *models.Room, id string) {
	for _, p := range room.Players {
		p.IsCaptain = false
	}
	p := room.Players[id]
	p.IsCaptain = true
	e.appendLog(room, "captain", p.Name+" is the new captain", "", id)
}

// resolveCaptainTransfer hands the captaincy to the dead captain's
// pick; without a valid pick the random fallback applies
func (e *Engine) resolveCaptainTransfer(room *models.Room) {
	cap := currentCaptain(room)
	pick := ""
	if cap != nil {
		pick = room.PhaseData.Votes[cap.ID]
	}
	if isAlive(room, pick) {
		e.electToCaptaincy(room, pick)
	} else {
		e.fallbackCaptain(room)
	}
	e.transition(room, models.PhaseDayVote)
}

func (e *Engine) resolveDayVote(room *models.Room) {
	top := pluralityWinners(room.PhaseData.Votes, aliveIDs(room))
	switch len(top) {
	case 0:
		room.PendingDeaths = nil
		e.transition(room, models.PhaseDayResults)
	case 1:
		e.ejectPlayer(room, top[0])
	default:
		if cap := currentCaptain(room); cap != nil && cap.Status == models.StatusAlive {
			e.transition(room, models.PhaseDayTiebreak)
			room.PhaseData.Candidates = top
			return
		}
		if e.rules.RandomTiebreak {
			e.ejectPlayer(room, top[e.rng.Intn(len(top))])
			return
		}
		room.PendingDeaths = nil
		e.transition(room, models.PhaseDayResults)
	}
}

// resolveTiebreak applies the captain's pick; a forced advance without
// a pick ends the day with no ejection
func (e *Engine) resolveTiebreak(room *models.Room) {
	cap := currentCaptain(room)
	if cap == nil || cap.Status != models.StatusAlive {
		room.PendingDeaths = nil
		e.transition(room, models.PhaseDayResults)
		return
	}
	pick := room.PhaseData.Votes[cap.ID]
	if pick == "" {
		room.PendingDeaths = nil
		e.transition(room, models.PhaseDayResults)
		return
	}
	e.ejectPlayer(room, pick)
}

func (e *Engine) ejectPlayer(room *models.Room, id string) {
	if p, ok := room.Players[id]; ok {
		e.appendLog(room, "vote", p.Name+" was voted out", "", id)
	}
	room.PendingDeaths = e.killPlayers(room, id)
	e.afterDeaths(room, "day")
}

// afterDeaths runs after every death-causing event: abort check first,
// then the revenge interrupt for a freshly dead security chief, then
// the win check, then the results phase.
func (e *Engine) afterDeaths(room *models.Room, origin string) {
	if e.activeCount(room) < e.rules.MinActivePlayers {
		e.abortGame(room)
		return
	}

	if room.Revenge == nil {
		for _, id := range room.PendingDeaths {
			p := room.Players[id]
			if p != nil && p.Role == models.RoleSecurity {
				room.Revenge = &models.RevengeContext{
					ShooterID: id,
					Origin:    origin,
				}
				e.transition(room, models.PhaseRevenge)
				return
			}
		}
	}

	e.finishOrShowResults(room, origin)
}

// resolveRevenge applies the chief's last shot (or pass) and resumes
// the interrupted night/day flow
func (e *Engine) resolveRevenge(room *models.Room) {
	ctx := room.Revenge
	if ctx == nil {
		return
	}
	if room.PhaseData.NightChoices[ctx.ShooterID] == "shoot" {
		target := room.PhaseData.Votes[ctx.ShooterID]
		if isAlive(room, target) {
			shot := e.killPlayers(room, target)
			room.PendingDeaths = append(room.PendingDeaths, shot...)
			if p := room.Players[target]; p != nil {
				e.appendLog(room, "revenge", "the security chief took "+p.Name+" down", ctx.ShooterID, target)
			}
		}
	}

	if e.activeCount(room) < e.rules.MinActivePlayers {
		e.abortGame(room)
		return
	}
	e.finishOrShowResults(room, ctx.Origin)
}

func (e *Engine) finishOrShowResults(room *models.Room, origin string) {
	if winner, over := EvaluateWinner(room, e.rules.MinActivePlayers); over {
		if winner == models.WinnerAborted {
			e.abortGame(room)
			return
		}
		e.finishGame(room, winner)
		return
	}
	if origin == "night" {
		e.transition(room, models.PhaseNightResults)
	} else {
		e.transition(room, models.PhaseDayResults)
	}
}

func (e *Engine) finishGame(room *models.Room, winner models.Winner) {
	room.Winner = winner
	room.Ended = true
	e.appendLog(room, "game", "game over: "+string(winner)+" win", "", "")
	e.transition(room, models.PhaseGameOver)
	e.logger.Info().Str("room", room.Code).Str("winner", string(winner)).Msg("game over")
	e.recordStats(room, winner)
}

// abortGame is the hard stop when the room drops below viability
func (e *Engine) abortGame(room *models.Room) {
	room.Aborted = true
	room.Winner = models.WinnerAborted
	e.appendLog(room, "game", "game aborted: not enough players", "", "")
	e.transition(room, models.PhaseGameAborted)
	e.logger.Warn().Str("room", room.Code).Msg("game aborted")
}

// recordStats writes lifetime counters for every non-left player
func (e *Engine) recordStats(room *models.Room, winner models.Winner) {
	if e.stats == nil {
		return
	}
	if err := e.stats.RecordMatch(room.Code, winner, e.activeCount(room), room.Day); err != nil {
		e.logger.Error().Err(err).Str("room", room.Code).Msg("failed to record match")
	}
	for _, p := range room.Players {
		if p.Status == models.StatusLeft {
			continue
		}
		outcome := "loss"
		if playerWon(room, p, winner) {
			outcome = "win"
		}
		if err := e.stats.RecordGameResult(p.Name, p.Role, outcome); err != nil {
			e.logger.Error().Err(err).Str("player", p.Name).Msg("failed to record game result")
		}
	}
}

// playerWon applies the faction rule plus the lovers override
func playerWon(room *models.Room, p *models.Player, winner models.Winner) bool {
	switch winner {
	case models.WinnerCrew:
		return !roles.IsSaboteur(p.Role)
	case models.WinnerSaboteurs:
		return roles.IsSaboteur(p.Role)
	case models.WinnerLovers:
		if p.Status != models.StatusAlive || p.LinkedTo == "" {
			return false
		}
		partner, ok := room.Players[p.LinkedTo]
		return ok && partner.Status == models.StatusAlive && partner.LinkedTo == p.ID
	}
	return false
}

// pluralityWinners tallies votes restricted to eligible targets and
// returns every target holding the top count (one entry means a clear
// winner, more means a tie)
func pluralityWinners(votes map[string]string, eligible []string) []string {
	allowed := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		allowed[id] = true
	}
	counts := make(map[string]int)
	for _, target := range votes {
		if allowed[target] {
			counts[target]++
		}
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return nil
	}
	var top []string
	for _, id := range eligible {
		if counts[id] == max {
			top = append(top, id)
		}
	}
	return top
}
