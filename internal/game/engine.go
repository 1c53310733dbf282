package game

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/saboteurs-game/backend/internal/models"
	"github.com/saboteurs-game/backend/internal/roles"
)

// Rules holds the tunable game constants. The reconnection grace, the
// force-advance guard and the day-vote random fallback are deliberately
// configuration, not hard-coded behavior.
type Rules struct {
	MinActivePlayers  int
	MaxPlayers        int
	ForceAdvanceDelay time.Duration
	ReconnectGrace    time.Duration
	MatchLogCap       int
	RandomTiebreak    bool // day-vote tie with no living captain: eject a random tied player
}

// DefaultRules returns the standard rule set
func DefaultRules() Rules {
	return Rules{
		MinActivePlayers:  4,
		MaxPlayers:        12,
		ForceAdvanceDelay: 30 * time.Second,
		ReconnectGrace:    60 * time.Second,
		MatchLogCap:       200,
		RandomTiebreak:    true,
	}
}

// Recorder persists lifetime per-player results at game end
type Recorder interface {
	RecordGameResult(name string, role models.Role, outcome string) error
	RecordMatch(roomCode string, winner models.Winner, players, days int) error
}

// Engine drives room state forward. It owns no rooms itself; every
// method takes the room it operates on and serializes through the
// room's mutex.
type Engine struct {
	rules  Rules
	stats  Recorder
	rng    *rand.Rand
	logger zerolog.Logger
}

// NewEngine creates an engine. stats may be nil when no persistence is
// attached (tests).
func NewEngine(rules Rules, stats Recorder, logger zerolog.Logger) *Engine {
	return &Engine{
		rules:  rules,
		stats:  stats,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Rules exposes the engine's rule set (handlers need the grace duration)
func (e *Engine) Rules() Rules {
	return e.rules
}

// StartGame freezes the lobby config, builds the role pool and moves the
// room out of LOBBY. Only the host may start.
func (e *Engine) StartGame(room *models.Room, playerID string) error {
	room.Lock()
	defer room.Unlock()

	if room.HostID != playerID {
		return ErrNotHost
	}
	if room.Started {
		return ErrGameAlreadyStarted
	}
	n := e.activeCount(room)
	if n < e.rules.MinActivePlayers {
		return ErrNotEnoughPlayers
	}

	room.Started = true
	e.appendLog(room, "game", "game started", "", "")

	if room.Config.ManualRoles {
		e.transition(room, models.PhaseManualRolePick)
		room.PhaseData.Picks = roles.PoolCounts(roles.BuildPool(n, room.Config.Roles))
	} else {
		e.assignAuto(room)
		e.transition(room, models.PhaseRoleReveal)
	}

	e.logger.Info().Str("room", room.Code).Int("players", n).
		Bool("manual", room.Config.ManualRoles).Msg("game started")
	return nil
}

// Configure replaces the lobby config. Host only, lobby only.
func (e *Engine) Configure(room *models.Room, playerID string, cfg models.RoomConfig) error {
	room.Lock()
	defer room.Unlock()

	if room.HostID != playerID {
		return ErrNotHost
	}
	if room.Started {
		return ErrGameAlreadyStarted
	}
	room.Config = cfg
	return nil
}

// ResetForNewRound puts an ended or aborted room back into LOBBY with
// the same roster. Players who left are dropped; lifetime stats live in
// the external store and are untouched.
func (e *Engine) ResetForNewRound(room *models.Room, playerID string) error {
	room.Lock()
	defer room.Unlock()

	if room.HostID != playerID {
		return ErrNotHost
	}

	for id, p := range room.Players {
		if p.Status == models.StatusLeft {
			delete(room.Players, id)
			continue
		}
		p.Status = models.StatusAlive
		p.Role = ""
		p.IsCaptain = false
		p.LinkedTo = ""
	}

	room.Phase = models.PhaseLobby
	room.PrevPhase = ""
	room.PhaseData = models.NewPhaseData()
	room.PhaseAck = make(map[string]bool)
	room.Day = 0
	room.Night = 0
	room.MatchLog = nil
	room.DoctorLifeUsed = false
	room.DoctorDeathUsed = false
	room.ChameleonUsed = false
	room.Started = false
	room.Ended = false
	room.Aborted = false
	room.Winner = models.WinnerNone
	room.NightTarget = ""
	room.NightSaved = false
	room.PoisonedID = ""
	room.PendingDeaths = nil
	room.Revenge = nil

	if _, ok := room.Players[room.HostID]; !ok {
		for _, p := range room.Players {
			room.HostID = p.ID
			break
		}
	}

	e.logger.Info().Str("room", room.Code).Msg("room reset for new round")
	return nil
}

// MarkDisconnected flags a player's connection as gone without removing
// them from required sets; the caller arms the grace timer.
func (e *Engine) MarkDisconnected(room *models.Room, playerID string) {
	room.Lock()
	defer room.Unlock()

	if p, ok := room.Players[playerID]; ok {
		p.Connected = false
	}
}

// MarkReconnected reattaches a player within the grace window
func (e *Engine) MarkReconnected(room *models.Room, playerID string) {
	room.Lock()
	defer room.Unlock()

	if p, ok := room.Players[playerID]; ok && p.Status != models.StatusLeft {
		p.Connected = true
	}
}

// MarkLeft promotes a player to left, freeing their slot from required
// sets. Called on explicit leave or grace-period expiry. The player
// stays in the roster for stats and history.
func (e *Engine) MarkLeft(room *models.Room, playerID string) {
	room.Lock()
	defer room.Unlock()

	p, ok := room.Players[playerID]
	if !ok || p.Status == models.StatusLeft {
		return
	}
	p.Status = models.StatusLeft
	p.Connected = false
	e.appendLog(room, "leave", p.Name+" left the game", playerID, "")
	e.logger.Info().Str("room", room.Code).Str("player", p.Name).Msg("player left")

	if !room.Started || room.Ended || room.Aborted {
		return
	}

	if e.activeCount(room) < e.rules.MinActivePlayers {
		e.abortGame(room)
		return
	}

	// the departed player may have been the last missing ack
	e.checkCompletion(room)
}

// activeCount counts non-left players; requires the room lock
func (e *Engine) activeCount(room *models.Room) int {
	n := 0
	for _, p := range room.Players {
		if p.Status != models.StatusLeft {
			n++
		}
	}
	return n
}

// appendLog appends to the bounded match log, evicting the oldest entry
// once the cap is reached
func (e *Engine) appendLog(room *models.Room, kind, text, actor, target string) {
	room.MatchLog = append(room.MatchLog, models.MatchEvent{
		At:     time.Now(),
		Kind:   kind,
		Text:   text,
		Actor:  actor,
		Target: target,
	})
	if cap := e.rules.MatchLogCap; cap > 0 && len(room.MatchLog) > cap {
		room.MatchLog = room.MatchLog[len(room.MatchLog)-cap:]
	}
}
