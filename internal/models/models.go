package models

import (
	"sync"
	"time"
)

// Phase represents the current state-machine state of a room
type Phase string

const (
	PhaseLobby              Phase = "LOBBY"
	PhaseManualRolePick     Phase = "MANUAL_ROLE_PICK"
	PhaseRoleReveal         Phase = "ROLE_REVEAL"
	PhaseCaptainCandidacy   Phase = "CAPTAIN_CANDIDACY"
	PhaseCaptainVote        Phase = "CAPTAIN_VOTE"
	PhaseNightStart         Phase = "NIGHT_START"
	PhaseNightChameleon     Phase = "NIGHT_CHAMELEON"
	PhaseNightAIAgent       Phase = "NIGHT_AI_AGENT"
	PhaseNightAIExchange    Phase = "NIGHT_AI_EXCHANGE"
	PhaseNightRadar         Phase = "NIGHT_RADAR"
	PhaseNightSaboteurs     Phase = "NIGHT_SABOTEURS"
	PhaseNightDoctor        Phase = "NIGHT_DOCTOR"
	PhaseRevenge            Phase = "REVENGE"
	PhaseNightResults       Phase = "NIGHT_RESULTS"
	PhaseDayWake            Phase = "DAY_WAKE"
	PhaseDayCaptainTransfer Phase = "DAY_CAPTAIN_TRANSFER"
	PhaseDayVote            Phase = "DAY_VOTE"
	PhaseDayTiebreak        Phase = "DAY_TIEBREAK"
	PhaseDayResults         Phase = "DAY_RESULTS"
	PhaseGameOver           Phase = "GAME_OVER"
	PhaseGameAborted        Phase = "GAME_ABORTED"
)

// Role represents player roles in the game
type Role string

const (
	RoleCrew      Role = "crew"
	RoleSaboteur  Role = "saboteur"
	RoleDoctor    Role = "doctor"
	RoleSecurity  Role = "security"
	RoleRadar     Role = "radar"
	RoleAIAgent   Role = "ai_agent"
	RoleEngineer  Role = "engineer"
	RoleChameleon Role = "chameleon"
)

// Faction is the team a role belongs to
type Faction string

const (
	FactionCrew     Faction = "crew"
	FactionSaboteur Faction = "saboteur"
)

// Winner identifies who won a finished game
type Winner string

const (
	WinnerNone      Winner = ""
	WinnerCrew      Winner = "crew"
	WinnerSaboteurs Winner = "saboteurs"
	WinnerLovers    Winner = "lovers"
	WinnerAborted   Winner = "aborted"
)

// PlayerStatus is the lifecycle state of a player within a room.
// Transitions only move forward: alive -> dead, or any state -> left.
type PlayerStatus string

const (
	StatusAlive PlayerStatus = "alive"
	StatusDead  PlayerStatus = "dead"
	StatusLeft  PlayerStatus = "left"
)

// Player represents a participant in a room. ID is stable across
// reconnections; Connected tracks whether a live socket is attached.
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    PlayerStatus `json:"status"`
	Role      Role         `json:"role,omitempty"` // hidden from other players
	IsCaptain bool         `json:"isCaptain"`
	LinkedTo  string       `json:"linkedTo,omitempty"` // symmetric player-id bond
	Connected bool         `json:"connected"`
	JoinedAt  time.Time    `json:"joinedAt"`
}

// RolesEnabled toggles which special roles may enter the pool
type RolesEnabled struct {
	Doctor    bool `json:"doctor"`
	Security  bool `json:"security"`
	Radar     bool `json:"radar"`
	AIAgent   bool `json:"ai_agent"`
	Engineer  bool `json:"engineer"`
	Chameleon bool `json:"chameleon"`
}

// RoomConfig is the lobby configuration, frozen once the game starts
type RoomConfig struct {
	Roles       RolesEnabled `json:"rolesEnabled"`
	ManualRoles bool         `json:"manualRoles"`
}

// PhaseData holds phase-scoped transient data. It is replaced with a
// fresh value on every phase transition.
type PhaseData struct {
	Candidates    []string          `json:"candidates,omitempty"`    // captain election or tied subset
	Candidacies   map[string]bool   `json:"candidacies,omitempty"`   // playerID -> runs for captain
	Votes         map[string]string `json:"votes,omitempty"`         // voterID -> targetID
	Picks         map[Role]int      `json:"picks,omitempty"`         // manual mode: remaining pool slots per role
	Inspections   map[string]string `json:"inspections,omitempty"`   // radar inspectorID -> targetID
	DoctorActions map[string]string `json:"doctorActions,omitempty"` // doctorID -> life|death|pass
	NightChoices  map[string]string `json:"nightChoices,omitempty"`  // actorID -> chosen kind (swap/link/skip...)
	Deaths        []string          `json:"deaths,omitempty"`        // results phases: ids that died this round
	Reason        string            `json:"reason,omitempty"`        // display reason for a forced transition
}

// NewPhaseData returns an empty PhaseData with all maps allocated
func NewPhaseData() *PhaseData {
	return &PhaseData{
		Candidacies:   make(map[string]bool),
		Votes:         make(map[string]string),
		Picks:         make(map[Role]int),
		Inspections:   make(map[string]string),
		DoctorActions: make(map[string]string),
		NightChoices:  make(map[string]string),
	}
}

// RevengeContext remembers the interrupted flow while the security
// chief takes the last shot; the accumulated deaths stay on the room's
// pending list
type RevengeContext struct {
	ShooterID string `json:"shooterId"`
	Origin    string `json:"origin"` // "night" or "day"
}

// MatchEvent is one entry of the bounded append-only match log
type MatchEvent struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Text   string    `json:"text"`
	Actor  string    `json:"actor,omitempty"`
	Target string    `json:"target,omitempty"`
}

// Room represents one game instance. All mutations to a room are
// serialized through its embedded mutex; distinct rooms are independent.
type Room struct {
	sync.Mutex `json:"-"`

	Code           string             `json:"code"`
	HostID         string             `json:"hostId"`
	Config         RoomConfig         `json:"config"`
	Phase          Phase              `json:"phase"`
	PrevPhase      Phase              `json:"prevPhase"`
	PhaseData      *PhaseData         `json:"phaseData"`
	PhaseAck       map[string]bool    `json:"phaseAck"`
	PhaseStartedAt time.Time          `json:"phaseStartedAt"`
	Day            int                `json:"day"`
	Night          int                `json:"night"`
	Players        map[string]*Player `json:"players"`
	MatchLog       []MatchEvent       `json:"matchLog"`

	// single-use ability flags, each true at most once per game
	DoctorLifeUsed  bool `json:"doctorLifeUsed"`
	DoctorDeathUsed bool `json:"doctorDeathUsed"`
	ChameleonUsed   bool `json:"chameleonUsed"`

	Started bool   `json:"started"`
	Ended   bool   `json:"ended"`
	Aborted bool   `json:"aborted"`
	Winner  Winner `json:"winner,omitempty"`

	// night-scoped resolution state, reset on NIGHT_START
	NightTarget   string          `json:"-"` // unanimous saboteur target, "" when no kill
	NightSaved    bool            `json:"-"` // life potion spent on tonight's target
	PoisonedID    string          `json:"-"` // death potion target
	PendingDeaths []string        `json:"-"` // deaths of the current resolution, shown in results
	Revenge       *RevengeContext `json:"-"`

	MaxPlayers int       `json:"maxPlayers"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ClientMessage is an inbound action event from the transport layer
type ClientMessage struct {
	Type      string      `json:"type"`
	TargetID  string      `json:"targetId,omitempty"`
	Candidacy bool        `json:"candidacy,omitempty"`
	Kind      string      `json:"kind,omitempty"` // night action kind: life, death, pass, inspect, swap, link, skip, shoot
	RoleKey   Role        `json:"roleKey,omitempty"`
	Config    *RoomConfig `json:"config,omitempty"`
}

// WSMessage is an outbound WebSocket envelope
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Inbound event types
const (
	EventStartGame    = "start_game"
	EventAckPhase     = "ack_phase"
	EventCastVote     = "cast_vote"
	EventCandidacy    = "submit_candidacy"
	EventNightAction  = "night_action"
	EventPickRole     = "pick_role"
	EventForceAdvance = "force_advance"
	EventLeaveRoom    = "leave_room"
	EventConfigure    = "configure"
	EventResetRound   = "reset_round"
)

// Outbound event types
const (
	EventStateUpdate = "state_update"
	EventError       = "error"
)
