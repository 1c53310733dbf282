package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/saboteurs-game/backend/internal/game"
	"github.com/saboteurs-game/backend/internal/models"
)

// Client is one live WebSocket connection for one player
type Client struct {
	ID       string
	RoomCode string
	Conn     *websocket.Conn
	Send     chan []byte

	// per-connection action throttle; a burst covers a fast voter, the
	// steady rate stops scripted flooding
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// close shuts the send channel exactly once. A displaced connection's
// readPump may still be dispatching a message, so every send goes
// through trySend instead of the raw channel.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// trySend queues a message unless the client is closed or its buffer is
// full; a slow client just misses the frame
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub tracks live connections and their reconnection grace timers. One
// hub serves all rooms.
type Hub struct {
	server     *Server
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[string]*Client // keyed by player id

	graceMu sync.Mutex
	grace   map[string]*time.Timer

	upgrader websocket.Upgrader
}

func newHub(s *Server, allowedOrigin string) *Hub {
	return &Hub{
		server:     s,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		grace:      make(map[string]*time.Timer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.attach(client)
		case client := <-h.unregister:
			h.detach(client)
		}
	}
}

// attach registers a connection, displacing any previous connection for
// the same player and cancelling a pending grace timer
func (h *Hub) attach(client *Client) {
	h.mu.Lock()
	if old, ok := h.clients[client.ID]; ok {
		old.close()
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.cancelGrace(client.ID)

	room, ok := h.server.registry.GetRoom(client.RoomCode)
	if !ok {
		return
	}
	h.server.engine.MarkReconnected(room, client.ID)
	h.server.logger.Info().Str("room", client.RoomCode).Str("player", client.ID).Msg("client connected")
	h.broadcastRoom(room)
}

// detach drops a connection and arms the grace timer; the player is
// only promoted to left once the grace window expires without a
// reconnect
func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.ID]
	if !ok || current != client {
		// a newer connection already displaced this one
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	client.close()
	h.mu.Unlock()

	room, ok := h.server.registry.GetRoom(client.RoomCode)
	if !ok {
		return
	}
	h.server.engine.MarkDisconnected(room, client.ID)
	h.server.logger.Info().Str("room", client.RoomCode).Str("player", client.ID).Msg("client disconnected")
	h.armGrace(client.ID, client.RoomCode)
	h.broadcastRoom(room)
}

func (h *Hub) armGrace(playerID, roomCode string) {
	grace := h.server.engine.Rules().ReconnectGrace
	h.graceMu.Lock()
	defer h.graceMu.Unlock()
	if t, ok := h.grace[playerID]; ok {
		t.Stop()
	}
	h.grace[playerID] = time.AfterFunc(grace, func() {
		h.graceMu.Lock()
		delete(h.grace, playerID)
		h.graceMu.Unlock()

		room, ok := h.server.registry.GetRoom(roomCode)
		if !ok {
			return
		}
		h.depart(room, playerID)
		h.broadcastRoom(room)
	})
}

// depart routes a leaving player: lobby members are simply removed,
// in-game players are marked left so the roster survives for stats
func (h *Hub) depart(room *models.Room, playerID string) {
	room.Lock()
	started := room.Started
	room.Unlock()

	if started {
		h.server.engine.MarkLeft(room, playerID)
	} else {
		h.server.registry.RemovePlayer(room.Code, playerID)
	}
}

func (h *Hub) cancelGrace(playerID string) {
	h.graceMu.Lock()
	defer h.graceMu.Unlock()
	if t, ok := h.grace[playerID]; ok {
		t.Stop()
		delete(h.grace, playerID)
	}
}

// broadcastRoom pushes a fresh projection to every connected player of
// the room. Each client gets its own redacted snapshot.
func (h *Hub) broadcastRoom(room *models.Room) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.RoomCode != room.Code {
			continue
		}
		snap := h.server.engine.Snapshot(room, client.ID)
		data, err := json.Marshal(models.WSMessage{Type: models.EventStateUpdate, Payload: snap})
		if err != nil {
			h.server.logger.Error().Err(err).Msg("snapshot marshal failed")
			continue
		}
		// a dropped frame is fine, the next broadcast carries full state
		client.trySend(data)
	}
}

func (h *Hub) sendError(client *Client, reason string) {
	data, err := json.Marshal(models.WSMessage{
		Type:    models.EventError,
		Payload: map[string]string{"error": reason},
	})
	if err != nil {
		return
	}
	client.trySend(data)
}

// HandleWebSocket upgrades the connection for a known room member.
// playerId and roomCode come as query parameters from the join
// response.
func (s *Server) HandleWebSocket(c *gin.Context) {
	playerID := c.Query("playerId")
	roomCode := c.Query("roomCode")
	if playerID == "" || roomCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playerId and roomCode are required"})
		return
	}

	room, ok := s.registry.GetRoom(roomCode)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": game.ErrRoomNotFound.Error()})
		return
	}
	if !s.registry.HasPlayer(room, playerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this room"})
		return
	}

	conn, err := s.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		ID:       playerID,
		RoomCode: roomCode,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
	}

	s.hub.register <- client
	go client.writePump()
	go client.readPump(s.hub)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.server.logger.Debug().Err(err).Str("player", c.ID).Msg("websocket read error")
			}
			return
		}

		if !c.limiter.Allow() {
			h.sendError(c, "too many actions, slow down")
			continue
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(c, "malformed message")
			continue
		}
		h.handleMessage(c, &msg)
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// handleMessage routes one inbound event. Lobby lifecycle events go to
// the engine's top-level methods; in-game intents funnel through
// Engine.Apply. Every accepted event ends in a room-wide broadcast.
func (h *Hub) handleMessage(client *Client, msg *models.ClientMessage) {
	room, ok := h.server.registry.GetRoom(client.RoomCode)
	if !ok {
		h.sendError(client, game.ErrRoomNotFound.Error())
		return
	}
	engine := h.server.engine

	switch msg.Type {
	case models.EventStartGame:
		if err := engine.StartGame(room, client.ID); err != nil {
			h.sendError(client, err.Error())
			return
		}

	case models.EventConfigure:
		if msg.Config == nil {
			h.sendError(client, "missing config")
			return
		}
		if err := engine.Configure(room, client.ID, *msg.Config); err != nil {
			h.sendError(client, err.Error())
			return
		}

	case models.EventResetRound:
		if err := engine.ResetForNewRound(room, client.ID); err != nil {
			h.sendError(client, err.Error())
			return
		}

	case models.EventLeaveRoom:
		h.cancelGrace(client.ID)
		h.depart(room, client.ID)
		h.broadcastRoom(room)
		client.Conn.Close()
		return

	case models.EventAckPhase:
		if rej := engine.Apply(room, client.ID, game.Action{Type: game.ActionAck}); rej != nil {
			h.sendError(client, rej.Reason)
			return
		}

	case models.EventCandidacy:
		a := game.Action{Type: game.ActionCandidacy, Candidacy: msg.Candidacy}
		if rej := engine.Apply(room, client.ID, a); rej != nil {
			h.sendError(client, rej.Reason)
			return
		}

	case models.EventCastVote:
		a := game.Action{Type: game.ActionVote, TargetID: msg.TargetID}
		if rej := engine.Apply(room, client.ID, a); rej != nil {
			h.sendError(client, rej.Reason)
			return
		}

	case models.EventNightAction:
		a := game.Action{Type: game.ActionNight, Kind: msg.Kind, TargetID: msg.TargetID}
		if rej := engine.Apply(room, client.ID, a); rej != nil {
			h.sendError(client, rej.Reason)
			return
		}

	case models.EventPickRole:
		a := game.Action{Type: game.ActionPickRole, RoleKey: msg.RoleKey}
		if rej := engine.Apply(room, client.ID, a); rej != nil {
			h.sendError(client, rej.Reason)
			return
		}

	case models.EventForceAdvance:
		if rej := engine.Apply(room, client.ID, game.Action{Type: game.ActionForceAdvance}); rej != nil {
			h.sendError(client, rej.Reason)
			return
		}

	default:
		h.sendError(client, "unknown event type")
		return
	}

	h.broadcastRoom(room)
}
