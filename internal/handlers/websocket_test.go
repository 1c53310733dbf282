package handlers

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saboteurs-game/backend/internal/game"
)

func TestClientSendAfterClose(t *testing.T) {
	c := &Client{Send: make(chan []byte, 1)}

	require.True(t, c.trySend([]byte("one")))
	assert.False(t, c.trySend([]byte("two")), "full buffer drops the frame")

	c.close()
	c.close() // idempotent

	assert.NotPanics(t, func() {
		assert.False(t, c.trySend([]byte("three")), "a closed client accepts nothing")
	})
}

func TestDisplacedClientErrorDoesNotPanic(t *testing.T) {
	registry := game.NewRegistry(12)
	engine := game.NewEngine(game.DefaultRules(), nil, zerolog.Nop())
	server := NewServer(registry, engine, nil, "*", zerolog.Nop())

	stale := &Client{ID: "p1", RoomCode: "TEST01", Send: make(chan []byte, 1)}
	server.hub.mu.Lock()
	server.hub.clients["p1"] = stale
	server.hub.mu.Unlock()

	// a reconnect displaces the stale client while it may still be
	// dispatching one last message
	fresh := &Client{ID: "p1", RoomCode: "TEST01", Send: make(chan []byte, 1)}
	server.hub.attach(fresh)

	assert.NotPanics(t, func() {
		server.hub.sendError(stale, "too late")
	})
}
