package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, id uint) *Client {
	return &Client{
		Hub:  hub,
		ID:   id,
		Send: make(chan []byte, 4),
	}
}

// drain synchronizes with the hub loop: registering a throwaway client can
// only complete after the previous channel event has been fully handled.
func drain(hub *Hub) {
	hub.Register <- newTestClient(hub, ^uint(0))
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case data := <-c.Send:
		return string(data)
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return ""
	}
}

func TestHubReconnectKeepsNewConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	stale := newTestClient(hub, 7)
	replacement := newTestClient(hub, 7)

	hub.Register <- stale
	hub.Register <- replacement

	// The stale connection's deferred unregister arrives after the
	// replacement took over the map slot; it must not evict it.
	hub.Unregister <- stale
	drain(hub)

	require.True(t, hub.IsUserConnected(7))

	hub.SendToUser(7, &Message{Type: "booking_update", Timestamp: time.Now()})
	assert.Contains(t, receive(t, replacement), "booking_update")

	select {
	case _, open := <-replacement.Send:
		assert.Fail(t, "replacement send channel was closed", "open=%v", open)
	default:
	}
}

func TestHubUnregisterClearsThreadRooms(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub, 3)
	hub.Register <- client
	drain(hub)

	hub.AddUserToThread(3, 12)
	hub.Unregister <- client
	drain(hub)

	assert.False(t, hub.IsUserConnected(3))

	// A fresh connection for the same user starts outside the room until it
	// joins again.
	reconnected := newTestClient(hub, 3)
	hub.Register <- reconnected
	drain(hub)

	hub.SendToThread(12, &Message{Type: "message", ThreadID: 12, Timestamp: time.Now()}, 0)
	select {
	case <-reconnected.Send:
		t.Fatal("reconnected client received a room message without rejoining")
	default:
	}
}

func TestSendToThreadExcludesSender(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	host := newTestClient(hub, 2)
	renter := newTestClient(hub, 3)
	hub.Register <- host
	hub.Register <- renter
	drain(hub)

	hub.AddUserToThread(2, 40)
	hub.AddUserToThread(3, 40)

	hub.SendToThread(40, &Message{Type: "message", ThreadID: 40, SenderID: 3, Timestamp: time.Now()}, 3)

	assert.Contains(t, receive(t, host), `"thread_id":40`)
	select {
	case <-renter.Send:
		t.Fatal("sender should not receive its own message")
	default:
	}
}

func TestJoinAndLeaveHandlers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	member := newTestClient(hub, 5)
	listener := newTestClient(hub, 6)
	hub.Register <- member
	hub.Register <- listener
	drain(hub)

	require.NoError(t, hub.MessageHandlers["join"](member, &Message{Type: "join", ThreadID: 9}))
	require.NoError(t, hub.MessageHandlers["join"](listener, &Message{Type: "join", ThreadID: 9}))

	hub.SendToThread(9, &Message{Type: "message", ThreadID: 9, Timestamp: time.Now()}, 6)
	receive(t, member)

	require.NoError(t, hub.MessageHandlers["leave"](member, &Message{Type: "leave", ThreadID: 9}))

	hub.SendToThread(9, &Message{Type: "message", ThreadID: 9, Timestamp: time.Now()}, 6)
	select {
	case <-member.Send:
		t.Fatal("member left the room and should not receive messages")
	default:
	}
}

func TestPingRepliesWithPong(t *testing.T) {
	hub := NewHub()

	client := newTestClient(hub, 8)
	require.NoError(t, hub.MessageHandlers["ping"](client, &Message{Type: "ping"}))
	assert.Contains(t, receive(t, client), "pong")
}
