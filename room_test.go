package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomClient(name string, isHost bool, buffer int) *client {
	return &client{send: make(chan any, buffer), done: make(chan struct{}), name: name, isHost: isHost}
}

func assertClosed(t *testing.T, c *client) {
	t.Helper()

	select {
	case <-c.done:
	default:
		t.Fatalf("client %s is still open", c.name)
	}
}

func TestRoomBroadcastReachesEveryone(t *testing.T) {
	r := newRoom("AB3DEF")
	host := roomClient("Host", true, 4)
	alice := roomClient("Alice", false, 4)
	r.add(host)
	r.add(alice)

	r.broadcast(TitleTextChangedMessage{Type: "title_text_changed", Text: "hi"})

	assert.Len(t, host.send, 1)
	assert.Len(t, alice.send, 1)
}

func TestRoomBroadcastExceptSkipsSender(t *testing.T) {
	r := newRoom("AB3DEF")
	alice := roomClient("Alice", false, 4)
	bob := roomClient("Bob", false, 4)
	r.add(alice)
	r.add(bob)

	r.broadcastExcept(alice, BuzzerAckMessage{Type: "buzzer_acknowledged"})

	assert.Empty(t, alice.send)
	assert.Len(t, bob.send, 1)
}

func TestRoomToHostOnly(t *testing.T) {
	r := newRoom("AB3DEF")
	host := roomClient("Host", true, 4)
	alice := roomClient("Alice", false, 4)
	r.add(host)
	r.add(alice)

	r.toHost(BuzzWinnerMessage{Type: "buzz_winner"})

	assert.Len(t, host.send, 1)
	assert.Empty(t, alice.send)

	// No host connected: silently dropped, not delivered elsewhere.
	require.True(t, r.remove(host))
	r.toHost(BuzzWinnerMessage{Type: "buzz_winner"})
	assert.Empty(t, alice.send)
}

func TestRoomEvictsSlowClient(t *testing.T) {
	r := newRoom("AB3DEF")
	slow := roomClient("Slow", false, 1)
	fast := roomClient("Fast", false, 4)
	r.add(slow)
	r.add(fast)

	r.broadcast(StrikeAddedMessage{Type: "strike_added", Strikes: 1})
	r.broadcast(StrikeAddedMessage{Type: "strike_added", Strikes: 2})

	assert.False(t, r.clients[slow], "full buffer gets the client evicted")
	assert.Len(t, fast.send, 2)

	assertClosed(t, slow)
	assert.Len(t, slow.send, 1, "buffered message survives eviction")
	assert.False(t, slow.trySend("late"), "sends to an evicted client are dropped")
	assert.Len(t, slow.send, 1)
}

func TestRoomRemoveIdempotent(t *testing.T) {
	r := newRoom("AB3DEF")
	host := roomClient("Host", true, 4)
	r.add(host)

	assert.True(t, r.remove(host))
	assert.False(t, r.remove(host), "second remove is a no-op")
	assert.Nil(t, r.host)
}

func TestRoomCloseAllDisconnectsEveryone(t *testing.T) {
	r := newRoom("AB3DEF")
	host := roomClient("Host", true, 4)
	alice := roomClient("Alice", false, 4)
	r.add(host)
	r.add(alice)

	r.closeAll()

	assert.Empty(t, r.clients)
	assert.Nil(t, r.host)
	assertClosed(t, host)
	assertClosed(t, alice)
}
