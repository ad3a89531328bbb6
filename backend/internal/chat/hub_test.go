package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	alice1 := NewClient(1, "alice", nil)
	alice2 := NewClient(1, "alice", nil)
	bob := NewClient(2, "bob", nil)

	hub.Register(alice1)
	hub.Register(alice2)
	hub.Register(bob)

	assert.Equal(t, 2, hub.GroupSize(1))
	assert.Equal(t, 1, hub.GroupSize(2))

	hub.Broadcast(1, []byte("hello"))

	// both of alice's connections got the frame, bob got nothing
	assert.Equal(t, []byte("hello"), <-alice1.Send)
	assert.Equal(t, []byte("hello"), <-alice2.Send)
	assert.Empty(t, bob.Send)
}

func TestHubBroadcastToEmptyGroup(t *testing.T) {
	hub := NewHub()
	// no subscribers: must not panic or create state
	hub.Broadcast(42, []byte("into the void"))
	assert.Equal(t, 0, hub.GroupSize(42))
}

func TestHubUnregisterIdempotent(t *testing.T) {
	hub := NewHub()
	c := NewClient(1, "alice", nil)

	hub.Register(c)
	hub.Unregister(c)
	assert.Equal(t, 0, hub.GroupSize(1))

	// second unregister and unregistering a stranger are no-ops
	hub.Unregister(c)
	hub.Unregister(NewClient(9, "ghost", nil))
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	slow := NewClient(1, "alice", nil)
	hub.Register(slow)

	// fill the buffer, then one more to trigger the drop
	for i := 0; i < sendBuffer; i++ {
		hub.Broadcast(1, []byte("x"))
	}
	require.Equal(t, 1, hub.GroupSize(1))
	hub.Broadcast(1, []byte("overflow"))

	assert.Equal(t, 0, hub.GroupSize(1))
	// channel was closed after draining its backlog
	for range slow.Send {
	}
}
