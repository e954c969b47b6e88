package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCaseInsensitiveLookup(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry()

	l := reg.getOrCreate(cfg, "CatsAndDogs")
	same := reg.getOrCreate(cfg, "catsanddogs")

	assert.Same(t, l, same)
	assert.Equal(t, "CatsAndDogs", same.name, "display case comes from the first join")
}

func TestRegistryRemoveIfMatches(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry()

	stale := reg.getOrCreate(cfg, "room")

	// A concurrent recreate must not be clobbered by a stale removal.
	reg.removeIfMatches("room", stale)
	fresh := reg.getOrCreate(cfg, "room")
	require.NotSame(t, stale, fresh)

	reg.removeIfMatches("ROOM", stale)
	assert.Same(t, fresh, reg.getOrCreate(cfg, "room"))
}

func TestRegistrySelfHealsAfterLobbyShutdown(t *testing.T) {
	cfg := testConfig()
	reg := newRegistry()

	dead := reg.getOrCreate(cfg, "room")

	// Shut the lobby down: its first publish with no receivers is fatal.
	require.NoError(t, dead.send(heartbeatEvent{}))
	select {
	case <-dead.done:
	case <-time.After(2 * time.Second):
		t.Fatal("lobby did not shut down")
	}

	// The next joiner heals the stale entry and lands in a live lobby.
	l, ob, err := connectToLobby(cfg, reg, "room", Nickname("alice").UserID(), userEpochs.next(), "alice")
	require.NoError(t, err)
	require.NotSame(t, dead, l)
	require.NotNil(t, ob.rx)
	assert.Len(t, ob.messages, 3)

	ob.rx.Unsubscribe()
}
