package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectEvent(t *testing.T, l *lobby) lobbyEvent {
	t.Helper()

	select {
	case ev := <-l.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer delivery")
		return nil
	}
}

func TestTimerDeliversDelayedEvents(t *testing.T) {
	l := newLobby("timers", testConfig())
	go l.runTimers()
	defer close(l.done)

	require.NoError(t, l.schedule(roundEndEvent{epoch: 42}, time.Now().Add(20*time.Millisecond)))

	ev := expectEvent(t, l)
	assert.Equal(t, roundEndEvent{epoch: 42}, ev)
}

func TestTimerDeliversEarliestFirst(t *testing.T) {
	l := newLobby("timers", testConfig())
	go l.runTimers()
	defer close(l.done)

	require.NoError(t, l.schedule(roundEndEvent{epoch: 2}, time.Now().Add(150*time.Millisecond)))
	require.NoError(t, l.schedule(roundEndEvent{epoch: 1}, time.Now().Add(20*time.Millisecond)))

	assert.Equal(t, roundEndEvent{epoch: 1}, expectEvent(t, l))
	assert.Equal(t, roundEndEvent{epoch: 2}, expectEvent(t, l))
}

func TestTimerTicksHeartbeats(t *testing.T) {
	cfg := testConfig()
	cfg.heartbeat = 20 * time.Millisecond

	l := newLobby("timers", cfg)
	go l.runTimers()
	defer close(l.done)

	ev := expectEvent(t, l)
	assert.Equal(t, heartbeatEvent{}, ev)
}

func TestScheduleFailsWhenQueueFull(t *testing.T) {
	// No timer goroutine draining, so the queue fills up.
	l := newLobby("timers", testConfig())

	for range txSelfDelayedBuffer {
		require.NoError(t, l.schedule(heartbeatEvent{}, time.Now()))
	}

	assert.ErrorIs(t, l.schedule(heartbeatEvent{}, time.Now()), errDelayQueueGone)
}
