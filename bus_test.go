package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvWithin(t *testing.T, rx *busReceiver) (broadcast, error) {
	t.Helper()

	type result struct {
		b   broadcast
		err error
	}

	done := make(chan result, 1)
	go func() {
		b, err := rx.Recv()
		done <- result{b: b, err: err}
	}()

	select {
	case r := <-done:
		return r.b, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return broadcast{}, nil
	}
}

func TestBusPublishWithoutReceivers(t *testing.T) {
	b := newBus(4)

	assert.ErrorIs(t, b.Publish(everyone(newHeartbeatMsg())), errNoReceivers)
}

func TestBusReceiverSeesOnlyLaterPublishes(t *testing.T) {
	b := newBus(4)

	early := b.Subscribe()
	require.NoError(t, b.Publish(everyone("one")))

	late := b.Subscribe()
	require.NoError(t, b.Publish(everyone("two")))

	msg, err := recvWithin(t, early)
	require.NoError(t, err)
	assert.Equal(t, "one", msg.msg)

	msg, err = recvWithin(t, late)
	require.NoError(t, err)
	assert.Equal(t, "two", msg.msg)
}

func TestBusPreservesPublishOrder(t *testing.T) {
	b := newBus(8)
	rx := b.Subscribe()

	for i := range 5 {
		require.NoError(t, b.Publish(everyone(i)))
	}

	for i := range 5 {
		msg, err := recvWithin(t, rx)
		require.NoError(t, err)
		assert.Equal(t, i, msg.msg)
	}
}

func TestBusLagDropsOldest(t *testing.T) {
	b := newBus(4)
	rx := b.Subscribe()

	for i := range 10 {
		require.NoError(t, b.Publish(everyone(i)))
	}

	_, err := recvWithin(t, rx)
	var lag lagError
	require.ErrorAs(t, err, &lag)
	assert.Equal(t, uint64(6), lag.missed)

	// After the lag signal the receiver resumes from the oldest retained.
	msg, err := recvWithin(t, rx)
	require.NoError(t, err)
	assert.Equal(t, 6, msg.msg)
}

func TestBusCloseWakesReceivers(t *testing.T) {
	b := newBus(4)
	rx := b.Subscribe()

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Close()
	}()

	_, err := recvWithin(t, rx)
	assert.ErrorIs(t, err, errBusClosed)
}

func TestBusUnsubscribeWakesPendingRecv(t *testing.T) {
	b := newBus(4)
	rx := b.Subscribe()

	go func() {
		time.Sleep(10 * time.Millisecond)
		rx.Unsubscribe()
	}()

	_, err := recvWithin(t, rx)
	assert.ErrorIs(t, err, errBusClosed)
}

func TestBusUnsubscribeRestoresNoReceivers(t *testing.T) {
	b := newBus(4)
	rx := b.Subscribe()

	require.NoError(t, b.Publish(everyone("x")))

	rx.Unsubscribe()

	assert.ErrorIs(t, b.Publish(everyone("y")), errNoReceivers)
}
