package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackedStartsDirty(t *testing.T) {
	tracked := NewTracked(&GameState{})

	assert.True(t, tracked.Dirty())

	_, dirty := tracked.ResetIfDirty()
	assert.True(t, dirty)
	assert.False(t, tracked.Dirty())
}

func TestTrackedReadDoesNotDirty(t *testing.T) {
	tracked := NewTracked(&GameState{})
	tracked.ResetIfDirty()

	_ = tracked.Read()

	assert.False(t, tracked.Dirty())

	_, dirty := tracked.ResetIfDirty()
	assert.False(t, dirty)
}

func TestTrackedWriteDirtiesOnce(t *testing.T) {
	tracked := NewTracked(newPlayerTable())
	tracked.ResetIfDirty()

	tracked.Write().upsert(1, 1, "alice")
	tracked.Write().upsert(2, 2, "bob")

	assert.True(t, tracked.Dirty())

	table, dirty := tracked.ResetIfDirty()
	assert.True(t, dirty)
	assert.Equal(t, 2, table.len())

	_, dirty = tracked.ResetIfDirty()
	assert.False(t, dirty)
}
