package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuessScore(t *testing.T) {
	cases := []struct {
		name         string
		elapsed      time.Duration
		guessSeconds uint8
		priorCorrect int
		want         uint32
	}{
		{"first guess ten seconds in", 10 * time.Second, 120, 0, 508},
		{"second guess ten seconds in", 10 * time.Second, 120, 1, 458},
		{"instant first guess", 0, 120, 0, perfectGuessScore + firstCorrectBonus},
		{"at the buzzer", 120 * time.Second, 120, 1, minimumGuessScore},
		{"after the buzzer", 130 * time.Second, 120, 1, minimumGuessScore},
		{"short round", 30 * time.Second, 60, 0, 250 + firstCorrectBonus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, guessScore(tc.elapsed, tc.guessSeconds, tc.priorCorrect))
		})
	}
}

func TestDrawerBonus(t *testing.T) {
	correct := map[UserID]uint32{1: 508, 2: 300}

	assert.Equal(t, uint32(404), drawerBonus(correct, 3))

	// A single-player lobby divides by one, not zero.
	assert.Equal(t, uint32(808), drawerBonus(correct, 1))

	assert.Equal(t, uint32(0), drawerBonus(nil, 2))
}

func TestCloseThreshold(t *testing.T) {
	cases := []struct {
		wordLen int
		want    int
	}{
		{1, 1},
		{4, 1},
		{5, 2},
		{7, 2},
		{8, 3},
		{12, 3},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, closeThreshold(tc.wordLen), "len %d", tc.wordLen)
	}
}

func TestIsCloseGuess(t *testing.T) {
	assert.True(t, isCloseGuess("bats", "cats"))
	assert.False(t, isCloseGuess("dogs", "cats"))
	assert.True(t, isCloseGuess("elephent", "elephant"))
	assert.False(t, isCloseGuess("xx", "elephant"))
}

func TestRankScoresDense(t *testing.T) {
	entries := []PlayerEntry{
		{ID: 1, Score: 100},
		{ID: 2, Score: 300},
		{ID: 3, Score: 300},
		{ID: 4, Score: 50},
	}

	ranks := rankScores(entries)

	assert.Equal(t, []finalRank{
		{rank: 1, player: 2, score: 300},
		{rank: 1, player: 3, score: 300},
		{rank: 2, player: 1, score: 100},
		{rank: 3, player: 4, score: 50},
	}, ranks)
}
