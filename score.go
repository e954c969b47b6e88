package main

import (
	"cmp"
	"slices"
	"time"

	"github.com/agnivade/levenshtein"
)

const (
	perfectGuessScore = 500
	firstCorrectBonus = 50
	minimumGuessScore = 0
)

// guessScore computes the points for a correct guess at elapsed time into
// a round of guessSeconds, where priorCorrect players guessed before this
// one. Faster guesses score closer to perfectGuessScore and the first
// correct guesser earns a flat bonus.
func guessScore(elapsed time.Duration, guessSeconds uint8, priorCorrect int) uint32 {
	total := int64(guessSeconds) * 1000

	remaining := total - elapsed.Milliseconds()
	if remaining < 0 {
		remaining = 0
	}

	score := remaining*perfectGuessScore/total + minimumGuessScore
	if priorCorrect == 0 {
		score += firstCorrectBonus
	}

	return uint32(score)
}

// drawerBonus is the mean of the guessers' scores over the non-drawer
// player count, so drawing for a sharp room pays as well as guessing.
func drawerBonus(correct map[UserID]uint32, playerCount int) uint32 {
	var sum uint64
	for _, points := range correct {
		sum += uint64(points)
	}

	divisor := playerCount - 1
	if divisor < 1 {
		divisor = 1
	}

	return uint32(sum / uint64(divisor))
}

// closeThreshold is the edit distance under which a wrong guess still
// counts as close, scaled by word length.
func closeThreshold(wordLen int) int {
	switch {
	case wordLen <= 4:
		return 1
	case wordLen <= 7:
		return 2
	default:
		return 3
	}
}

func isCloseGuess(guess, word Lowercase) bool {
	distance := levenshtein.ComputeDistance(string(guess), string(word))
	return distance <= closeThreshold(len(word))
}

// finalRank is one row of the end-of-game leaderboard.
type finalRank struct {
	rank   int
	player UserID
	score  uint32
}

// rankScores orders players by score descending with dense ranking: equal
// scores share a rank and the next distinct score gets the next rank.
func rankScores(entries []PlayerEntry) []finalRank {
	sorted := make([]PlayerEntry, len(entries))
	copy(sorted, entries)
	slices.SortStableFunc(sorted, func(a, b PlayerEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})

	ranks := make([]finalRank, 0, len(sorted))
	rank := 0
	var prev uint32
	for i, entry := range sorted {
		if i == 0 || entry.Score != prev {
			rank++
			prev = entry.Score
		}
		ranks = append(ranks, finalRank{rank: rank, player: entry.ID, score: entry.Score})
	}

	return ranks
}
