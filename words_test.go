package main

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordListsLoaded(t *testing.T) {
	require.NotEmpty(t, gameWords)
	require.NotEmpty(t, commonWords)

	for _, w := range gameWords[:50] {
		assert.Equal(t, w, ToLowercase(string(w)))
	}
}

func TestChooseWords(t *testing.T) {
	words := chooseWords(numberOfWordsToChoose)

	require.Len(t, words, numberOfWordsToChoose)

	seen := make(map[Lowercase]bool)
	for _, w := range words {
		assert.False(t, seen[w], "duplicate word %q", w)
		seen[w] = true
	}
}

func TestRandomLobbyName(t *testing.T) {
	name := randomLobbyName()

	require.NotEmpty(t, name)
	assert.True(t, unicode.IsUpper(rune(name[0])))

	capitals := 0
	for _, r := range name {
		if unicode.IsUpper(r) {
			capitals++
		}
	}
	assert.Equal(t, 3, capitals)
	assert.False(t, strings.Contains(name, " "))
}
