package main

import (
	_ "embed"
	"math/rand/v2"
	"strings"
)

//go:embed words/game.txt
var gameWordsRaw string

//go:embed words/common.txt
var commonWordsRaw string

var (
	gameWords   = splitWords(gameWordsRaw)
	commonWords = splitWords(commonWordsRaw)
)

func splitWords(raw string) []Lowercase {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	words := make([]Lowercase, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, ToLowercase(line))
		}
	}

	return words
}

// chooseWords samples n distinct words from the dictionary.
func chooseWords(n int) []Lowercase {
	picked := make([]Lowercase, 0, n)
	for _, i := range rand.Perm(len(gameWords))[:n] {
		picked = append(picked, gameWords[i])
	}

	return picked
}

// randomLobbyName concatenates three capitalized common words, e.g.
// "AfraidBottleChance".
func randomLobbyName() string {
	var name strings.Builder
	for _, i := range rand.Perm(len(commonWords))[:3] {
		word := string(commonWords[i])
		name.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}

	return name.String()
}
