/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"sync"
)

// registry maps case-insensitive lobby names to running lobbies. Lobbies
// are created lazily on first join and the map self-heals: a session that
// finds its lobby dead removes the stale entry and creates a fresh one.
type registry struct {
	mu      sync.Mutex
	lobbies map[string]*lobby
}

func newRegistry() *registry {
	return &registry{lobbies: make(map[string]*lobby)}
}

// getOrCreate returns the lobby registered under name, starting one if
// needed. Display casing is preserved from whoever names it first.
func (r *registry) getOrCreate(cfg *Config, name string) *lobby {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.lobbies[key]; ok {
		return l
	}

	l := newLobby(name, cfg)
	r.lobbies[key] = l
	go l.run()

	return l
}

// removeIfMatches drops the entry for name only if it still refers to the
// given lobby, so a concurrent recreate is never clobbered.
func (r *registry) removeIfMatches(name string, l *lobby) {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lobbies[key] == l {
		delete(r.lobbies, key)
	}
}
