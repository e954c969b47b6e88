/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// UserID is derived by hashing the nickname, so two sessions with the same
// nickname are the same player and reconnects land on the existing entry.
type UserID uint64

// Nickname is free-form, immutable once joined, displayed verbatim.
type Nickname string

func (n Nickname) UserID() UserID {
	return UserID(xxhash.Sum64String(string(n)))
}

// Lowercase is a string normalized to lowercase at construction. Words and
// guesses are compared by exact equality on this representation.
type Lowercase string

func ToLowercase(s string) Lowercase {
	return Lowercase(strings.ToLower(s))
}

type PlayerStatus string

const (
	StatusConnected    PlayerStatus = "connected"
	StatusDisconnected PlayerStatus = "disconnected"
)

type Player struct {
	Nick   Nickname     `json:"nick"`
	Status PlayerStatus `json:"status"`
	Score  uint32       `json:"score"`
}

// connection is a player entry plus the epoch of its live session. Only
// the lobby loop touches these.
type connection struct {
	epoch  Epoch[UserSession]
	player Player
}

// playerTable maps UserID to player entries with keys kept sorted, so
// turn order and tie-breaks are deterministic for a given set of players.
type playerTable struct {
	order []UserID
	conns map[UserID]*connection
}

func newPlayerTable() *playerTable {
	return &playerTable{conns: make(map[UserID]*connection)}
}

func (t *playerTable) len() int {
	return len(t.order)
}

func (t *playerTable) get(id UserID) (*connection, bool) {
	conn, ok := t.conns[id]
	return conn, ok
}

// upsert inserts a fresh entry or rebinds an existing one to the new
// session epoch, returning the previous epoch when the player was already
// known.
func (t *playerTable) upsert(id UserID, epoch Epoch[UserSession], nick Nickname) (Epoch[UserSession], bool) {
	if conn, ok := t.conns[id]; ok {
		prev := conn.epoch
		conn.epoch = epoch
		conn.player.Status = StatusConnected

		return prev, true
	}

	t.conns[id] = &connection{
		epoch: epoch,
		player: Player{
			Nick:   nick,
			Status: StatusConnected,
		},
	}

	at, _ := slices.BinarySearch(t.order, id)
	t.order = slices.Insert(t.order, at, id)

	return 0, false
}

func (t *playerTable) remove(id UserID) {
	if _, ok := t.conns[id]; !ok {
		return
	}

	delete(t.conns, id)

	at, _ := slices.BinarySearch(t.order, id)
	t.order = slices.Delete(t.order, at, at+1)
}

// ids returns the keys in sorted order. Callers must not mutate the slice.
func (t *playerTable) ids() []UserID {
	return t.order
}

func (t *playerTable) first() (UserID, bool) {
	if len(t.order) == 0 {
		return 0, false
	}
	return t.order[0], true
}

// nextAfter returns the first key strictly greater than id. The reference
// player need not still be present.
func (t *playerTable) nextAfter(id UserID) (UserID, bool) {
	at, found := slices.BinarySearch(t.order, id)
	if found {
		at++
	}
	if at >= len(t.order) {
		return 0, false
	}
	return t.order[at], true
}

// PlayerEntry is the wire form of one player row.
type PlayerEntry struct {
	ID     UserID       `json:"id"`
	Nick   Nickname     `json:"nick"`
	Status PlayerStatus `json:"status"`
	Score  uint32       `json:"score"`
}

// snapshot builds an immutable copy for broadcast; receivers never see the
// live table.
func (t *playerTable) snapshot() []PlayerEntry {
	entries := make([]PlayerEntry, 0, len(t.order))
	for _, id := range t.order {
		conn := t.conns[id]
		entries = append(entries, PlayerEntry{
			ID:     id,
			Nick:   conn.player.Nick,
			Status: conn.player.Status,
			Score:  conn.player.Score,
		})
	}

	return entries
}

type GameConfig struct {
	Rounds       uint8 `json:"rounds"`
	GuessSeconds uint8 `json:"guess_seconds"`
}

type PhaseKind string

const (
	PhaseWaitingToStart PhaseKind = "waiting_to_start"
	PhaseChoosingWord   PhaseKind = "choosing_word"
	PhaseDrawing        PhaseKind = "drawing"
)

// Phase is the current point in the round state machine. Round, Chooser,
// and Words are set while choosing; Round, Drawer, Word, and Correct while
// drawing. The round epoch and start time are loop-internal and never
// serialized.
type Phase struct {
	Kind    PhaseKind          `json:"kind"`
	Round   int                `json:"round,omitempty"`
	Chooser UserID             `json:"chooser,omitempty"`
	Words   []Lowercase        `json:"words,omitempty"`
	Drawer  UserID             `json:"drawer,omitempty"`
	Word    Lowercase          `json:"word,omitempty"`
	Correct map[UserID]uint32  `json:"correct,omitempty"`

	roundEpoch Epoch[GameRound]
	startedAt  time.Time
}

type GameState struct {
	Config GameConfig `json:"config"`
	Phase  Phase      `json:"phase"`
}

// clone detaches a snapshot from the live value, so broadcasting never
// shares mutable phase internals with session goroutines.
func (s GameState) clone() GameState {
	out := s
	out.Phase.Words = slices.Clone(s.Phase.Words)
	out.Phase.Correct = maps.Clone(s.Phase.Correct)

	return out
}
