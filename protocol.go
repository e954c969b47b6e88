/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
)

// Wire protocol: each WebSocket frame carries one JSON message tagged with
// "type". Unknown tags are rejected, which ends the offending session.

const (
	canvasWidth  = 800
	canvasHeight = 600

	// Canvas coordinates travel as packed signed 12-bit pairs.
	coordMin = -2048
	coordMax = 2047
)

type Point struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

func clampCoord(v int) int16 {
	if v < coordMin {
		return coordMin
	}
	if v > coordMax {
		return coordMax
	}
	return int16(v)
}

type CanvasKind string

const (
	CanvasLine     CanvasKind = "line"
	CanvasFill     CanvasKind = "fill"
	CanvasPushUndo CanvasKind = "push_undo"
	CanvasPopUndo  CanvasKind = "pop_undo"
	CanvasClear    CanvasKind = "clear"
)

type CanvasEvent struct {
	Kind  CanvasKind `json:"kind"`
	From  Point      `json:"from,omitzero"`
	To    Point      `json:"to,omitzero"`
	At    Point      `json:"at,omitzero"`
	Width uint8      `json:"width,omitempty"`
	Color string     `json:"color,omitempty"`
}

type GuessKind string

const (
	GuessSystem       GuessKind = "system"
	GuessHelp         GuessKind = "help"
	GuessMessage      GuessKind = "message"
	GuessNowChoosing  GuessKind = "now_choosing"
	GuessNowDrawing   GuessKind = "now_drawing"
	GuessGuess        GuessKind = "guess"
	GuessCloseGuess   GuessKind = "close_guess"
	GuessCorrect      GuessKind = "correct"
	GuessEarnedPoints GuessKind = "earned_points"
	GuessTimeExpired  GuessKind = "time_expired"
	GuessGameOver     GuessKind = "game_over"
	GuessFinalScore   GuessKind = "final_score"
)

// GuessEntry is one line of the chat/system feed. The lobby keeps the
// ordered log of everyone-addressed entries to replay to joiners.
type GuessEntry struct {
	Kind   GuessKind `json:"kind"`
	Player UserID    `json:"player,omitempty"`
	Text   string    `json:"text,omitempty"`
	Points uint32    `json:"points,omitempty"`
	Rank   int       `json:"rank,omitempty"`
	Score  uint32    `json:"score,omitempty"`
}

func systemEntry(text string) GuessEntry {
	return GuessEntry{Kind: GuessSystem, Text: text}
}

func messageEntry(player UserID, text string) GuessEntry {
	return GuessEntry{Kind: GuessMessage, Player: player, Text: text}
}

func guessEntry(player UserID, text string) GuessEntry {
	return GuessEntry{Kind: GuessGuess, Player: player, Text: text}
}

// Outbound messages.

type heartbeatMsg struct {
	Type string `json:"type"`
}

type playersMsg struct {
	Type    string        `json:"type"`
	Players []PlayerEntry `json:"players"`
}

type stateMsg struct {
	Type  string    `json:"type"`
	State GameState `json:"state"`
}

type canvasMsg struct {
	Type  string      `json:"type"`
	Event CanvasEvent `json:"event"`
}

type canvasBulkMsg struct {
	Type   string        `json:"type"`
	Events []CanvasEvent `json:"events"`
}

type guessMsg struct {
	Type  string     `json:"type"`
	Guess GuessEntry `json:"guess"`
}

type guessBulkMsg struct {
	Type    string       `json:"type"`
	Guesses []GuessEntry `json:"guesses"`
}

type clearGuessesMsg struct {
	Type string `json:"type"`
}

func newHeartbeatMsg() heartbeatMsg            { return heartbeatMsg{Type: "heartbeat"} }
func newPlayersMsg(p []PlayerEntry) playersMsg { return playersMsg{Type: "players", Players: p} }
func newStateMsg(s GameState) stateMsg         { return stateMsg{Type: "state", State: s} }
func newCanvasMsg(e CanvasEvent) canvasMsg     { return canvasMsg{Type: "canvas", Event: e} }
func newClearGuessesMsg() clearGuessesMsg      { return clearGuessesMsg{Type: "clear_guesses"} }

func newCanvasBulkMsg(events []CanvasEvent) canvasBulkMsg {
	return canvasBulkMsg{Type: "canvas_bulk", Events: events}
}

func newGuessMsg(g GuessEntry) guessMsg {
	return guessMsg{Type: "guess", Guess: g}
}

func newGuessBulkMsg(guesses []GuessEntry) guessBulkMsg {
	return guessBulkMsg{Type: "guess_bulk", Guesses: guesses}
}

// Inbound messages.

type clientReq interface {
	reqType() string
}

type joinReq struct {
	Type  string `json:"type"`
	Lobby string `json:"lobby"`
	Nick  string `json:"nick"`
}

type canvasReq struct {
	Type  string      `json:"type"`
	Event CanvasEvent `json:"event"`
}

type chooseReq struct {
	Type string    `json:"type"`
	Word Lowercase `json:"word"`
}

type guessReq struct {
	Type  string `json:"type"`
	Guess string `json:"guess"`
}

type removeReq struct {
	Type   string             `json:"type"`
	Target UserID             `json:"target"`
	Epoch  Epoch[UserSession] `json:"epoch"`
}

func (joinReq) reqType() string   { return "join" }
func (canvasReq) reqType() string { return "canvas" }
func (chooseReq) reqType() string { return "choose" }
func (guessReq) reqType() string  { return "guess" }
func (removeReq) reqType() string { return "remove" }

func decodeClientReq(data []byte) (clientReq, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var (
		req clientReq
		err error
	)

	switch envelope.Type {
	case "join":
		var r joinReq
		err = json.Unmarshal(data, &r)
		req = r
	case "canvas":
		var r canvasReq
		err = json.Unmarshal(data, &r)
		req = r
	case "choose":
		var r chooseReq
		err = json.Unmarshal(data, &r)
		req = r
	case "guess":
		var r guessReq
		err = json.Unmarshal(data, &r)
		req = r
	case "remove":
		var r removeReq
		err = json.Unmarshal(data, &r)
		req = r
	default:
		return nil, fmt.Errorf("unknown request type %q", envelope.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("malformed %q frame: %w", envelope.Type, err)
	}

	return req, nil
}

// Broadcast envelopes. The lobby loop publishes these onto the bus; each
// session applies the addressing rule before writing to its socket.

type broadcastScope uint8

const (
	toEveryone broadcastScope = iota
	toExclude
	toOnly
	toKill
)

type broadcast struct {
	scope broadcastScope
	user  UserID
	epoch Epoch[UserSession]
	msg   any
}

func everyone(msg any) broadcast {
	return broadcast{scope: toEveryone, msg: msg}
}

func excluding(user UserID, msg any) broadcast {
	return broadcast{scope: toExclude, user: user, msg: msg}
}

func only(user UserID, msg any) broadcast {
	return broadcast{scope: toOnly, user: user, msg: msg}
}

func kill(user UserID, epoch Epoch[UserSession]) broadcast {
	return broadcast{scope: toKill, user: user, epoch: epoch}
}

// shouldForward applies the addressing rule for one session. terminate
// reports a Kill aimed at exactly this (user, epoch) pair.
func (b broadcast) shouldForward(user UserID, epoch Epoch[UserSession]) (forward, terminate bool) {
	switch b.scope {
	case toEveryone:
		return true, false
	case toExclude:
		return b.user != user, false
	case toOnly:
		return b.user == user, false
	case toKill:
		return false, b.user == user && b.epoch == epoch
	default:
		return false, false
	}
}
