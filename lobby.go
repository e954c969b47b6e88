/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Fatal lobby errors. Any of these drops the lobby and its in-memory
// state; the registry self-heals and the next joiner gets a fresh one.
var (
	errNoPlayers             = errors.New("no players left")
	errNoPlayersInTransition = errors.New("no players left during state change")
	errDelayQueueGone        = errors.New("delay queue unavailable")
	errLobbyShutdown         = errors.New("lobby shut down")
)

// Events consumed by the lobby loop.

type lobbyEvent interface {
	lobbyEvent()
}

type connectEvent struct {
	user  UserID
	epoch Epoch[UserSession]
	nick  Nickname
	reply chan<- onboarding
}

type messageEvent struct {
	user  UserID
	epoch Epoch[UserSession]
	req   clientReq
}

type disconnectEvent struct {
	user  UserID
	epoch Epoch[UserSession]
}

// removeStaleEvent fires a while after a disconnect; the entry is dropped
// only if the player has not reconnected since (epoch still matches).
type removeStaleEvent struct {
	user  UserID
	epoch Epoch[UserSession]
}

type heartbeatEvent struct{}

type roundEndEvent struct {
	epoch Epoch[GameRound]
}

func (connectEvent) lobbyEvent()     {}
func (messageEvent) lobbyEvent()     {}
func (disconnectEvent) lobbyEvent()  {}
func (removeStaleEvent) lobbyEvent() {}
func (heartbeatEvent) lobbyEvent()   {}
func (roundEndEvent) lobbyEvent()    {}

// onboarding is the initial burst handed to a joining session: a bus
// receiver subscribed before any later publishes, plus the replay needed
// to reconstruct current state.
type onboarding struct {
	rx       *busReceiver
	messages []any
}

// lobby owns all authoritative state for one room. Exactly one goroutine
// (run) mutates players, state, and the two logs; everything else goes
// through the inbox or reads broadcast snapshots.
type lobby struct {
	name   string // display case from the first join
	cfg    *Config
	events chan lobbyEvent
	delays chan delayed
	done   chan struct{}
	bus    *bus
	now    func() time.Time

	players *Tracked[*playerTable]
	state   *Tracked[*GameState]
	canvas  []CanvasEvent
	guesses []GuessEntry
}

func newLobby(name string, cfg *Config) *lobby {
	return &lobby{
		name:   name,
		cfg:    cfg,
		events: make(chan lobbyEvent, rxSharedBuffer),
		delays: make(chan delayed, txSelfDelayedBuffer),
		done:   make(chan struct{}),
		bus:    newBus(txBroadcastBuffer),
		now:    time.Now,
		players: NewTracked(newPlayerTable()),
		state: NewTracked(&GameState{
			Config: GameConfig{
				Rounds:       cfg.rounds,
				GuessSeconds: cfg.guessSeconds,
			},
			Phase: Phase{Kind: PhaseWaitingToStart},
		}),
	}
}

// send delivers an event to the lobby loop, failing once the loop exits
// so callers can heal the registry instead of blocking forever.
func (l *lobby) send(ev lobbyEvent) error {
	select {
	case l.events <- ev:
		return nil
	case <-l.done:
		return errLobbyShutdown
	}
}

func (l *lobby) run() {
	defer close(l.done)
	defer l.bus.Close()

	logf(l.cfg, "LOBBY: %s starting", l.name)

	go l.runTimers()

	for ev := range l.events {
		if err := l.handle(ev); err != nil {
			logf(l.cfg, "LOBBY: %s shutdown: %v", l.name, err)
			return
		}
	}
}

func (l *lobby) handle(ev lobbyEvent) error {
	if err := l.dispatch(ev); err != nil {
		return err
	}

	return l.closeout()
}

func (l *lobby) dispatch(ev lobbyEvent) error {
	switch ev := ev.(type) {
	case connectEvent:
		return l.onConnect(ev)
	case messageEvent:
		return l.onMessage(ev)
	case disconnectEvent:
		return l.onDisconnect(ev)
	case removeStaleEvent:
		return l.onRemoveStale(ev)
	case heartbeatEvent:
		return l.publish(everyone(newHeartbeatMsg()))
	case roundEndEvent:
		return l.onRoundEnd(ev)
	default:
		return nil
	}
}

func (l *lobby) onConnect(ev connectEvent) error {
	ob := onboarding{
		rx: l.bus.Subscribe(),
		messages: []any{
			newStateMsg(l.state.Read().clone()),
			newGuessBulkMsg(append([]GuessEntry(nil), l.guesses...)),
			newCanvasBulkMsg(append([]CanvasEvent(nil), l.canvas...)),
		},
	}

	select {
	case ev.reply <- ob:
	default:
		// Session gone before onboarding; release its receiver.
		ob.rx.Unsubscribe()
		logf(l.cfg, "LOBBY: %s player %s epoch %d vanished before onboarding", l.name, ev.nick, ev.epoch)
		return nil
	}

	prev, existing := l.players.Write().upsert(ev.user, ev.epoch, ev.nick)
	if existing {
		logf(l.cfg, "LOBBY: %s player %s epoch %d reconnected", l.name, ev.nick, ev.epoch)
		if prev != ev.epoch {
			return l.publish(kill(ev.user, prev))
		}
		return nil
	}

	logf(l.cfg, "LOBBY: %s player %s epoch %d joined", l.name, ev.nick, ev.epoch)

	return nil
}

func (l *lobby) onMessage(ev messageEvent) error {
	conn, ok := l.players.Read().get(ev.user)
	if !ok || conn.epoch != ev.epoch {
		return l.publish(kill(ev.user, ev.epoch))
	}

	switch req := ev.req.(type) {
	case canvasReq:
		return l.onCanvas(ev.user, req.Event)
	case chooseReq:
		return l.onChoose(ev.user, ev.epoch, conn.player.Nick, req.Word)
	case guessReq:
		return l.onGuess(ev.user, req.Guess)
	case removeReq:
		if target, ok := l.players.Read().get(req.Target); ok && target.epoch == req.Epoch {
			l.players.Write().remove(req.Target)
		}
		return nil
	default:
		// A second Join, or anything else unknown, is illegal here.
		logf(l.cfg, "LOBBY: %s player %s epoch %d illegal request %q", l.name, conn.player.Nick, ev.epoch, ev.req.reqType())
		return l.publish(kill(ev.user, ev.epoch))
	}
}

func (l *lobby) onCanvas(user UserID, event CanvasEvent) error {
	if event.Kind == CanvasClear {
		l.canvas = l.canvas[:0]
	} else {
		l.canvas = append(l.canvas, event)
	}

	// The sender already drew locally.
	return l.publish(excluding(user, newCanvasMsg(event)))
}

func (l *lobby) onChoose(user UserID, epoch Epoch[UserSession], nick Nickname, word Lowercase) error {
	phase := &l.state.Read().Phase
	if phase.Kind != PhaseChoosingWord || phase.Chooser != user || !slices.Contains(phase.Words, word) {
		logf(l.cfg, "LOBBY: %s player %s epoch %d invalid choose in %s", l.name, nick, epoch, phase.Kind)
		return l.publish(kill(user, epoch))
	}

	return l.enterDrawing(phase.Round, user, word)
}

func (l *lobby) onGuess(user UserID, text string) error {
	state := l.state.Read()

	switch phase := &state.Phase; phase.Kind {
	case PhaseWaitingToStart:
		return l.onLobbyChat(user, text)

	case PhaseChoosingWord:
		return l.publishGuess(messageEntry(user, text))

	case PhaseDrawing:
		if _, solved := phase.Correct[user]; solved || phase.Drawer == user {
			// Drawer and solvers chat amongst themselves; clients filter
			// by whether the viewer has solved.
			return l.publishGuess(messageEntry(user, text))
		}

		guess := ToLowercase(text)
		if guess == phase.Word {
			prior := len(phase.Correct)
			points := guessScore(l.now().Sub(phase.startedAt), state.Config.GuessSeconds, prior)
			l.state.Write().Phase.Correct[user] = points
			return l.publishGuess(GuessEntry{Kind: GuessCorrect, Player: user})
		}

		if err := l.publishGuess(guessEntry(user, text)); err != nil {
			return err
		}
		if isCloseGuess(guess, phase.Word) {
			// Only the guesser learns they were close.
			return l.publish(only(user, newGuessMsg(GuessEntry{Kind: GuessCloseGuess, Text: text})))
		}
		return nil

	default:
		return nil
	}
}

// onLobbyChat handles chat while waiting to start: the start command, the
// config commands, and plain messages.
func (l *lobby) onLobbyChat(user UserID, text string) error {
	if strings.TrimSpace(text) == "start" {
		return l.startGame()
	}

	switch cmd, arg, _ := strings.Cut(strings.TrimSpace(text), " "); cmd {
	case "rounds":
		n, err := parseConfigValue(arg)
		if err != nil {
			return l.publishGuess(systemEntry(fmt.Sprintf("can't set rounds: %v", err)))
		}
		l.state.Write().Config.Rounds = n
		return nil

	case "seconds":
		n, err := parseConfigValue(arg)
		if err != nil {
			return l.publishGuess(systemEntry(fmt.Sprintf("can't set seconds: %v", err)))
		}
		l.state.Write().Config.GuessSeconds = n
		return nil

	default:
		return l.publishGuess(messageEntry(user, text))
	}
}

func parseConfigValue(arg string) (uint8, error) {
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("must be at least 1")
	}

	return uint8(n), nil
}

func (l *lobby) onDisconnect(ev disconnectEvent) error {
	conn, ok := l.players.Read().get(ev.user)
	if !ok || conn.epoch != ev.epoch {
		return nil
	}

	conn, _ = l.players.Write().get(ev.user)
	conn.player.Status = StatusDisconnected

	logf(l.cfg, "LOBBY: %s player %s epoch %d disconnected", l.name, conn.player.Nick, ev.epoch)

	// Drop the entry later unless the player reconnects first. Unlike the
	// round timer, a missed removal only leaves a ghost entry behind, so a
	// full queue is not fatal here.
	if err := l.schedule(removeStaleEvent{user: ev.user, epoch: ev.epoch}, l.now().Add(removeDisconnectedAfter)); err != nil {
		logf(l.cfg, "LOBBY: %s could not schedule removal of %s: %v", l.name, conn.player.Nick, err)
	}

	return nil
}

func (l *lobby) onRemoveStale(ev removeStaleEvent) error {
	conn, ok := l.players.Read().get(ev.user)
	if !ok || conn.epoch != ev.epoch || conn.player.Status != StatusDisconnected {
		return nil
	}

	logf(l.cfg, "LOBBY: %s player %s removed after idle disconnect", l.name, conn.player.Nick)
	l.players.Write().remove(ev.user)

	return nil
}

func (l *lobby) onRoundEnd(ev roundEndEvent) error {
	phase := &l.state.Read().Phase
	if phase.Kind != PhaseDrawing || phase.roundEpoch != ev.epoch {
		// Stale timer; the round already ended for another reason.
		return nil
	}

	if err := l.publishGuess(GuessEntry{Kind: GuessTimeExpired, Text: string(phase.Word)}); err != nil {
		return err
	}

	return l.endRound()
}

// closeout runs once at the end of every handled event: first the
// phase-consistency sweep, then at most one snapshot per changed value.
func (l *lobby) closeout() error {
	if l.players.Dirty() || l.state.Dirty() {
		if err := l.sweepPhase(); err != nil {
			return err
		}
	}

	if players, dirty := l.players.ResetIfDirty(); dirty {
		if err := l.publish(everyone(newPlayersMsg(players.snapshot()))); err != nil {
			return err
		}
	}
	if state, dirty := l.state.ResetIfDirty(); dirty {
		if err := l.publish(everyone(newStateMsg(state.clone()))); err != nil {
			return err
		}
	}

	return nil
}

// sweepPhase ends the round when its key player can no longer finish it:
// the chooser vanished, the drawer vanished, or every remaining
// non-drawer has already guessed the word.
func (l *lobby) sweepPhase() error {
	players := l.players.Read()

	switch phase := &l.state.Read().Phase; phase.Kind {
	case PhaseChoosingWord:
		if l.vanished(phase.Chooser) {
			return l.endRound()
		}

	case PhaseDrawing:
		if l.vanished(phase.Drawer) {
			return l.endRound()
		}

		for _, id := range players.ids() {
			if id == phase.Drawer {
				continue
			}
			if _, ok := phase.Correct[id]; !ok {
				return nil
			}
		}
		return l.endRound()
	}

	return nil
}

func (l *lobby) vanished(user UserID) bool {
	conn, ok := l.players.Read().get(user)
	return !ok || conn.player.Status == StatusDisconnected
}

// startGame resets scores, clears the chat feed, and begins round one
// with the first player choosing.
func (l *lobby) startGame() error {
	players := l.players.Write()
	for _, id := range players.ids() {
		conn, _ := players.get(id)
		conn.player.Score = 0
	}

	l.guesses = l.guesses[:0]
	if err := l.publish(everyone(newClearGuessesMsg())); err != nil {
		return err
	}

	first, ok := l.players.Read().first()
	if !ok {
		return errNoPlayersInTransition
	}

	return l.enterChoosing(1, first)
}

func (l *lobby) enterChoosing(round int, chooser UserID) error {
	state := l.state.Write()
	state.Phase = Phase{
		Kind:    PhaseChoosingWord,
		Round:   round,
		Chooser: chooser,
		Words:   chooseWords(numberOfWordsToChoose),
	}

	return l.publishGuess(GuessEntry{Kind: GuessNowChoosing, Player: chooser})
}

func (l *lobby) enterDrawing(round int, drawer UserID, word Lowercase) error {
	state := l.state.Write()
	state.Phase = Phase{
		Kind:       PhaseDrawing,
		Round:      round,
		Drawer:     drawer,
		Word:       word,
		Correct:    make(map[UserID]uint32),
		roundEpoch: roundEpochs.next(),
		startedAt:  l.now(),
	}

	l.canvas = l.canvas[:0]
	if err := l.publish(everyone(newCanvasMsg(CanvasEvent{Kind: CanvasClear}))); err != nil {
		return err
	}
	if err := l.publishGuess(GuessEntry{Kind: GuessNowDrawing, Player: drawer}); err != nil {
		return err
	}

	deadline := state.Phase.startedAt.Add(time.Duration(state.Config.GuessSeconds) * time.Second)

	return l.schedule(roundEndEvent{epoch: state.Phase.roundEpoch}, deadline)
}

// endRound settles the finished turn and hands the pencil to the next
// player in key order, advancing the round (or ending the game) when the
// order wraps.
func (l *lobby) endRound() error {
	state := l.state.Read()
	phase := &state.Phase
	turnHolder := phase.Chooser
	round := phase.Round

	if phase.Kind == PhaseDrawing {
		turnHolder = phase.Drawer

		players := l.players.Write()
		for _, id := range players.ids() {
			points, ok := phase.Correct[id]
			if !ok {
				continue
			}
			conn, _ := players.get(id)
			conn.player.Score += points
			if err := l.publishGuess(GuessEntry{Kind: GuessEarnedPoints, Player: id, Points: points}); err != nil {
				return err
			}
		}

		if conn, ok := players.get(phase.Drawer); ok {
			conn.player.Score += drawerBonus(phase.Correct, players.len())
		}
	}

	next, ok := l.players.Read().nextAfter(turnHolder)
	if !ok {
		round++
		if round > int(state.Config.Rounds) {
			return l.endGame()
		}
		if next, ok = l.players.Read().first(); !ok {
			return errNoPlayersInTransition
		}
	}

	return l.enterChoosing(round, next)
}

// endGame publishes the leaderboard and returns the lobby to its waiting
// state.
func (l *lobby) endGame() error {
	if err := l.publishGuess(GuessEntry{Kind: GuessGameOver}); err != nil {
		return err
	}

	for _, row := range rankScores(l.players.Read().snapshot()) {
		entry := GuessEntry{
			Kind:   GuessFinalScore,
			Rank:   row.rank,
			Player: row.player,
			Score:  row.score,
		}
		if err := l.publishGuess(entry); err != nil {
			return err
		}
	}

	state := l.state.Write()
	state.Phase = Phase{Kind: PhaseWaitingToStart}

	l.canvas = l.canvas[:0]
	if err := l.publish(everyone(newCanvasMsg(CanvasEvent{Kind: CanvasClear}))); err != nil {
		return err
	}

	return l.publishGuess(GuessEntry{Kind: GuessHelp})
}

func (l *lobby) publish(b broadcast) error {
	if err := l.bus.Publish(b); err != nil {
		if errors.Is(err, errNoReceivers) {
			return errNoPlayers
		}
		return err
	}

	return nil
}

// publishGuess appends to the replayable feed and broadcasts to everyone.
func (l *lobby) publishGuess(g GuessEntry) error {
	l.guesses = append(l.guesses, g)
	return l.publish(everyone(newGuessMsg(g)))
}

