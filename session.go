/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveGame(cfg *Config, reg *registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: upgrade from %s failed: %v", realIP(r), err)
			return
		}

		runSession(cfg, reg, conn)
	}
}

// runSession drives one WebSocket from handshake to teardown: join,
// onboard, then pump broadcasts out and client requests in until either
// side ends the session.
func runSession(cfg *Config, reg *registry, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxWSMessageBytes)

	_, data, err := conn.ReadMessage()
	if err != nil {
		logf(cfg, "GAMES: closed before join: %v", err)
		return
	}

	req, err := decodeClientReq(data)
	if err != nil {
		logf(cfg, "GAMES: bad handshake: %v", err)
		return
	}

	join, ok := req.(joinReq)
	if !ok || join.Lobby == "" || join.Nick == "" {
		logf(cfg, "GAMES: first frame was %q, not a valid join", req.reqType())
		return
	}

	nick := Nickname(join.Nick)
	user := nick.UserID()
	epoch := userEpochs.next()

	l, ob, err := connectToLobby(cfg, reg, join.Lobby, user, epoch, nick)
	if err != nil {
		logf(cfg, "GAMES: %s could not join %s: %v", nick, join.Lobby, err)
		return
	}

	for _, msg := range ob.messages {
		if err := conn.WriteJSON(msg); err != nil {
			logf(cfg, "GAMES: %s onboarding write failed: %v", nick, err)
			ob.rx.Unsubscribe()
			_ = l.send(disconnectEvent{user: user, epoch: epoch})
			return
		}
	}

	logf(cfg, "GAMES: %s joined %s (epoch %d)", nick, join.Lobby, epoch)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		defer conn.Close()
		pumpBroadcasts(cfg, conn, ob.rx, nick, user, epoch)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		req, err := decodeClientReq(data)
		if err != nil {
			logf(cfg, "GAMES: %s sent garbage: %v", nick, err)
			break
		}

		if err := l.send(messageEvent{user: user, epoch: epoch, req: req}); err != nil {
			break
		}
	}

	ob.rx.Unsubscribe()
	conn.Close()
	<-pumpDone

	// Best effort; if this fails the lobby is already gone.
	_ = l.send(disconnectEvent{user: user, epoch: epoch})

	logf(cfg, "GAMES: %s left %s (epoch %d)", nick, join.Lobby, epoch)
}

// connectToLobby acquires the lobby and performs the Connect handshake,
// healing the registry and retrying if it raced with a lobby shutdown.
func connectToLobby(cfg *Config, reg *registry, name string, user UserID, epoch Epoch[UserSession], nick Nickname) (*lobby, onboarding, error) {
	for {
		l := reg.getOrCreate(cfg, name)

		reply := make(chan onboarding, 1)
		if err := l.send(connectEvent{user: user, epoch: epoch, nick: nick, reply: reply}); err != nil {
			logf(cfg, "GAMES: lobby %s was shutdown, restarting", name)
			reg.removeIfMatches(name, l)
			continue
		}

		select {
		case ob := <-reply:
			return l, ob, nil
		case <-l.done:
			reg.removeIfMatches(name, l)
		}
	}
}

// pumpBroadcasts forwards bus envelopes matching this session to the
// socket until killed, lagged, or closed.
func pumpBroadcasts(cfg *Config, conn *websocket.Conn, rx *busReceiver, nick Nickname, user UserID, epoch Epoch[UserSession]) {
	for {
		b, err := rx.Recv()
		if err != nil {
			var lag lagError
			switch {
			case errors.As(err, &lag):
				logf(cfg, "GAMES: %s epoch %d lagged %d messages, dropping", nick, epoch, lag.missed)
			case errors.Is(err, errBusClosed):
				logf(cfg, "GAMES: %s epoch %d dropped on lobby shutdown", nick, epoch)
			}
			return
		}

		forward, terminate := b.shouldForward(user, epoch)
		if terminate {
			logf(cfg, "GAMES: %s epoch %d killed", nick, epoch)
			return
		}
		if !forward {
			continue
		}

		if err := conn.WriteJSON(b.msg); err != nil {
			return
		}
	}
}
