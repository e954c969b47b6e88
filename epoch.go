/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync/atomic"
)

// Epoch domains. A session epoch fences stale WebSocket sessions after a
// reconnect; a round epoch fences stale round-expiry timers after a round
// ends early. Keeping them as distinct instantiations means one can never
// be compared against, or passed as, the other.
type (
	UserSession struct{}
	GameRound   struct{}
)

// Epoch is a monotonically increasing identifier scoped to a domain.
// The zero value is never handed out, so a zero Epoch is always invalid.
type Epoch[T any] uint64

type epochSource[T any] struct {
	last atomic.Uint64
}

func (s *epochSource[T]) next() Epoch[T] {
	return Epoch[T](s.last.Add(1))
}

var (
	userEpochs  epochSource[UserSession]
	roundEpochs epochSource[GameRound]
)
