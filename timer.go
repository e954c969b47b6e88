package main

import (
	"time"
)

// delayed is a lobby event due at a deadline. The lobby loop must never
// block sending to its own inbox, so delayed self-events detour through
// the timer goroutine's queue.
type delayed struct {
	at time.Time
	ev lobbyEvent
}

// schedule hands an event to the timer goroutine. The queue is small and
// the timer drains it promptly; a full queue means the timer is gone,
// which is fatal for the lobby.
func (l *lobby) schedule(ev lobbyEvent, at time.Time) error {
	select {
	case l.delays <- delayed{at: at, ev: ev}:
		return nil
	default:
		return errDelayQueueGone
	}
}

// runTimers is the per-lobby auxiliary goroutine: it ticks heartbeats and
// fires delayed events back into the lobby inbox, exiting with the lobby.
func (l *lobby) runTimers() {
	ticker := time.NewTicker(l.cfg.heartbeat)
	defer ticker.Stop()

	var pending []delayed

	for {
		var (
			fire  <-chan time.Time
			timer *time.Timer
		)
		if len(pending) > 0 {
			earliest := 0
			for i := range pending {
				if pending[i].at.Before(pending[earliest].at) {
					earliest = i
				}
			}
			pending[0], pending[earliest] = pending[earliest], pending[0]

			wait := time.Until(pending[0].at)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-l.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case d := <-l.delays:
			pending = append(pending, d)

		case <-ticker.C:
			if !l.deliver(heartbeatEvent{}) {
				return
			}

		case <-fire:
			ev := pending[0].ev
			pending = pending[1:]
			if !l.deliver(ev) {
				return
			}
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (l *lobby) deliver(ev lobbyEvent) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	}
}
