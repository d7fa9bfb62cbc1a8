package irc

import (
	"time"
)

// State is the adapter's connection lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingHandshake
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingHandshake:
		return "awaiting_handshake"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// joinRequest is a join issued before the handshake completed.
type joinRequest struct {
	room string
	key  string
}

// joinTimer is one outstanding join attempt. The token identifies it so
// that a fired timer can tell whether it was cancelled first.
type joinTimer struct {
	token uint64
	room  string
	timer *time.Timer
}

// joinSupervisor tracks unconfirmed joins by folded room name. Every
// method must be called with the adapter's lock held; whoever removes an
// entry first (confirmation, server error or the timer itself) owns the
// outcome.
type joinSupervisor struct {
	next   uint64
	timers map[string][]*joinTimer
}

func newJoinSupervisor() *joinSupervisor {
	return &joinSupervisor{timers: make(map[string][]*joinTimer)}
}

// start schedules fire(token) after d. A second join for the same room gets
// its own independent timer.
func (s *joinSupervisor) start(room string, d time.Duration, fire func(token uint64)) uint64 {
	s.next++
	token := s.next
	jt := &joinTimer{token: token, room: room}
	key := foldName(room)
	s.timers[key] = append(s.timers[key], jt)
	jt.timer = time.AfterFunc(d, func() { fire(token) })
	return token
}

// take removes the timer identified by token and reports whether it was
// still outstanding.
func (s *joinSupervisor) take(room string, token uint64) bool {
	key := foldName(room)
	list := s.timers[key]
	for i, jt := range list {
		if jt.token == token {
			jt.timer.Stop()
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(s.timers, key)
			} else {
				s.timers[key] = list
			}
			return true
		}
	}
	return false
}

// cancel stops every timer for room and returns how many were outstanding.
func (s *joinSupervisor) cancel(room string) int {
	key := foldName(room)
	list := s.timers[key]
	for _, jt := range list {
		jt.timer.Stop()
	}
	delete(s.timers, key)
	return len(list)
}

func (s *joinSupervisor) pending(room string) bool {
	return len(s.timers[foldName(room)]) > 0
}

func (s *joinSupervisor) cancelAll() {
	for key, list := range s.timers {
		for _, jt := range list {
			jt.timer.Stop()
		}
		delete(s.timers, key)
	}
}
