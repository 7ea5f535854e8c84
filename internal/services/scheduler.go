package services

import (
	"sync"
	"time"
)

// timeoutScheduler owns the pending-timeout timers, one per handoff id.
type timeoutScheduler struct {
	mu     sync.Mutex
	timers map[string]*scheduled
	closed bool
}

type scheduled struct {
	timer *time.Timer
}

func newTimeoutScheduler() *timeoutScheduler {
	return &timeoutScheduler{timers: make(map[string]*scheduled)}
}

// Schedule runs fn after d, replacing any timer already held for id.
func (s *timeoutScheduler) Schedule(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.timers[id]; ok {
		prev.timer.Stop()
	}
	e := &scheduled{}
	e.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[id] != e {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
	s.timers[id] = e
}

// Cancel stops the timer of id, if any.
func (s *timeoutScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.timers[id]; ok {
		e.timer.Stop()
		delete(s.timers, id)
	}
}

// Len returns the number of armed timers.
func (s *timeoutScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and refuses new ones.
func (s *timeoutScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}
