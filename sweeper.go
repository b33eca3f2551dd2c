package cache

import (
	"time"
)

// sweeper owns the single pending sweep timer of a cache.
// It is not safe for concurrent use; the owning cache serializes access.
type sweeper struct {
	interval time.Duration
	timer    *time.Timer
	gen      uint64
}

func newSweeper(interval time.Duration) *sweeper {
	return &sweeper{interval: interval}
}

// schedule arms the timer unless one is already pending. tick receives the
// generation it was armed with so stale firings can be told apart.
func (s *sweeper) schedule(tick func(gen uint64)) {
	if s.timer != nil {
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() {
		tick(gen)
	})
}

// fired clears the pending timer if gen is still current and reports
// whether the tick should run.
func (s *sweeper) fired(gen uint64) bool {
	if gen != s.gen || s.timer == nil {
		return false
	}
	s.timer = nil
	s.gen++
	return true
}

func (s *sweeper) cancel() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.gen++
}

func (s *sweeper) pending() bool {
	return s.timer != nil
}
