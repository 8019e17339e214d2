package batch

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period after the last arrival before a batch is dispatched.
const DefaultDelay = 10 * time.Second

// TimerName is the deterministic key of a user's dispatch timer.
func TimerName(userID string) string {
	return "process_pending_" + userID
}

type pendingTimer struct {
	t   *time.Timer
	seq uint64
}

// Scheduler keeps at most one delayed callback per user.
// Only the most recently scheduled callback for a user can run: a timer that
// fired but lost the lock to a newer Reschedule or Cancel sees a stale
// sequence number and does nothing.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*pendingTimer
	seq     uint64
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*pendingTimer)}
}

// Reschedule replaces any pending timer for userID with one that calls onFire after delay.
func (s *Scheduler) Reschedule(userID string, delay time.Duration, onFire func()) {
	name := TimerName(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.timers[name]; ok {
		prev.t.Stop()
	}
	s.seq++
	seq := s.seq
	pt := &pendingTimer{seq: seq}
	pt.t = time.AfterFunc(delay, func() { s.fire(name, seq, onFire) })
	s.timers[name] = pt
}

func (s *Scheduler) fire(name string, seq uint64, onFire func()) {
	s.mu.Lock()
	cur, ok := s.timers[name]
	if !ok || cur.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, name)
	s.mu.Unlock()

	onFire()
}

// Cancel stops the user's pending timer. It is a no-op when none exists.
func (s *Scheduler) Cancel(userID string) {
	name := TimerName(userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if pt, ok := s.timers[name]; ok {
		pt.t.Stop()
		delete(s.timers, name)
	}
}

// Pending reports whether a timer is outstanding for the user.
func (s *Scheduler) Pending(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[TimerName(userID)]
	return ok
}

// Stop cancels every timer and rejects further scheduling.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for name, pt := range s.timers {
		pt.t.Stop()
		delete(s.timers, name)
	}
}
