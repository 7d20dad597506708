package scheduler

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when told to. Use it with Scheduler.Advance in tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	c.mu.Unlock()
}

// Advance moves a ManualClock forward by d and runs, in order, every task
// that falls due on the way, including tasks scheduled by those tasks.
// It panics when the scheduler is not driven by a ManualClock.
func (s *Scheduler) Advance(d time.Duration) {
	clk, ok := s.clock.(*ManualClock)
	if !ok {
		panic("scheduler: Advance requires a ManualClock")
	}
	target := clk.Now().Add(d)
	for {
		s.RunDue()
		due, ok := s.next()
		if !ok || due.After(target) {
			break
		}
		clk.Set(due)
	}
	clk.Set(target)
	s.RunDue()
}
