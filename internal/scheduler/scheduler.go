// Package scheduler runs timer-driven callbacks one at a time on a single
// logical thread. A recurring task is re-armed only after its callback
// returns, so a slow callback delays the next tick instead of piling up.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "scheduler")

// Dispatch executes fn on the UI thread and returns once fn has returned.
type Dispatch func(fn func())

func directDispatch(fn func()) { fn() }

type Task struct {
	name      string
	fn        func()
	due       time.Time
	interval  time.Duration
	seq       uint64
	index     int
	cancelled atomic.Bool
}

func (t *Task) Name() string {
	return t.name
}

// Cancel prevents any further run of the task. Cancelling a nil, finished or
// already cancelled task is a no-op.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
}

func (t *Task) Cancelled() bool {
	return t == nil || t.cancelled.Load()
}

type Scheduler struct {
	clock    Clock
	dispatch Dispatch

	mu    sync.Mutex
	queue taskQueue
	seq   uint64
	wake  chan struct{}
}

type Option func(*Scheduler)

// WithDispatch routes every callback through d, typically to marshal it onto
// the toolkit's main goroutine.
func WithDispatch(d Dispatch) Option {
	return func(s *Scheduler) {
		if d != nil {
			s.dispatch = d
		}
	}
}

func New(clock Clock, opts ...Option) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Scheduler{
		clock:    clock,
		dispatch: directDispatch,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// After runs fn once, d from now.
func (s *Scheduler) After(name string, d time.Duration, fn func()) *Task {
	return s.schedule(name, d, 0, fn)
}

// Every runs fn every interval, starting one interval from now.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) *Task {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return s.schedule(name, interval, interval, fn)
}

// Post runs fn on the next pass of the scheduler.
func (s *Scheduler) Post(name string, fn func()) *Task {
	return s.schedule(name, 0, 0, fn)
}

func (s *Scheduler) schedule(name string, d, interval time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.seq++
	t := &Task{
		name:     name,
		fn:       fn,
		due:      s.clock.Now().Add(d),
		interval: interval,
		seq:      s.seq,
	}
	heap.Push(&s.queue, t)
	s.mu.Unlock()
	s.signal()
	return t
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports the number of queued, non-cancelled tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.queue {
		if !t.Cancelled() {
			n++
		}
	}
	return n
}

func (s *Scheduler) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 {
		t := s.queue[0]
		if t.Cancelled() {
			heap.Pop(&s.queue)
			continue
		}
		return t.due, true
	}
	return time.Time{}, false
}

// RunDue runs every task that is due at the current clock time, in due
// order. Tasks scheduled while the pass is running wait for the next pass.
// It returns the number of callbacks that ran.
func (s *Scheduler) RunDue() int {
	s.mu.Lock()
	limit := s.seq
	s.mu.Unlock()

	ran := 0
	var deferred []*Task
	for {
		now := s.clock.Now()
		s.mu.Lock()
		var t *Task
		for len(s.queue) > 0 {
			head := s.queue[0]
			if head.Cancelled() {
				heap.Pop(&s.queue)
				continue
			}
			if head.due.After(now) {
				break
			}
			heap.Pop(&s.queue)
			if head.seq > limit {
				deferred = append(deferred, head)
				continue
			}
			t = head
			break
		}
		s.mu.Unlock()
		if t == nil {
			break
		}

		s.dispatch(func() { s.run(t) })
		ran++

		if t.interval > 0 && !t.Cancelled() {
			s.mu.Lock()
			s.seq++
			t.seq = s.seq
			t.due = s.clock.Now().Add(t.interval)
			deferred = append(deferred, t)
			s.mu.Unlock()
		}
	}

	if len(deferred) > 0 {
		s.mu.Lock()
		for _, t := range deferred {
			heap.Push(&s.queue, t)
		}
		s.mu.Unlock()
	}
	return ran
}

func (s *Scheduler) run(t *Task) {
	if t.Cancelled() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("task", t.name).Errorf("task panicked: %v", r)
		}
	}()
	t.fn()
}

// Run drives the scheduler from the system timer until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		var timer *time.Timer
		var fire <-chan time.Time
		if due, ok := s.next(); ok {
			timer = time.NewTimer(due.Sub(s.clock.Now()))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
		s.RunDue()
	}
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
