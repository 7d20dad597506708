package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newManual() (*Scheduler, *ManualClock) {
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(clk), clk
}

func TestAfterFiresOnce(t *testing.T) {
	s, _ := newManual()
	n := 0
	s.After("once", 100*time.Millisecond, func() { n++ })

	s.Advance(99 * time.Millisecond)
	assert.Equal(t, n, 0)
	s.Advance(time.Millisecond)
	assert.Equal(t, n, 1)
	s.Advance(time.Second)
	assert.Equal(t, n, 1)
	assert.Equal(t, s.Pending(), 0)
}

func TestEveryRearmsAfterRun(t *testing.T) {
	s, _ := newManual()
	n := 0
	s.Every("tick", 50*time.Millisecond, func() { n++ })

	s.Advance(1000 * time.Millisecond)
	assert.Equal(t, n, 20)
}

func TestCancel(t *testing.T) {
	s, _ := newManual()
	n := 0
	task := s.Every("tick", 10*time.Millisecond, func() { n++ })
	s.Advance(30 * time.Millisecond)
	assert.Equal(t, n, 3)

	task.Cancel()
	task.Cancel()
	s.Advance(100 * time.Millisecond)
	assert.Equal(t, n, 3)
	assert.Equal(t, task.Cancelled(), true)

	var nilTask *Task
	nilTask.Cancel()
}

func TestCancelFromInsideCallback(t *testing.T) {
	s, _ := newManual()
	n := 0
	var task *Task
	task = s.Every("self", 10*time.Millisecond, func() {
		n++
		if n == 2 {
			task.Cancel()
		}
	})
	s.Advance(time.Second)
	assert.Equal(t, n, 2)
}

func TestOrderByDueThenSeq(t *testing.T) {
	s, _ := newManual()
	var order []string
	s.After("c", 20*time.Millisecond, func() { order = append(order, "c") })
	s.After("a", 10*time.Millisecond, func() { order = append(order, "a") })
	s.After("b", 10*time.Millisecond, func() { order = append(order, "b") })
	s.Post("now", func() { order = append(order, "now") })

	s.Advance(20 * time.Millisecond)
	assert.Equal(t, order, []string{"now", "a", "b", "c"})
}

func TestPostFromCallbackRunsOnNextPass(t *testing.T) {
	s, _ := newManual()
	var order []string
	s.Post("first", func() {
		order = append(order, "first")
		s.Post("second", func() { order = append(order, "second") })
	})

	ran := s.RunDue()
	assert.Equal(t, ran, 1)
	assert.Equal(t, order, []string{"first"})

	ran = s.RunDue()
	assert.Equal(t, ran, 1)
	assert.Equal(t, order, []string{"first", "second"})
}

func TestPanickingTaskKeepsRecurring(t *testing.T) {
	s, _ := newManual()
	n := 0
	s.Every("bad", 10*time.Millisecond, func() {
		n++
		panic("boom")
	})
	s.Advance(50 * time.Millisecond)
	assert.Equal(t, n, 5)
}

func TestDispatchWrapsEveryCallback(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	var wrapped int
	s := New(clk, WithDispatch(func(fn func()) {
		wrapped++
		fn()
	}))
	s.After("a", time.Millisecond, func() {})
	s.After("b", 2*time.Millisecond, func() {})
	s.Advance(5 * time.Millisecond)
	assert.Equal(t, wrapped, 2)
}

func TestAdvanceRequiresManualClock(t *testing.T) {
	s := New(SystemClock{})
	defer func() {
		assert.NotEqual(t, recover(), nil)
	}()
	s.Advance(time.Millisecond)
}

func TestRunWithSystemClock(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var n atomic.Int32
	done := make(chan struct{})
	s.Every("tick", 5*time.Millisecond, func() {
		if n.Add(1) == 3 {
			close(done)
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timeout waiting for ticks")
	}
	cancel()
	assert.Equal(t, <-errCh, context.Canceled)
}
