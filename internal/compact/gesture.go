package compact

import (
	"github.com/hrko/vmcompact/internal/scheduler"
	"github.com/hrko/vmcompact/internal/state"
)

const (
	MinGain = -60.0
	MaxGain = 12.0
)

// Gestures sets the shared flags for user interactions and holds the poll
// loop back while an edit is in flight.
type Gestures struct {
	state  *state.State
	poller *Poller
	sched  *scheduler.Scheduler
	timing Timing

	dragTask *scheduler.Task
}

func NewGestures(st *state.State, poller *Poller, sched *scheduler.Scheduler, timing Timing) *Gestures {
	return &Gestures{
		state:  st,
		poller: poller,
		sched:  sched,
		timing: timing,
	}
}

func (g *Gestures) SliderPressed() {
	g.state.Set(state.SliderActive, true)
	g.poller.Pause()
}

// SliderReleased ends a slider drag. Updates come back after the quiet
// window so the poll does not read back a stale value.
func (g *Gestures) SliderReleased() {
	g.state.Set(state.SliderActive, false)
	g.poller.Pause()
	g.poller.ResumeAfter(g.timing.QuietWindow)
}

// Scrolled runs apply, the write caused by one mouse wheel step, with
// updates paused.
func (g *Gestures) Scrolled(apply func()) {
	g.poller.Pause()
	apply()
	g.poller.ResumeAfter(g.timing.ScrollPause)
}

// Batch runs apply, a series of writes, with updates paused for the quiet
// window.
func (g *Gestures) Batch(apply func()) {
	g.poller.Pause()
	apply()
	g.poller.ResumeAfter(g.timing.QuietWindow)
}

// WindowMoved is called for every move event of the main window. Dragging
// stays set until no move arrived for the drag settle time.
func (g *Gestures) WindowMoved() {
	if g.dragTask == nil {
		g.state.Set(state.Dragging, true)
	} else {
		g.dragTask.Cancel()
	}
	g.dragTask = g.sched.After("drag-settle", g.timing.DragSettle, func() {
		g.dragTask = nil
		g.state.Set(state.Dragging, false)
		g.poller.DragEnded()
	})
}

// NudgeGain moves gain one wheel step up or down, clamped to the fader range.
func NudgeGain(gain float64, up bool, step float64) float64 {
	if up {
		gain += step
	} else {
		gain -= step
	}
	return ClampGain(gain)
}

func ClampGain(gain float64) float64 {
	if gain > MaxGain {
		return MaxGain
	}
	if gain < MinGain {
		return MinGain
	}
	return gain
}
