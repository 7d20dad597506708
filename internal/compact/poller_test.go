package compact

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
)

func TestGracePeriodHoldsParamsUntilItEnds(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)

	h.poller.Start(false)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)
	assert.Equal(t, h.poller.InGrace(), true)

	h.target.MarkParamsDirty()
	h.sched.Advance(6 * time.Second)
	h.target.MarkParamsDirty()
	h.sched.Advance(5999 * time.Millisecond)
	assert.Equal(t, rec.count(subject.ParamsDirty), 0)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)

	h.sched.Advance(time.Millisecond)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
	assert.Equal(t, h.poller.InGrace(), false)

	// nothing else is pending once the grace ended
	h.sched.Advance(time.Second)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)

	h.target.MarkParamsDirty()
	h.sched.Advance(33 * time.Millisecond)
	assert.Equal(t, rec.count(subject.ParamsDirty), 2)
}

func TestEngineAlreadyRunningSkipsGrace(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)

	h.poller.Start(true)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
	assert.Equal(t, h.poller.InGrace(), false)
}

func TestParamsSuppressedWhileUpdatesDisabled(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(true)
	rec.reset()

	h.poller.Pause()
	for i := 0; i < 10; i++ {
		h.target.MarkParamsDirty()
		h.sched.Advance(33 * time.Millisecond)
	}
	assert.Equal(t, rec.count(subject.ParamsDirty), 0)

	// one catch-up notification for everything swallowed
	h.poller.ResumeAfter(100 * time.Millisecond)
	h.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
}

func TestResumeWithoutMissedChangeIsSilent(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(true)
	rec.reset()

	h.poller.Pause()
	h.poller.ResumeAfter(50 * time.Millisecond)
	h.sched.Advance(50 * time.Millisecond)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
	assert.Equal(t, rec.count(subject.ParamsDirty), 0)
}

func TestSliderReleaseQuietWindow(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(true)
	rec.reset()

	h.gestures.SliderPressed()
	assert.Equal(t, h.state.Get(state.SliderActive), true)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)
	h.target.MarkParamsDirty()
	h.sched.Advance(200 * time.Millisecond)

	h.gestures.SliderReleased()
	assert.Equal(t, h.state.Get(state.SliderActive), false)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)

	for i := 0; i < 9; i++ {
		h.target.MarkParamsDirty()
		h.sched.Advance(50 * time.Millisecond)
	}
	h.sched.Advance(49 * time.Millisecond)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)
	assert.Equal(t, rec.count(subject.ParamsDirty), 0)

	h.sched.Advance(time.Millisecond)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
}

func TestSecondReleaseRestartsQuietWindow(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.poller.Start(true)

	h.gestures.SliderPressed()
	h.gestures.SliderReleased()
	h.sched.Advance(400 * time.Millisecond)
	h.gestures.SliderPressed()
	h.gestures.SliderReleased()
	h.sched.Advance(400 * time.Millisecond)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)
	h.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
}

func TestResumeNeverEndsGraceEarly(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(false)

	h.gestures.SliderPressed()
	h.gestures.SliderReleased()
	h.sched.Advance(time.Second)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)

	h.sched.Advance(11 * time.Second)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
}

func TestRegraceHoldsUpdates(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(true)
	rec.reset()

	h.poller.Regrace(testTiming.RestartGrace)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)
	h.target.MarkParamsDirty()
	h.sched.Advance(7999 * time.Millisecond)
	assert.Equal(t, rec.count(subject.ParamsDirty), 0)
	h.sched.Advance(time.Millisecond)
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), true)
}

func TestLevelsSuppressedWhileDragging(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(true)

	h.gestures.WindowMoved()
	assert.Equal(t, h.state.Get(state.Dragging), true)
	for i := 0; i < 6; i++ {
		h.target.MarkLevelsDirty()
		h.sched.Advance(50 * time.Millisecond)
		h.gestures.WindowMoved()
	}
	assert.Equal(t, rec.count(subject.LevelsDirty), 0)
	assert.Equal(t, h.state.Get(state.Dragging), true)

	h.sched.Advance(100 * time.Millisecond)
	assert.Equal(t, h.state.Get(state.Dragging), false)

	h.target.MarkLevelsDirty()
	h.sched.Advance(50 * time.Millisecond)
	assert.Equal(t, rec.count(subject.LevelsDirty), 1)
}

func TestLevelsIndependentOfUpdatesEnabled(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.poller.Start(false)

	h.target.MarkLevelsDirty()
	h.sched.Advance(50 * time.Millisecond)
	assert.Equal(t, h.state.Get(state.UpdatesEnabled), false)
	assert.Equal(t, rec.count(subject.LevelsDirty), 1)
}

func TestSliderLevelSuppressionPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   int
	}{
		{"window drag only", Policy{SuppressLevelsWhileSliding: false}, 1},
		{"slider too", Policy{SuppressLevelsWhileSliding: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, harnessOptions{policy: tt.policy})
			rec := &recorder{}
			h.root.Add(rec)
			h.poller.Start(true)
			rec.reset()

			h.gestures.SliderPressed()
			h.target.MarkLevelsDirty()
			h.target.MarkParamsDirty()
			h.sched.Advance(50 * time.Millisecond)
			assert.Equal(t, rec.count(subject.LevelsDirty), tt.want)
			// params are held back either way
			assert.Equal(t, rec.count(subject.ParamsDirty), 0)

			h.gestures.SliderReleased()
			h.target.MarkLevelsDirty()
			h.sched.Advance(50 * time.Millisecond)
			assert.Equal(t, rec.count(subject.LevelsDirty), tt.want+1)
		})
	}
}

func TestHealthCheckReportsLossOnce(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	var lost []error
	h.poller.SetLostFunc(func(tg remote.Target, err error) {
		assert.Equal(t, tg.ID(), h.target.ID())
		lost = append(lost, err)
	})
	h.poller.Start(true)

	h.sched.Advance(time.Second)
	assert.Equal(t, len(lost), 0)

	gone := errors.New("engine gone")
	h.target.FailPing(gone)
	h.sched.Advance(250 * time.Millisecond)
	assert.Equal(t, len(lost), 1)
	assert.Equal(t, errors.Is(lost[0], gone), true)
	assert.Equal(t, h.poller.Lost(), true)

	h.sched.Advance(2 * time.Second)
	assert.Equal(t, len(lost), 1)

	h.poller.Recovered()
	h.sched.Advance(250 * time.Millisecond)
	assert.Equal(t, len(lost), 2)

	h.poller.Recovered()
	h.target.FailPing(nil)
	h.sched.Advance(time.Second)
	assert.Equal(t, len(lost), 2)
	assert.Equal(t, h.poller.Lost(), false)
}

func TestTransientPingFailuresAreRetried(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	timing := testTiming
	timing.LostAfter = 3
	h.poller = NewPoller(h.state, h.root, h.sched, func() remote.Target { return h.current }, timing, Policy{})
	lost := 0
	h.poller.SetLostFunc(func(remote.Target, error) { lost++ })
	h.poller.Start(true)

	h.target.FailPing(errors.New("busy"))
	h.sched.Advance(500 * time.Millisecond)
	h.target.FailPing(nil)
	h.sched.Advance(250 * time.Millisecond)
	h.target.FailPing(errors.New("busy"))
	h.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, lost, 0)

	h.sched.Advance(250 * time.Millisecond)
	assert.Equal(t, lost, 1)
}

func TestPollSkipsWithoutTarget(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	rec := &recorder{}
	h.root.Add(rec)
	h.current = nil
	h.poller.Start(false)
	h.sched.Advance(13 * time.Second)
	// only the synthetic notification at the end of the grace
	assert.Equal(t, rec.count(subject.ParamsDirty), 1)
	assert.Equal(t, rec.count(subject.LevelsDirty), 0)
}

func TestStopCancelsEverything(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.poller.Start(false)
	assert.NotEqual(t, h.sched.Pending(), 0)
	h.poller.Stop()
	assert.Equal(t, h.sched.Pending(), 0)
}
