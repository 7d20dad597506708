// Package compact is the change-notification core of the controller: the
// poll loop that turns the engine's dirty flags into topics, the gesture gate
// that holds updates back while the user is editing, and the frames and
// lifecycle manager that keep the observer graph consistent as views are
// rebuilt.
package compact

import (
	"time"

	"github.com/hrko/vmcompact/internal/config"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/scheduler"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "compact")

// Timing holds the update cadence of the core. Poll intervals live in
// state.State.
type Timing struct {
	StartupGrace      time.Duration
	RestartGrace      time.Duration
	QuietWindow       time.Duration
	ScrollPause       time.Duration
	DragSettle        time.Duration
	HealthInterval    time.Duration
	ReconnectCooldown time.Duration
	LostAfter         int
}

func TimingFromConfig(u config.UpdatesConfig) Timing {
	return Timing{
		StartupGrace:      u.StartupGrace.Duration,
		RestartGrace:      u.RestartGrace.Duration,
		QuietWindow:       u.QuietWindow.Duration,
		ScrollPause:       u.ScrollPause.Duration,
		DragSettle:        u.DragSettle.Duration,
		HealthInterval:    u.HealthInterval.Duration,
		ReconnectCooldown: u.ReconnectCooldown.Duration,
		LostAfter:         u.LostAfter,
	}
}

// Policy selects which gestures hold back level updates. Dragging the window
// always does.
type Policy struct {
	SuppressLevelsWhileSliding bool
}

// LostFunc is called once when the health check of t has failed LostAfter
// times in a row. No further checks run until Poller.Recovered.
type LostFunc func(t remote.Target, err error)

// Poller polls the current target's dirty latches and publishes ParamsDirty
// and LevelsDirty on the root subject. All methods must be called on the
// scheduler's dispatch goroutine.
type Poller struct {
	state  *state.State
	root   *subject.Subject
	sched  *scheduler.Scheduler
	target func() remote.Target
	timing Timing
	policy Policy
	onLost LostFunc

	paramTask  *scheduler.Task
	levelTask  *scheduler.Task
	healthTask *scheduler.Task
	graceTask  *scheduler.Task
	resumeTask *scheduler.Task

	// missed is set when a params-dirty latch was consumed while updates
	// were disabled.
	missed   bool
	failures int
	lost     bool
}

func NewPoller(st *state.State, root *subject.Subject, sched *scheduler.Scheduler, target func() remote.Target, timing Timing, policy Policy) *Poller {
	if timing.LostAfter < 1 {
		timing.LostAfter = 1
	}
	return &Poller{
		state:  st,
		root:   root,
		sched:  sched,
		target: target,
		timing: timing,
		policy: policy,
	}
}

func (p *Poller) SetLostFunc(fn LostFunc) {
	p.onLost = fn
}

// Start arms the poll and health tasks. When the engine was already running
// before we logged in, updates are enabled at once and one ParamsDirty is
// published so the widgets populate; otherwise updates stay disabled for the
// startup grace period.
func (p *Poller) Start(engineWasRunning bool) {
	p.Stop()
	p.state.Set(state.UpdatesEnabled, false)
	p.paramTask = p.sched.Every("poll-params", p.state.ParamPollInterval(), p.paramStep)
	p.levelTask = p.sched.Every("poll-levels", p.state.LevelPollInterval(), p.levelStep)
	if p.timing.HealthInterval > 0 {
		p.healthTask = p.sched.Every("health", p.timing.HealthInterval, p.healthStep)
	}
	if engineWasRunning {
		log.Debug("engine was already running, updates started")
		p.Regrace(0)
		return
	}
	p.Regrace(p.timing.StartupGrace)
}

// Stop cancels every task. The poll loop is only stopped at shutdown.
func (p *Poller) Stop() {
	for _, t := range []*scheduler.Task{p.paramTask, p.levelTask, p.healthTask, p.graceTask, p.resumeTask} {
		t.Cancel()
	}
	p.paramTask, p.levelTask, p.healthTask, p.graceTask, p.resumeTask = nil, nil, nil, nil, nil
}

// Regrace disables updates for d. When d elapses updates are enabled and a
// single ParamsDirty is published. A d of zero or less enables them now.
func (p *Poller) Regrace(d time.Duration) {
	p.graceTask.Cancel()
	p.graceTask = nil
	p.resumeTask.Cancel()
	p.resumeTask = nil
	p.state.Set(state.UpdatesEnabled, false)

	if d <= 0 {
		p.enable(true)
		return
	}
	log.Debugf("updates held for %v", d)
	p.graceTask = p.sched.After("grace", d, func() {
		p.graceTask = nil
		log.Debug("updates started")
		p.enable(true)
	})
}

// InGrace reports whether a grace period is pending.
func (p *Poller) InGrace() bool {
	return p.graceTask != nil
}

// Pause disables ParamsDirty publishing and cancels a pending resume.
func (p *Poller) Pause() {
	p.resumeTask.Cancel()
	p.resumeTask = nil
	p.state.Set(state.UpdatesEnabled, false)
}

// ResumeAfter re-enables updates after d, replacing any pending resume. It
// never ends a grace period early. If a params change was swallowed while
// paused, one ParamsDirty is published on resume.
func (p *Poller) ResumeAfter(d time.Duration) {
	p.resumeTask.Cancel()
	p.resumeTask = p.sched.After("resume", d, func() {
		p.resumeTask = nil
		if p.graceTask != nil {
			return
		}
		p.enable(p.missed)
	})
}

// DragEnded tells listeners that a window drag settled, so anything they
// skipped while dragging can be caught up.
func (p *Poller) DragEnded() {
	p.root.Notify(subject.DragEnded)
}

func (p *Poller) enable(publish bool) {
	p.state.Set(state.UpdatesEnabled, true)
	if publish {
		p.missed = false
		p.root.Notify(subject.ParamsDirty)
	}
}

func (p *Poller) paramStep() {
	t := p.target()
	if t == nil {
		return
	}
	// the latch is consumed even when updates are disabled
	if !t.ParamsDirty() {
		return
	}
	if !p.state.Get(state.UpdatesEnabled) {
		p.missed = true
		return
	}
	p.root.Notify(subject.ParamsDirty)
}

func (p *Poller) levelStep() {
	t := p.target()
	if t == nil {
		return
	}
	if !t.LevelsDirty() {
		return
	}
	if p.levelsSuppressed() {
		return
	}
	p.root.Notify(subject.LevelsDirty)
}

func (p *Poller) levelsSuppressed() bool {
	if p.state.Get(state.Dragging) {
		return true
	}
	return p.policy.SuppressLevelsWhileSliding && p.state.Get(state.SliderActive)
}

func (p *Poller) healthStep() {
	if p.lost {
		return
	}
	t := p.target()
	if t == nil {
		return
	}
	err := t.Ping()
	if err == nil {
		p.failures = 0
		return
	}
	p.failures++
	log.WithField("transport", t.Transport()).Debugf("health check failed (%d/%d): %v", p.failures, p.timing.LostAfter, err)
	if p.failures < p.timing.LostAfter {
		return
	}

	p.lost = true
	p.failures = 0
	log.WithField("transport", t.Transport()).Warnf("connection lost: %v", err)
	if p.onLost != nil {
		p.onLost(t, err)
	}
}

// Lost reports whether a lost connection is waiting for recovery.
func (p *Poller) Lost() bool {
	return p.lost
}

// Recovered re-enables health checks after a lost connection was handled.
func (p *Poller) Recovered() {
	p.lost = false
	p.failures = 0
}
