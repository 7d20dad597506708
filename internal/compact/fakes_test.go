package compact

import (
	"testing"
	"time"

	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/remote/remotetest"
	"github.com/hrko/vmcompact/internal/scheduler"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
)

var testTiming = Timing{
	StartupGrace:      12 * time.Second,
	RestartGrace:      8 * time.Second,
	QuietWindow:       500 * time.Millisecond,
	ScrollPause:       50 * time.Millisecond,
	DragSettle:        100 * time.Millisecond,
	HealthInterval:    250 * time.Millisecond,
	ReconnectCooldown: 15 * time.Second,
	LostAfter:         1,
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeFrame struct {
	id       FrameID
	slot     Slot
	submix   bool
	shown    bool
	disposed bool
	channels []*fakeChannel
	layers   []*fakeLayer
	views    *fakeViews
}

func (f *fakeFrame) Show() { f.shown = true }
func (f *fakeFrame) Hide() { f.shown = false }

func (f *fakeFrame) Dispose() {
	if f.views.onDispose != nil {
		f.views.onDispose(f)
	}
	f.disposed = true
}

type fakeChannel struct {
	ctl        ChannelControl
	label      string
	gain       float64
	mute       bool
	levels     []float64
	configOpen bool
	shown      bool
}

func (c *fakeChannel) SetLabel(label string) { c.label = label }
func (c *fakeChannel) SetGain(gain float64) { c.gain = gain }
func (c *fakeChannel) SetMute(mute bool) { c.mute = mute }
func (c *fakeChannel) SetLevel(level float64) { c.levels = append(c.levels, level) }
func (c *fakeChannel) SetConfigOpen(open bool) { c.configOpen = open }
func (c *fakeChannel) Show() { c.shown = true }
func (c *fakeChannel) Hide() { c.shown = false }

type fakeLayer struct {
	ctl    GainLayerControl
	label  string
	gain   float64
	on     bool
	levels []float64
	shown  bool
}

func (l *fakeLayer) SetLabel(label string) { l.label = label }
func (l *fakeLayer) SetGain(gain float64) { l.gain = gain }
func (l *fakeLayer) SetOn(on bool) { l.on = on }
func (l *fakeLayer) SetLevel(level float64) { l.levels = append(l.levels, level) }
func (l *fakeLayer) Show() { l.shown = true }
func (l *fakeLayer) Hide() { l.shown = false }

type fakeConfig struct {
	id       FrameID
	index    int
	names    []string
	ctl      ConfigControl
	states   []bool
	disposed bool
}

func (c *fakeConfig) SetStates(on []bool) { c.states = on }
func (c *fakeConfig) Dispose() { c.disposed = true }

type fakeBanner struct {
	text     string
	disposed bool
}

func (b *fakeBanner) SetText(text string) { b.text = text }
func (b *fakeBanner) Dispose() { b.disposed = true }

type fakeNav struct {
	ctl      NavControl
	state    NavState
	updates  int
	disposed bool
}

func (n *fakeNav) SetState(s NavState) {
	n.state = s
	n.updates++
}

func (n *fakeNav) Dispose() { n.disposed = true }

type fakeViews struct {
	frames  []*fakeFrame
	configs []*fakeConfig
	banners []*fakeBanner
	navs    []*fakeNav

	// onDispose runs before a frame view is marked disposed.
	onDispose func(f *fakeFrame)
}

func (v *fakeViews) ChannelFrame(id FrameID, slot Slot) FrameView {
	f := &fakeFrame{id: id, slot: slot, shown: true, views: v}
	v.frames = append(v.frames, f)
	return f
}

func (v *fakeViews) Channel(frame FrameView, id FrameID, index int, ctl ChannelControl) ChannelView {
	f := frame.(*fakeFrame)
	c := &fakeChannel{ctl: ctl, shown: true}
	f.channels = append(f.channels, c)
	return c
}

func (v *fakeViews) SubmixFrame(slot Slot) FrameView {
	f := &fakeFrame{slot: slot, submix: true, shown: true, views: v}
	v.frames = append(v.frames, f)
	return f
}

func (v *fakeViews) GainLayer(frame FrameView, index int, ctl GainLayerControl) GainLayerView {
	f := frame.(*fakeFrame)
	l := &fakeLayer{ctl: ctl, shown: true}
	f.layers = append(f.layers, l)
	return l
}

func (v *fakeViews) ConfigPanel(id FrameID, index int, names []string, ctl ConfigControl) ConfigView {
	c := &fakeConfig{id: id, index: index, names: names, ctl: ctl}
	v.configs = append(v.configs, c)
	return c
}

func (v *fakeViews) Banner() BannerView {
	b := &fakeBanner{}
	v.banners = append(v.banners, b)
	return b
}

func (v *fakeViews) Navigation(ctl NavControl) NavView {
	n := &fakeNav{ctl: ctl}
	v.navs = append(v.navs, n)
	return n
}

// live returns the frame views that are not disposed.
func (v *fakeViews) live() []*fakeFrame {
	var out []*fakeFrame
	for _, f := range v.frames {
		if !f.disposed {
			out = append(out, f)
		}
	}
	return out
}

func (v *fakeViews) lastFrame(id FrameID) *fakeFrame {
	for i := len(v.frames) - 1; i >= 0; i-- {
		if f := v.frames[i]; !f.submix && f.id == id {
			return f
		}
	}
	return nil
}

func (v *fakeViews) lastSubmix() *fakeFrame {
	for i := len(v.frames) - 1; i >= 0; i-- {
		if f := v.frames[i]; f.submix {
			return f
		}
	}
	return nil
}

func (v *fakeViews) lastConfig() *fakeConfig {
	if len(v.configs) == 0 {
		return nil
	}
	return v.configs[len(v.configs)-1]
}

func (v *fakeViews) lastBanner() *fakeBanner {
	if len(v.banners) == 0 {
		return nil
	}
	return v.banners[len(v.banners)-1]
}

func (v *fakeViews) lastNav() *fakeNav {
	if len(v.navs) == 0 {
		return nil
	}
	return v.navs[len(v.navs)-1]
}

type recorder struct {
	topics []subject.Topic
}

func (r *recorder) OnUpdate(topic subject.Topic) {
	r.topics = append(r.topics, topic)
}

func (r *recorder) count(topic subject.Topic) int {
	n := 0
	for _, t := range r.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.topics = nil
}

type harness struct {
	sched    *scheduler.Scheduler
	state    *state.State
	root     *subject.Subject
	target   *remotetest.Target
	current  remote.Target
	poller   *Poller
	gestures *Gestures
	views    *fakeViews
	manager  *Manager
}

type harnessOptions struct {
	kind     kind.Kind
	policy   Policy
	extended bool
	submix   int
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.kind.Name == "" {
		opts.kind = kind.Potato
	}
	h := &harness{
		sched:  scheduler.New(scheduler.NewManualClock(epoch)),
		state:  state.New(33*time.Millisecond, 50*time.Millisecond),
		root:   subject.New("root"),
		target: remotetest.New(opts.kind),
		views:  &fakeViews{},
	}
	h.current = h.target
	resolve := func() remote.Target { return h.current }
	h.poller = NewPoller(h.state, h.root, h.sched, resolve, testTiming, opts.policy)
	h.gestures = NewGestures(h.state, h.poller, h.sched, testTiming)
	h.manager = NewManager(ManagerOptions{
		State:          h.state,
		Root:           h.root,
		Gestures:       h.gestures,
		Views:          h.views,
		Target:         resolve,
		Extended:       opts.extended,
		Submix:         opts.submix,
		ShowNavigation: true,
		ScrollStep:     3,
	})
	t.Cleanup(h.poller.Stop)
	return h
}

func (h *harness) build(t *testing.T) {
	t.Helper()
	if err := h.manager.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
}

func listenerSet(ls []subject.Listener) map[subject.Listener]bool {
	m := make(map[subject.Listener]bool, len(ls))
	for _, l := range ls {
		m[l] = true
	}
	return m
}
