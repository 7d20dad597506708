package compact

import (
	"slices"

	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
)

// LevelFloor is the meter reading of a muted or silent channel, in dB.
const LevelFloor = -200.0

// env is what every frame of one build shares. The kind is fixed when the
// build starts; the target is resolved on every access.
type env struct {
	kind       kind.Kind
	target     func() remote.Target
	state      *state.State
	root       *subject.Subject
	gestures   *Gestures
	views      Views
	scrollStep float64

	toggleConfig func(id FrameID, index int)
}

type registration struct {
	subject  *subject.Subject
	listener subject.Listener
}

// registrations records what a frame joined so teardown can leave in
// reverse order.
type registrations []registration

func (r *registrations) add(s *subject.Subject, l subject.Listener) {
	s.Add(l)
	*r = append(*r, registration{s, l})
}

func (r *registrations) teardown() {
	regs := *r
	for i := len(regs) - 1; i >= 0; i-- {
		regs[i].subject.Remove(regs[i].listener)
	}
	*r = nil
}

func (r registrations) listeners() []subject.Listener {
	out := make([]subject.Listener, 0, len(r))
	for _, reg := range r {
		out = append(out, reg.listener)
	}
	return out
}

// labelSync listens for ParamsDirty on the root subject and publishes
// LabelsDirty on the frame's own subject when any label changed.
type labelSync struct {
	labels *subject.Subject
	read   func() ([]string, error)
	cache  []string
}

func (s *labelSync) OnUpdate(topic subject.Topic) {
	if topic != subject.ParamsDirty {
		return
	}
	labels, err := s.read()
	if err != nil {
		log.WithField("frame", s.labels.Name()).Debugf("error reading labels: %v", err)
		return
	}
	if slices.Equal(labels, s.cache) {
		return
	}
	s.cache = labels
	s.labels.Notify(subject.LabelsDirty)
}

// ChannelFrame is the row of strips or buses.
type ChannelFrame struct {
	env  *env
	id   FrameID
	slot Slot
	view FrameView

	sync     *labelSync
	channels []*Channel
	regs     registrations
}

// newChannelFrame builds the widgets of a frame and reads its labels from t.
// Nothing is registered until attach.
func newChannelFrame(e *env, id FrameID, slot Slot, t remote.Target) (*ChannelFrame, error) {
	f := &ChannelFrame{
		env:  e,
		id:   id,
		slot: slot,
	}
	f.sync = &labelSync{
		labels: subject.New(id.String() + "-labels"),
		read:   func() ([]string, error) { return f.readLabels(e.target()) },
	}
	labels, err := f.readLabels(t)
	if err != nil {
		return nil, err
	}
	f.sync.cache = labels

	f.view = e.views.ChannelFrame(id, slot)
	n := e.kind.NumStrip()
	if id == BusFrame {
		n = e.kind.NumBus()
	}
	for i := 0; i < n; i++ {
		c := &Channel{env: e, id: id, index: i, visible: true}
		c.view = e.views.Channel(f.view, id, i, c)
		f.channels = append(f.channels, c)
	}
	return f, nil
}

func (f *ChannelFrame) readLabels(t remote.Target) ([]string, error) {
	if t == nil {
		return nil, ErrNoTarget
	}
	var labels []string
	if f.id == BusFrame {
		for i := 0; i < f.env.kind.NumBus(); i++ {
			b, err := t.Bus(i)
			if err != nil {
				return nil, err
			}
			labels = append(labels, b.Label())
		}
		return labels, nil
	}
	for i := 0; i < f.env.kind.NumStrip(); i++ {
		s, err := t.Strip(i)
		if err != nil {
			return nil, err
		}
		labels = append(labels, s.Label())
	}
	return labels, nil
}

func (f *ChannelFrame) attach() {
	f.regs.add(f.env.root, f.sync)
	for _, c := range f.channels {
		f.regs.add(f.env.root, c)
		f.regs.add(f.sync.labels, c)
	}
	for _, c := range f.channels {
		c.syncLabel()
		if c.visible {
			c.syncParams()
		}
	}
	log.WithField("frame", f.id).Debug("frame attached")
}

// teardown leaves every subject before the widgets are disposed.
func (f *ChannelFrame) teardown() {
	f.regs.teardown()
	f.sync.labels.Clear()
	f.view.Dispose()
	log.WithField("frame", f.id).Debug("frame torn down")
}

// dispose releases the widgets of a frame that was never attached.
func (f *ChannelFrame) dispose() {
	f.view.Dispose()
}

func (f *ChannelFrame) ID() FrameID {
	return f.id
}

func (f *ChannelFrame) Channels() []*Channel {
	return f.channels
}

// Listeners returns what the frame registered, in registration order.
func (f *ChannelFrame) Listeners() []subject.Listener {
	return f.regs.listeners()
}
