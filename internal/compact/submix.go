package compact

import (
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/subject"
)

// SubmixFrame shows, for every strip, the gain layer that feeds one bus.
type SubmixFrame struct {
	env    *env
	submix int
	view   FrameView

	sync   *labelSync
	layers []*GainLayer
	regs   registrations
}

func newSubmixFrame(e *env, submix int, t remote.Target) (*SubmixFrame, error) {
	if t == nil {
		return nil, ErrNoTarget
	}
	if err := remote.CheckBus(e.kind, submix); err != nil {
		return nil, err
	}
	f := &SubmixFrame{env: e, submix: submix}
	f.sync = &labelSync{
		labels: subject.New("submix-labels"),
		read:   func() ([]string, error) { return f.readLabels(e.target()) },
	}
	labels, err := f.readLabels(t)
	if err != nil {
		return nil, err
	}
	f.sync.cache = labels

	f.view = e.views.SubmixFrame(SlotSecondary)
	for i := 0; i < e.kind.NumStrip(); i++ {
		l := &GainLayer{env: e, strip: i, layer: submix, visible: true}
		l.view = e.views.GainLayer(f.view, i, l)
		f.layers = append(f.layers, l)
	}
	return f, nil
}

func (f *SubmixFrame) readLabels(t remote.Target) ([]string, error) {
	if t == nil {
		return nil, ErrNoTarget
	}
	labels := make([]string, 0, f.env.kind.NumStrip())
	for i := 0; i < f.env.kind.NumStrip(); i++ {
		s, err := t.Strip(i)
		if err != nil {
			return nil, err
		}
		labels = append(labels, s.Label())
	}
	return labels, nil
}

func (f *SubmixFrame) attach() {
	f.regs.add(f.env.root, f.sync)
	for _, l := range f.layers {
		f.regs.add(f.env.root, l)
		f.regs.add(f.sync.labels, l)
	}
	for _, l := range f.layers {
		l.syncLabel()
		if l.visible {
			l.syncParams()
		}
	}
	log.WithField("submix", f.submix).Debug("submix frame attached")
}

func (f *SubmixFrame) teardown() {
	f.regs.teardown()
	f.sync.labels.Clear()
	f.view.Dispose()
	log.WithField("submix", f.submix).Debug("submix frame torn down")
}

func (f *SubmixFrame) dispose() {
	f.view.Dispose()
}

func (f *SubmixFrame) Submix() int {
	return f.submix
}

func (f *SubmixFrame) Layers() []*GainLayer {
	return f.layers
}

func (f *SubmixFrame) Listeners() []subject.Listener {
	return f.regs.listeners()
}

// GainLayer is strip's send level into the submix bus. It is "on" when the
// strip is routed to that bus.
type GainLayer struct {
	env   *env
	strip int
	layer int
	view  GainLayerView

	visible bool
	label   string
	gain    float64
	on      bool
	mute    bool
}

func (l *GainLayer) Strip() int {
	return l.strip
}

func (l *GainLayer) Visible() bool {
	return l.visible
}

func (l *GainLayer) Gain() float64 {
	return l.gain
}

func (l *GainLayer) On() bool {
	return l.on
}

func (l *GainLayer) access() (remote.Strip, error) {
	t := l.env.target()
	if t == nil {
		return nil, ErrNoTarget
	}
	return t.Strip(l.strip)
}

func (l *GainLayer) OnUpdate(topic subject.Topic) {
	switch topic {
	case subject.ParamsDirty:
		l.syncParams()
	case subject.LevelsDirty:
		l.updateLevel()
	case subject.LabelsDirty:
		l.syncLabel()
	}
}

func (l *GainLayer) syncParams() {
	s, err := l.access()
	if err != nil {
		log.Debugf("error syncing gain layer %d: %v", l.strip, err)
		return
	}
	l.gain = s.GainLayer(l.layer)
	l.on = s.Route(l.layer)
	l.mute = s.Mute()
	l.view.SetGain(l.gain)
	l.view.SetOn(l.on)
}

func (l *GainLayer) syncLabel() {
	s, err := l.access()
	if err != nil {
		log.Debugf("error syncing gain layer label %d: %v", l.strip, err)
		return
	}
	l.label = s.Label()
	if l.label == "" {
		if l.visible {
			l.visible = false
			l.env.root.Remove(l)
			l.view.Hide()
		}
		return
	}
	l.view.SetLabel(ShortLabel(l.label))
	if !l.visible {
		l.visible = true
		l.env.root.Add(l)
		l.view.Show()
		l.syncParams()
	}
}

func (l *GainLayer) updateLevel() {
	t := l.env.target()
	if t == nil {
		return
	}
	k := l.env.kind
	level, ok := peak(t.Levels(remote.StripPreFader), k.StripLevelOffset(l.strip), k.StripLevelWidth(l.strip))
	if !ok {
		return
	}
	if l.mute || !l.on {
		level = LevelFloor
	} else {
		level += l.gain
	}
	l.view.SetLevel(level)
}

func (l *GainLayer) SetGain(gain float64) {
	s, err := l.access()
	if err != nil {
		log.Warnf("error setting gain layer: %v", err)
		return
	}
	l.gain = ClampGain(gain)
	s.SetGainLayer(l.layer, l.gain)
}

func (l *GainLayer) PressSlider() {
	l.env.gestures.SliderPressed()
}

func (l *GainLayer) ReleaseSlider() {
	l.env.gestures.SliderReleased()
}

func (l *GainLayer) Scroll(up bool) {
	l.env.gestures.Scrolled(func() {
		l.SetGain(NudgeGain(l.gain, up, l.env.scrollStep))
		l.view.SetGain(l.gain)
	})
}

func (l *GainLayer) ResetGain() {
	l.SetGain(0)
	l.view.SetGain(l.gain)
}

func (l *GainLayer) ToggleOn() {
	s, err := l.access()
	if err != nil {
		log.Warnf("error toggling gain layer: %v", err)
		return
	}
	l.on = !s.Route(l.layer)
	s.SetRoute(l.layer, l.on)
	l.view.SetOn(l.on)
}
