package compact

import (
	"strings"

	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
)

var busOptions = []string{"mono", "eq"}

// ConfigPanel shows the toggles of one channel: the routing of a strip, or
// the mono and EQ switches of a bus. Only one is open at a time.
type ConfigPanel struct {
	env   *env
	id    FrameID
	index int
	names []string
	view  ConfigView
	regs  registrations
}

func newConfigPanel(e *env, id FrameID, index int, t remote.Target) (*ConfigPanel, error) {
	if t == nil {
		return nil, ErrNoTarget
	}
	p := &ConfigPanel{env: e, id: id, index: index}
	switch id {
	case StripFrame:
		if _, err := t.Strip(index); err != nil {
			return nil, err
		}
		p.names = e.kind.BusNames()
	case BusFrame:
		if _, err := t.Bus(index); err != nil {
			return nil, err
		}
		p.names = busOptions
	default:
		return nil, ErrUnknownView
	}
	p.view = e.views.ConfigPanel(id, index, p.names, p)
	return p, nil
}

func (p *ConfigPanel) ID() FrameID {
	return p.id
}

func (p *ConfigPanel) Index() int {
	return p.index
}

func (p *ConfigPanel) Names() []string {
	return p.names
}

func (p *ConfigPanel) attach() {
	p.regs.add(p.env.root, p)
	p.refresh()
}

func (p *ConfigPanel) teardown() {
	p.regs.teardown()
	p.view.Dispose()
}

func (p *ConfigPanel) OnUpdate(topic subject.Topic) {
	if topic == subject.ParamsDirty {
		p.refresh()
	}
}

// States reads the current toggle states from the target.
func (p *ConfigPanel) States() ([]bool, error) {
	t := p.env.target()
	if t == nil {
		return nil, ErrNoTarget
	}
	if p.id == BusFrame {
		b, err := t.Bus(p.index)
		if err != nil {
			return nil, err
		}
		return []bool{b.Mono(), b.EQ()}, nil
	}
	s, err := t.Strip(p.index)
	if err != nil {
		return nil, err
	}
	on := make([]bool, len(p.names))
	for j := range p.names {
		on[j] = s.Route(j)
	}
	return on, nil
}

func (p *ConfigPanel) refresh() {
	on, err := p.States()
	if err != nil {
		log.Debugf("error reading %v %d config: %v", p.id, p.index, err)
		return
	}
	p.view.SetStates(on)
}

func (p *ConfigPanel) Toggle(option int) {
	if option < 0 || option >= len(p.names) {
		return
	}
	t := p.env.target()
	if t == nil {
		return
	}
	if p.id == BusFrame {
		b, err := t.Bus(p.index)
		if err != nil {
			log.Warnf("error toggling %v: %v", p.names[option], err)
			return
		}
		switch p.names[option] {
		case "mono":
			b.SetMono(!b.Mono())
		case "eq":
			b.SetEQ(!b.EQ())
		}
	} else {
		s, err := t.Strip(p.index)
		if err != nil {
			log.Warnf("error toggling %v: %v", p.names[option], err)
			return
		}
		s.SetRoute(option, !s.Route(option))
	}
	p.refresh()
}

// Banner names the submix bus currently under control.
type Banner struct {
	env    *env
	view   BannerView
	submix func() int
	text   string
	regs   registrations
	// stale is set when a submix change arrived during a window drag.
	stale  bool
}

func newBanner(e *env, submix func() int) *Banner {
	return &Banner{
		env:    e,
		view:   e.views.Banner(),
		submix: submix,
	}
}

func (b *Banner) attach() {
	b.regs.add(b.env.root, b)
	b.refresh()
}

func (b *Banner) teardown() {
	b.regs.teardown()
	b.view.Dispose()
}

func (b *Banner) dispose() {
	b.view.Dispose()
}

func (b *Banner) Text() string {
	return b.text
}

func (b *Banner) OnUpdate(topic subject.Topic) {
	switch topic {
	case subject.SubmixChanged:
		if b.env.state.Get(state.Dragging) {
			b.stale = true
			return
		}
		b.refresh()
	case subject.DragEnded:
		if b.stale {
			b.refresh()
		}
	}
}

func (b *Banner) refresh() {
	t := b.env.target()
	if t == nil {
		return
	}
	bus, err := t.Bus(b.submix())
	if err != nil {
		log.Debugf("error reading submix label: %v", err)
		return
	}
	b.stale = false
	b.text = "SUBMIX: " + strings.ToUpper(bus.Label())
	b.view.SetText(b.text)
}

// Navigation is the column of view switches.
type Navigation struct {
	m    *Manager
	view NavView
	regs registrations
}

func newNavigation(m *Manager, e *env) *Navigation {
	n := &Navigation{m: m}
	n.view = e.views.Navigation(n)
	return n
}

func (n *Navigation) attach(root *subject.Subject) {
	n.regs.add(root, n)
	n.refresh()
}

func (n *Navigation) teardown() {
	n.regs.teardown()
	n.view.Dispose()
}

func (n *Navigation) dispose() {
	n.view.Dispose()
}

func (n *Navigation) OnUpdate(topic subject.Topic) {
	if topic == subject.SubmixChanged {
		n.refresh()
	}
}

func (n *Navigation) refresh() {
	n.view.SetState(n.m.NavState())
}

func (n *Navigation) SwitchView() {
	to := BusFrame
	if n.m.View() == BusFrame {
		to = StripFrame
	}
	if err := n.m.SwitchView(to); err != nil {
		log.Warnf("error switching view: %v", err)
	}
}

func (n *Navigation) ToggleExtend() {
	if err := n.m.ToggleExtend(); err != nil {
		log.Warnf("error toggling extend: %v", err)
	}
}

func (n *Navigation) ToggleSubmix() {
	if err := n.m.ToggleSubmix(); err != nil {
		log.Warnf("error toggling submix: %v", err)
	}
}
