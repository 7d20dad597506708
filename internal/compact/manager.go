package compact

import (
	"errors"
	"fmt"

	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownView       = errors.New("unknown view")
	ErrNoTarget          = errors.New("no target")
)

type ManagerOptions struct {
	State    *state.State
	Root     *subject.Subject
	Gestures *Gestures
	Views    Views
	// Target resolves the current target. It is called on every access.
	Target func() remote.Target

	Extended       bool
	Submix         int
	ShowNavigation bool
	ScrollStep     float64
}

// Manager builds and tears down the frames of the window and keeps their
// registrations on the root subject consistent. All methods must be called
// on the UI goroutine.
type Manager struct {
	state      *state.State
	root       *subject.Subject
	gestures   *Gestures
	views      Views
	resolve    func() remote.Target
	showNav    bool
	scrollStep float64

	env         *env
	view        FrameID
	extended    bool
	submixShown bool
	submix      int

	main      *ChannelFrame
	secondary *ChannelFrame
	overlay   *SubmixFrame
	config    *ConfigPanel
	nav       *Navigation
	banner    *Banner
}

func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		state:      opts.State,
		root:       opts.Root,
		gestures:   opts.Gestures,
		views:      opts.Views,
		resolve:    opts.Target,
		showNav:    opts.ShowNavigation,
		scrollStep: opts.ScrollStep,
		view:       StripFrame,
		extended:   opts.Extended,
		submix:     opts.Submix,
	}
}

func (m *Manager) target() remote.Target {
	return m.resolve()
}

func (m *Manager) newEnv(k kind.Kind) *env {
	return &env{
		kind:         k,
		target:       m.target,
		state:        m.state,
		root:         m.root,
		gestures:     m.gestures,
		views:        m.views,
		scrollStep:   m.scrollStep,
		toggleConfig: m.toggleConfig,
	}
}

// layout is a fully constructed but unregistered set of top level frames.
type layout struct {
	env         *env
	view        FrameID
	extended    bool
	submixShown bool
	submix      int

	main      *ChannelFrame
	secondary *ChannelFrame
	overlay   *SubmixFrame
	nav       *Navigation
	banner    *Banner
}

func (l *layout) dispose() {
	if l.banner != nil {
		l.banner.dispose()
	}
	if l.nav != nil {
		l.nav.dispose()
	}
	if l.overlay != nil {
		l.overlay.dispose()
	}
	if l.secondary != nil {
		l.secondary.dispose()
	}
	if l.main != nil {
		l.main.dispose()
	}
}

// stage constructs every top level frame against t without registering
// anything. On error whatever was built is disposed.
func (m *Manager) stage(t remote.Target) (*layout, error) {
	if t == nil {
		return nil, ErrNoTarget
	}
	e := m.newEnv(t.Kind())
	l := &layout{
		env:         e,
		view:        m.view,
		extended:    m.extended && m.view == StripFrame,
		submixShown: m.submixShown && e.kind.HasSubmix(),
		submix:      m.submix,
	}
	if l.submix >= e.kind.NumBus() {
		l.submix = 0
	}

	var err error
	if l.main, err = newChannelFrame(e, l.view, SlotMain, t); err != nil {
		l.dispose()
		return nil, err
	}
	if l.extended {
		if l.secondary, err = newChannelFrame(e, BusFrame, SlotSecondary, t); err != nil {
			l.dispose()
			return nil, err
		}
	}
	if l.submixShown {
		if l.overlay, err = newSubmixFrame(e, l.submix, t); err != nil {
			l.dispose()
			return nil, err
		}
	}
	if m.showNav {
		l.nav = newNavigation(m, e)
	}
	if e.kind.HasBanner() {
		l.banner = newBanner(e, m.Submix)
	}
	return l, nil
}

func (m *Manager) install(l *layout) {
	m.env = l.env
	m.view = l.view
	m.extended = l.extended
	m.submixShown = l.submixShown
	m.submix = l.submix
	m.main, m.secondary, m.overlay, m.nav, m.banner = l.main, l.secondary, l.overlay, l.nav, l.banner

	m.main.attach()
	if m.secondary != nil {
		m.secondary.attach()
		if m.overlay != nil {
			m.secondary.view.Hide()
		}
	}
	if m.overlay != nil {
		m.overlay.attach()
	}
	if m.nav != nil {
		m.nav.attach(m.root)
	}
	if m.banner != nil {
		m.banner.attach()
	}
}

// Build constructs the window for the current target, replacing whatever
// was built before.
func (m *Manager) Build() error {
	l, err := m.stage(m.target())
	if err != nil {
		return fmt.Errorf("error building frames: %w", err)
	}
	m.TeardownAll()
	m.install(l)
	log.WithField("kind", l.env.kind).Info("frames built")
	return nil
}

// SwitchTransport rebuilds every frame against next. The new frames are
// constructed first; if that fails the current frames are left untouched
// and the error is returned. Otherwise the current frames are torn down,
// commit is called to make next the current target, and the new frames are
// registered.
func (m *Manager) SwitchTransport(next remote.Target, commit func()) error {
	if next == nil {
		return ErrNoTarget
	}
	l, err := m.stage(next)
	if err != nil {
		return fmt.Errorf("error building frames for %v target: %w", next.Transport(), err)
	}
	m.TeardownAll()
	if commit != nil {
		commit()
	}
	m.install(l)
	log.WithFields(logrus.Fields{
		"transport": next.Transport(),
		"kind":      next.Kind(),
	}).Info("transport switched")
	return nil
}

// TeardownAll deregisters and disposes every frame and clears the root
// subject.
func (m *Manager) TeardownAll() {
	m.closeConfig()
	if m.banner != nil {
		m.banner.teardown()
		m.banner = nil
	}
	if m.nav != nil {
		m.nav.teardown()
		m.nav = nil
	}
	if m.overlay != nil {
		m.overlay.teardown()
		m.overlay = nil
	}
	if m.secondary != nil {
		m.secondary.teardown()
		m.secondary = nil
	}
	if m.main != nil {
		m.main.teardown()
		m.main = nil
	}
	m.env = nil
	m.root.Clear()
}

// SwitchView replaces the main frame with the strip or bus frame. It is
// rejected while the window is extended.
func (m *Manager) SwitchView(to FrameID) error {
	if to != StripFrame && to != BusFrame {
		return fmt.Errorf("%w: %v", ErrUnknownView, to)
	}
	if m.env == nil {
		return ErrNoTarget
	}
	if m.extended {
		return fmt.Errorf("%w: cannot switch view while extended", ErrInvalidTransition)
	}
	if to == m.view {
		return nil
	}
	next, err := newChannelFrame(m.env, to, SlotMain, m.target())
	if err != nil {
		return err
	}
	m.closeConfig()
	m.main.teardown()
	m.view = to
	m.main = next
	next.attach()
	m.refreshNav()
	return nil
}

// ToggleExtend shows or removes the bus frame next to the strip frame.
// Reducing also closes a bus config panel and the submix overlay.
func (m *Manager) ToggleExtend() error {
	if m.env == nil {
		return ErrNoTarget
	}
	if m.view == BusFrame {
		return fmt.Errorf("%w: cannot extend the bus view", ErrInvalidTransition)
	}
	if !m.extended {
		f, err := newChannelFrame(m.env, BusFrame, SlotSecondary, m.target())
		if err != nil {
			return err
		}
		m.secondary = f
		m.extended = true
		f.attach()
		if m.overlay != nil {
			f.view.Hide()
		}
		m.refreshNav()
		return nil
	}

	if m.config != nil && m.config.id == BusFrame {
		m.closeConfig()
	}
	if m.overlay != nil {
		m.overlay.teardown()
		m.overlay = nil
		m.submixShown = false
	}
	m.secondary.teardown()
	m.secondary = nil
	m.extended = false
	m.refreshNav()
	return nil
}

// ToggleSubmix shows or removes the submix overlay. The bus frame it covers
// is hidden, not destroyed.
func (m *Manager) ToggleSubmix() error {
	if m.env == nil {
		return ErrNoTarget
	}
	if !m.env.kind.HasSubmix() {
		return fmt.Errorf("%w: %v has no submix", ErrInvalidTransition, m.env.kind)
	}
	if m.overlay != nil {
		m.overlay.teardown()
		m.overlay = nil
		m.submixShown = false
		if m.secondary != nil {
			m.secondary.view.Show()
		}
		m.refreshNav()
		return nil
	}

	f, err := newSubmixFrame(m.env, m.submix, m.target())
	if err != nil {
		return err
	}
	if m.secondary != nil {
		m.secondary.view.Hide()
	}
	m.overlay = f
	m.submixShown = true
	f.attach()
	m.refreshNav()
	return nil
}

// SetSubmix selects the bus whose gain layers the overlay controls and
// publishes SubmixChanged.
func (m *Manager) SetSubmix(i int) error {
	if m.env == nil {
		return ErrNoTarget
	}
	if err := remote.CheckBus(m.env.kind, i); err != nil {
		return err
	}
	if i == m.submix {
		return nil
	}
	if m.overlay != nil {
		next, err := newSubmixFrame(m.env, i, m.target())
		if err != nil {
			return err
		}
		m.overlay.teardown()
		m.overlay = next
		next.attach()
	}
	m.submix = i
	m.root.Notify(subject.SubmixChanged)
	return nil
}

// SetNavigation shows or hides the navigation column. The choice also
// applies to later rebuilds.
func (m *Manager) SetNavigation(show bool) {
	m.showNav = show
	switch {
	case show && m.nav == nil && m.env != nil:
		m.nav = newNavigation(m, m.env)
		m.nav.attach(m.root)
	case !show && m.nav != nil:
		m.nav.teardown()
		m.nav = nil
	}
}

func (m *Manager) NavigationShown() bool {
	return m.showNav
}

func (m *Manager) frame(id FrameID) *ChannelFrame {
	if m.main != nil && m.main.id == id {
		return m.main
	}
	if m.secondary != nil && m.secondary.id == id {
		return m.secondary
	}
	return nil
}

// OpenConfig opens the config panel of a channel on screen, closing any
// other.
func (m *Manager) OpenConfig(id FrameID, index int) error {
	if id != StripFrame && id != BusFrame {
		return fmt.Errorf("%w: %v", ErrUnknownView, id)
	}
	f := m.frame(id)
	if f == nil {
		return fmt.Errorf("%w: %v frame is not shown", ErrInvalidTransition, id)
	}
	if index < 0 || index >= len(f.channels) {
		return fmt.Errorf("%w: %v index %v", remote.ErrOutOfRange, id, index)
	}
	p, err := newConfigPanel(m.env, id, index, m.target())
	if err != nil {
		return err
	}
	m.closeConfig()
	m.config = p
	p.attach()
	f.channels[index].setConfigOpen(true)
	return nil
}

func (m *Manager) CloseConfig() {
	m.closeConfig()
}

func (m *Manager) closeConfig() {
	if m.config == nil {
		return
	}
	if f := m.frame(m.config.id); f != nil && m.config.index < len(f.channels) {
		f.channels[m.config.index].setConfigOpen(false)
	}
	m.config.teardown()
	m.config = nil
}

func (m *Manager) toggleConfig(id FrameID, index int) {
	if m.config != nil && m.config.id == id && m.config.index == index {
		m.closeConfig()
		return
	}
	if err := m.OpenConfig(id, index); err != nil {
		log.Warnf("error opening config: %v", err)
	}
}

func (m *Manager) refreshNav() {
	if m.nav != nil {
		m.nav.refresh()
	}
}

func (m *Manager) NavState() NavState {
	s := NavState{
		View:          m.view,
		Extended:      m.extended,
		Submix:        m.submixShown,
		ViewEnabled:   !m.extended,
		ExtendEnabled: m.view != BusFrame,
	}
	if m.env != nil {
		s.SubmixEnabled = m.env.kind.HasSubmix()
	}
	return s
}

func (m *Manager) Kind() kind.Kind {
	if m.env == nil {
		return kind.Kind{}
	}
	return m.env.kind
}

func (m *Manager) View() FrameID {
	return m.view
}

func (m *Manager) Extended() bool {
	return m.extended
}

func (m *Manager) SubmixShown() bool {
	return m.submixShown
}

func (m *Manager) Submix() int {
	return m.submix
}

func (m *Manager) Main() *ChannelFrame {
	return m.main
}

func (m *Manager) Secondary() *ChannelFrame {
	return m.secondary
}

func (m *Manager) Overlay() *SubmixFrame {
	return m.overlay
}

func (m *Manager) Config() *ConfigPanel {
	return m.config
}

func (m *Manager) Banner() *Banner {
	return m.banner
}
