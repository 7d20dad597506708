package compact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hrko/vmcompact/internal/config"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/scheduler"
	"github.com/hrko/vmcompact/internal/state"
	"github.com/hrko/vmcompact/internal/subject"
	"github.com/hrko/vmcompact/internal/vban"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyConnected  = errors.New("already connected")
	ErrNotConnected      = errors.New("not connected")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrCoolingDown       = errors.New("reconnect is cooling down")
	ErrConnecting        = errors.New("connection in progress")
	ErrUnknownProfile    = errors.New("unknown profile")
)

// Prompter asks the user a yes/no question without blocking and reports the
// answer on the UI goroutine.
type Prompter interface {
	Confirm(title, message string, answer func(ok bool))
}

type Options struct {
	Config    *config.Config
	Kind      kind.Kind
	Scheduler *scheduler.Scheduler
	Views     Views
	// Prompter defaults to always answering yes.
	Prompter Prompter

	// OpenLocal defaults to remote.OpenLocal.
	OpenLocal func(k kind.Kind) (remote.Target, error)
	// DialVBAN defaults to DialVBAN.
	DialVBAN func(ctx context.Context, c config.Connection) (remote.Target, error)
	// EngineRunning defaults to remote.EngineRunning.
	EngineRunning func(ctx context.Context) bool
	// Quit is called when the user declines to restart a lost engine.
	Quit func()
}

// App ties the core together: it owns the targets, switches between the
// local engine and a VBAN connection, and recovers from a lost engine.
type App struct {
	cfg      *config.Config
	kind     kind.Kind
	sched    *scheduler.Scheduler
	prompter Prompter
	timing   Timing

	openLocal     func(k kind.Kind) (remote.Target, error)
	dialVBAN      func(ctx context.Context, c config.Connection) (remote.Target, error)
	engineRunning func(ctx context.Context) bool
	quit          func()

	state    *state.State
	root     *subject.Subject
	poller   *Poller
	gestures *Gestures
	manager  *Manager
	profiles *ProfileCache

	local         remote.Target
	network       remote.Target
	connection    int
	dialing       bool
	closed        bool
	cooldownUntil time.Time
	onChange      []func()
}

func New(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		cfg:           cfg,
		kind:          opts.Kind,
		sched:         opts.Scheduler,
		prompter:      opts.Prompter,
		timing:        TimingFromConfig(cfg.Updates),
		openLocal:     opts.OpenLocal,
		dialVBAN:      opts.DialVBAN,
		engineRunning: opts.EngineRunning,
		quit:          opts.Quit,
		connection:    -1,
	}
	if a.sched == nil {
		a.sched = scheduler.New(nil)
	}
	if a.openLocal == nil {
		a.openLocal = remote.OpenLocal
	}
	if a.dialVBAN == nil {
		a.dialVBAN = DialVBAN
	}
	if a.engineRunning == nil {
		a.engineRunning = remote.EngineRunning
	}
	if a.quit == nil {
		a.quit = func() {}
	}

	a.state = state.New(cfg.Updates.ParamPoll.Duration, cfg.Updates.LevelPoll.Duration)
	a.root = subject.New("root")
	a.poller = NewPoller(a.state, a.root, a.sched, a.Target, a.timing, Policy{
		SuppressLevelsWhileSliding: cfg.Updates.SuppressLevelsWhileSliding,
	})
	a.poller.SetLostFunc(a.onLost)
	a.gestures = NewGestures(a.state, a.poller, a.sched, a.timing)
	a.manager = NewManager(ManagerOptions{
		State:          a.state,
		Root:           a.root,
		Gestures:       a.gestures,
		Views:          opts.Views,
		Target:         a.Target,
		Extended:       cfg.Extends.Extended,
		Submix:         cfg.Submixes.Default,
		ShowNavigation: cfg.Navigation.Show,
		ScrollStep:     float64(cfg.MWScrollStep.Size),
	})
	a.profiles = NewProfileCache(cfg.Dir)
	return a
}

// Start logs in to the local engine, builds the window and starts polling.
// The startup profile, if configured, is applied last.
func (a *App) Start(ctx context.Context) error {
	wasRunning := a.engineRunning(ctx)
	t, err := a.openLocal(a.kind)
	if err != nil {
		return fmt.Errorf("error logging in to %v engine: %w", a.kind, err)
	}
	a.local = t
	if err := a.manager.Build(); err != nil {
		t.Close()
		a.local = nil
		return err
	}
	a.poller.Start(wasRunning)
	log.WithFields(logrus.Fields{
		"kind":       a.kind,
		"wasRunning": wasRunning,
	}).Info("started")

	if name := a.cfg.Configs.Config; name != "" {
		if err := a.LoadProfile(name); err != nil {
			log.Warnf("error loading startup profile: %v", err)
		}
	}
	return nil
}

// Target returns the current target: the VBAN connection when connected,
// else the local engine.
func (a *App) Target() remote.Target {
	if a.state.Get(state.NetworkConnected) && a.network != nil {
		return a.network
	}
	return a.local
}

func (a *App) State() *state.State {
	return a.state
}

func (a *App) Root() *subject.Subject {
	return a.root
}

func (a *App) Poller() *Poller {
	return a.poller
}

func (a *App) Gestures() *Gestures {
	return a.gestures
}

func (a *App) Manager() *Manager {
	return a.manager
}

func (a *App) Profiles() *ProfileCache {
	return a.profiles
}

func (a *App) Connections() []config.Connection {
	return a.cfg.VBAN
}

// Connection returns the index of the active VBAN connection, or -1.
func (a *App) Connection() int {
	return a.connection
}

func (a *App) Connected() bool {
	return a.state.Get(state.NetworkConnected)
}

// CanConnect is false while connected or dialing and for a while after a
// disconnect.
func (a *App) CanConnect() bool {
	return !a.Connected() && !a.dialing && !a.sched.Now().Before(a.cooldownUntil)
}

// OnChange registers fn to run after the transport or its availability
// changed.
func (a *App) OnChange(fn func()) {
	a.onChange = append(a.onChange, fn)
}

func (a *App) changed() {
	for _, fn := range a.onChange {
		fn()
	}
}

// Connect switches to VBAN connection i. If the login fails the local
// engine stays current.
func (a *App) Connect(ctx context.Context, i int) error {
	conn, err := a.checkConnect(i)
	if err != nil {
		return err
	}
	log.Infof("Attempting vban connection to %v", conn.IP)
	t, err := a.dialVBAN(ctx, conn)
	return a.finishConnect(i, conn, t, err)
}

// ConnectAsync is Connect with the login run on its own goroutine, so the UI
// goroutine is not held for the login timeout. The transport is switched on
// the scheduler and done, if set, receives the result there. Errors found
// before dialing are returned directly.
func (a *App) ConnectAsync(ctx context.Context, i int, done func(error)) error {
	conn, err := a.checkConnect(i)
	if err != nil {
		return err
	}
	log.Infof("Attempting vban connection to %v", conn.IP)
	a.dialing = true
	a.changed()
	go func() {
		t, err := a.dialVBAN(ctx, conn)
		a.sched.Post("vban-connect", func() {
			a.dialing = false
			if a.closed {
				if t != nil {
					t.Close()
				}
				return
			}
			err := a.finishConnect(i, conn, t, err)
			if err != nil {
				a.changed()
			}
			if done != nil {
				done(err)
			}
		})
	}()
	return nil
}

func (a *App) checkConnect(i int) (config.Connection, error) {
	if a.Connected() {
		return config.Connection{}, ErrAlreadyConnected
	}
	if a.dialing {
		return config.Connection{}, ErrConnecting
	}
	if i < 0 || i >= len(a.cfg.VBAN) {
		return config.Connection{}, fmt.Errorf("%w: %v", ErrUnknownConnection, i)
	}
	if a.sched.Now().Before(a.cooldownUntil) {
		return config.Connection{}, ErrCoolingDown
	}
	return a.cfg.VBAN[i], nil
}

func (a *App) finishConnect(i int, conn config.Connection, t remote.Target, err error) error {
	if err != nil {
		log.Errorf("%v, resuming local connection", err)
		return fmt.Errorf("error connecting to %v: %w", conn.Name, err)
	}
	err = a.manager.SwitchTransport(t, func() {
		a.network = t
		a.connection = i
		a.state.Set(state.NetworkConnected, true)
	})
	if err != nil {
		t.Close()
		return err
	}
	a.profiles.Invalidate()
	a.changed()
	return nil
}

// Disconnect logs out of the VBAN connection and rebuilds against the local
// engine. Reconnecting is refused for the reconnect cooldown.
func (a *App) Disconnect() error {
	if !a.Connected() {
		return ErrNotConnected
	}
	if a.local == nil {
		return fmt.Errorf("%w: no local engine", ErrNoTarget)
	}
	old := a.network
	err := a.manager.SwitchTransport(a.local, func() {
		a.state.Set(state.NetworkConnected, false)
		a.network = nil
		a.connection = -1
	})
	if err != nil {
		return err
	}
	if err := old.Close(); err != nil {
		log.Warnf("error closing vban connection: %v", err)
	}
	a.profiles.Invalidate()
	a.cooldownUntil = a.sched.Now().Add(a.timing.ReconnectCooldown)
	if a.timing.ReconnectCooldown > 0 {
		a.sched.After("reconnect-cooldown", a.timing.ReconnectCooldown, a.changed)
	}
	a.changed()
	return nil
}

func (a *App) onLost(t remote.Target, err error) {
	if t.Transport() == remote.Network {
		log.Warnf("vban connection lost (%v), resuming local connection", err)
		if err := a.Disconnect(); err != nil {
			log.Errorf("error resuming local connection: %v", err)
		}
		a.poller.Recovered()
		return
	}

	answer := func(ok bool) {
		if !ok {
			log.Info("restart declined, quitting")
			a.quit()
			return
		}
		if err := a.restartLocal(); err != nil {
			log.Errorf("error restarting engine: %v", err)
		}
		a.poller.Recovered()
	}
	if a.prompter == nil {
		answer(true)
		return
	}
	a.prompter.Confirm("Connection lost", "Restart Voicemeeter GUI?", answer)
}

// restartLocal ends the local session, logs in again and rebuilds every
// frame. Updates are held for the restart grace period.
func (a *App) restartLocal() error {
	log.Debug("healthcheck failed, rebuilding the app after GUI restart")
	a.poller.Pause()
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			log.Warnf("error closing local engine: %v", err)
		}
	}
	t, err := a.openLocal(a.kind)
	if err != nil {
		return err
	}
	err = a.manager.SwitchTransport(t, func() {
		a.local = t
	})
	if err != nil {
		t.Close()
		return err
	}
	a.profiles.Invalidate()
	a.poller.Regrace(a.timing.RestartGrace)
	a.changed()
	return nil
}

func (a *App) ProfileNames() ([]string, error) {
	return a.profiles.Names(a.Target())
}

// LoadProfile applies a user profile to the current target with updates
// paused.
func (a *App) LoadProfile(name string) error {
	t := a.Target()
	profiles, err := a.profiles.Get(t)
	if err != nil {
		return err
	}
	p, ok := profiles[name]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownProfile, name)
	}
	var applyErr error
	a.gestures.Batch(func() {
		applyErr = ApplyProfile(t, p)
	})
	if applyErr != nil {
		return applyErr
	}
	log.Infof("Profile %v applied", name)
	return nil
}

// SelectProfile applies the named profile as picked from a menu. The reset
// profile is only applied after the user confirms. done, if set, receives
// the result of applying and is not called when the user declines.
func (a *App) SelectProfile(name string, done func(error)) {
	apply := func() {
		err := a.LoadProfile(name)
		if done != nil {
			done(err)
		}
	}
	if name != config.ResetProfile || a.prompter == nil {
		apply()
		return
	}
	a.prompter.Confirm("Reset to defaults", "Reset every strip and bus to its default settings?", func(ok bool) {
		if ok {
			apply()
		}
	})
}

func (a *App) ResetProfile() error {
	return a.LoadProfile(config.ResetProfile)
}

func (a *App) Command(c remote.Command) error {
	t := a.Target()
	if t == nil {
		return ErrNoTarget
	}
	return t.Command(c)
}

// Close stops polling, tears the window down and logs out of every target.
func (a *App) Close() {
	a.closed = true
	a.poller.Stop()
	a.manager.TeardownAll()
	if a.network != nil {
		if err := a.network.Close(); err != nil {
			log.Warnf("error closing vban connection: %v", err)
		}
		a.network = nil
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			log.Warnf("error closing local engine: %v", err)
		}
		a.local = nil
	}
	a.state.Set(state.NetworkConnected, false)
}

// DialVBAN logs in to the engine behind a vban.toml connection.
func DialVBAN(ctx context.Context, c config.Connection) (remote.Target, error) {
	client, err := vban.Dial(ctx, vban.Options{
		Kind:       c.Kind,
		IP:         c.IP,
		Port:       c.Port,
		StreamName: c.StreamName,
		BPS:        c.BPS,
		Channel:    c.Channel,
		Timeout:    c.Timeout.Duration,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
