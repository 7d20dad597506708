package compact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/hrko/vmcompact/internal/config"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/remote/remotetest"
	"github.com/hrko/vmcompact/internal/scheduler"
	"github.com/hrko/vmcompact/internal/state"
)

const quietProfile = `
[strip-0]
mute = true
gain = -20.0
A1 = true

[bus-1]
mono = true
`

type appFixture struct {
	app   *App
	cfg   *config.Config
	sched *scheduler.Scheduler
	views *fakeViews

	running bool
	locals  []*remotetest.Target
	dialed  []*remotetest.Target
	dialErr error
	// prepare runs on every dialed target before it is returned.
	prepare func(t *remotetest.Target)
	// gate, when set, holds every dial until it is closed.
	gate chan struct{}

	answer  bool
	prompts []string
	quits   int
	changes int
}

func (f *appFixture) Confirm(title, message string, answer func(ok bool)) {
	f.prompts = append(f.prompts, title+": "+message)
	answer(f.answer)
}

func newAppFixture(t *testing.T, running bool) *appFixture {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "potato"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "potato", "quiet.toml"), []byte(quietProfile), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Dir = dir
	cfg.VBAN = []config.Connection{{
		Name:       "connection-1",
		Kind:       "potato",
		IP:         "192.168.1.20",
		Port:       6980,
		StreamName: "Command1",
	}}

	f := &appFixture{
		cfg:     cfg,
		sched:   scheduler.New(scheduler.NewManualClock(epoch)),
		views:   &fakeViews{},
		running: running,
		answer:  true,
	}
	f.app = New(Options{
		Config:    cfg,
		Kind:      kind.Potato,
		Scheduler: f.sched,
		Views:     f.views,
		Prompter:  f,
		OpenLocal: func(k kind.Kind) (remote.Target, error) {
			tg := remotetest.New(k)
			f.locals = append(f.locals, tg)
			return tg, nil
		},
		DialVBAN: func(ctx context.Context, c config.Connection) (remote.Target, error) {
			if f.gate != nil {
				<-f.gate
			}
			if f.dialErr != nil {
				return nil, f.dialErr
			}
			tg := remotetest.NewNetwork(kind.Potato)
			if f.prepare != nil {
				f.prepare(tg)
			}
			f.dialed = append(f.dialed, tg)
			return tg, nil
		},
		EngineRunning: func(context.Context) bool { return f.running },
		Quit:          func() { f.quits++ },
	})
	f.app.OnChange(func() { f.changes++ })
	t.Cleanup(f.app.Close)
	return f
}

func (f *appFixture) start(t *testing.T) {
	t.Helper()
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestStartHoldsUpdatesDuringGrace(t *testing.T) {
	f := newAppFixture(t, false)
	f.start(t)

	assert.Equal(t, len(f.locals), 1)
	assert.Equal(t, f.app.Target().ID(), f.locals[0].ID())
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), false)
	assert.Equal(t, f.app.Poller().InGrace(), true)
	assert.NotEqual(t, f.app.Root().Len(), 0)

	f.sched.Advance(12 * time.Second)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), true)
}

func TestStartWithRunningEngine(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), true)
	assert.Equal(t, f.app.Poller().InGrace(), false)
	assert.Equal(t, f.app.Connection(), -1)
}

func TestStartAppliesStartupProfile(t *testing.T) {
	f := newAppFixture(t, true)
	f.cfg.Configs.Config = "quiet"
	f.start(t)

	s := f.locals[0].StripAt(0)
	assert.Equal(t, s.Mute(), true)
	assert.Equal(t, s.Gain(), -20.0)
	assert.Equal(t, s.Route(0), true)
	assert.Equal(t, f.locals[0].BusAt(1).Mono(), true)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), false)
	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), true)
}

func TestConnectAndDisconnect(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	ctx := context.Background()

	names, err := f.app.ProfileNames()
	assert.Equal(t, err, nil)
	assert.Equal(t, names, []string{"quiet", config.ResetProfile})
	local := f.locals[0]
	assert.Equal(t, f.app.Profiles().Cached(local), true)
	before := listenerSet(f.app.Root().Listeners())

	assert.Equal(t, f.app.CanConnect(), true)
	assert.Equal(t, f.app.Connect(ctx, 0), nil)
	assert.Equal(t, f.app.Connected(), true)
	assert.Equal(t, f.app.Connection(), 0)
	assert.Equal(t, f.app.Target().ID(), f.dialed[0].ID())
	assert.Equal(t, f.app.Target().Transport(), remote.Network)
	assert.Equal(t, f.app.Profiles().Cached(local), false)
	assert.Equal(t, f.changes, 1)
	for _, l := range f.app.Root().Listeners() {
		assert.Equal(t, before[l], false)
	}

	err = f.app.Connect(ctx, 0)
	assert.Equal(t, errors.Is(err, ErrAlreadyConnected), true)
	assert.Equal(t, f.app.CanConnect(), false)

	assert.Equal(t, f.app.Disconnect(), nil)
	assert.Equal(t, f.app.Connected(), false)
	assert.Equal(t, f.app.Connection(), -1)
	assert.Equal(t, f.dialed[0].Closed(), true)
	assert.Equal(t, local.Closed(), false)
	assert.Equal(t, f.app.Target().ID(), local.ID())
	assert.Equal(t, f.changes, 2)

	assert.Equal(t, f.app.CanConnect(), false)
	err = f.app.Connect(ctx, 0)
	assert.Equal(t, errors.Is(err, ErrCoolingDown), true)

	f.sched.Advance(15 * time.Second)
	assert.Equal(t, f.app.CanConnect(), true)
	assert.Equal(t, f.changes, 3)

	err = f.app.Disconnect()
	assert.Equal(t, errors.Is(err, ErrNotConnected), true)
}

// finishDial runs the scheduler until a background dial has been handed
// back.
func (f *appFixture) finishDial(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for f.app.dialing {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the dial to finish")
		}
		time.Sleep(time.Millisecond)
		f.sched.RunDue()
	}
}

func TestConnectAsync(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	f.gate = make(chan struct{})

	var results []error
	done := func(err error) { results = append(results, err) }
	assert.Equal(t, f.app.ConnectAsync(context.Background(), 0, done), nil)
	assert.Equal(t, f.app.CanConnect(), false)
	assert.Equal(t, f.app.Connected(), false)
	assert.Equal(t, f.app.Target().ID(), f.locals[0].ID())
	assert.Equal(t, f.changes, 1)

	err := f.app.ConnectAsync(context.Background(), 0, done)
	assert.Equal(t, errors.Is(err, ErrConnecting), true)
	err = f.app.Connect(context.Background(), 0)
	assert.Equal(t, errors.Is(err, ErrConnecting), true)

	close(f.gate)
	f.finishDial(t)
	assert.Equal(t, results, []error{nil})
	assert.Equal(t, f.app.Connected(), true)
	assert.Equal(t, f.app.Connection(), 0)
	assert.Equal(t, f.app.Target().ID(), f.dialed[0].ID())
	assert.Equal(t, f.changes, 2)
}

func TestConnectAsyncDialFailure(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	f.dialErr = errors.New("no response from 192.168.1.20")

	var results []error
	err := f.app.ConnectAsync(context.Background(), 0, func(err error) { results = append(results, err) })
	assert.Equal(t, err, nil)
	f.finishDial(t)
	assert.Equal(t, len(results), 1)
	assert.Equal(t, errors.Is(results[0], f.dialErr), true)
	assert.Equal(t, f.app.Connected(), false)
	assert.Equal(t, f.app.Target().ID(), f.locals[0].ID())
	assert.Equal(t, f.app.CanConnect(), true)
	assert.Equal(t, f.changes, 2)
}

func TestConnectAsyncAfterClose(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	f.gate = make(chan struct{})

	called := false
	err := f.app.ConnectAsync(context.Background(), 0, func(error) { called = true })
	assert.Equal(t, err, nil)
	f.app.Close()
	close(f.gate)
	f.finishDial(t)
	assert.Equal(t, called, false)
	assert.Equal(t, len(f.dialed), 1)
	assert.Equal(t, f.dialed[0].Closed(), true)
	assert.Equal(t, f.app.Connected(), false)
}

func TestConnectUnknownConnection(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	err := f.app.Connect(context.Background(), 1)
	assert.Equal(t, errors.Is(err, ErrUnknownConnection), true)
	err = f.app.Connect(context.Background(), -1)
	assert.Equal(t, errors.Is(err, ErrUnknownConnection), true)
}

func TestDialFailureKeepsLocal(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	before := listenerSet(f.app.Root().Listeners())

	f.dialErr = errors.New("no response from 192.168.1.20")
	err := f.app.Connect(context.Background(), 0)
	assert.Equal(t, errors.Is(err, f.dialErr), true)
	assert.Equal(t, f.app.Connected(), false)
	assert.Equal(t, f.app.Target().ID(), f.locals[0].ID())
	assert.Equal(t, listenerSet(f.app.Root().Listeners()), before)
	assert.Equal(t, f.changes, 0)
}

func TestBuildFailureClosesNetworkTarget(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	before := listenerSet(f.app.Root().Listeners())

	failed := errors.New("request timed out")
	f.prepare = func(tg *remotetest.Target) { tg.FailAccess(failed) }
	err := f.app.Connect(context.Background(), 0)
	assert.Equal(t, errors.Is(err, failed), true)
	assert.Equal(t, f.dialed[0].Closed(), true)
	assert.Equal(t, f.app.Connected(), false)
	assert.Equal(t, f.app.Connection(), -1)
	assert.Equal(t, listenerSet(f.app.Root().Listeners()), before)
}

func TestLocalLossRestartsEngine(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)

	f.locals[0].FailPing(errors.New("engine not responding"))
	f.sched.Advance(250 * time.Millisecond)

	assert.Equal(t, f.prompts, []string{"Connection lost: Restart Voicemeeter GUI?"})
	assert.Equal(t, len(f.locals), 2)
	assert.Equal(t, f.locals[0].Closed(), true)
	assert.Equal(t, f.app.Target().ID(), f.locals[1].ID())
	assert.Equal(t, f.app.Poller().Lost(), false)
	assert.Equal(t, f.app.Poller().InGrace(), true)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), false)
	assert.Equal(t, f.changes, 1)

	f.sched.Advance(7999 * time.Millisecond)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), false)
	f.sched.Advance(time.Millisecond)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), true)
	assert.Equal(t, f.quits, 0)
}

func TestLocalLossDeclinedQuits(t *testing.T) {
	f := newAppFixture(t, true)
	f.answer = false
	f.start(t)

	f.locals[0].FailPing(errors.New("engine not responding"))
	f.sched.Advance(250 * time.Millisecond)
	assert.Equal(t, len(f.prompts), 1)
	assert.Equal(t, f.quits, 1)
	assert.Equal(t, len(f.locals), 1)

	// no second prompt while the app shuts down
	f.sched.Advance(time.Second)
	assert.Equal(t, len(f.prompts), 1)
}

func TestNetworkLossFallsBackToLocal(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	assert.Equal(t, f.app.Connect(context.Background(), 0), nil)

	f.dialed[0].FailPing(errors.New("vban timeout"))
	f.sched.Advance(250 * time.Millisecond)

	assert.Equal(t, len(f.prompts), 0)
	assert.Equal(t, f.app.Connected(), false)
	assert.Equal(t, f.dialed[0].Closed(), true)
	assert.Equal(t, f.app.Target().ID(), f.locals[0].ID())
	assert.Equal(t, f.app.Poller().Lost(), false)
	assert.Equal(t, f.app.CanConnect(), false)
}

func TestLoadProfile(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	local := f.locals[0]
	local.StripAt(0).SetRoute(0, true)
	local.StripAt(6).SetMute(true)
	local.BusAt(2).SetEQ(true)

	assert.Equal(t, f.app.ResetProfile(), nil)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), false)
	// physical strips go to B1, virtual strips to A1
	assert.Equal(t, local.StripAt(0).Route(0), false)
	assert.Equal(t, local.StripAt(0).Route(5), true)
	assert.Equal(t, local.StripAt(6).Route(0), true)
	assert.Equal(t, local.StripAt(6).Route(5), false)
	assert.Equal(t, local.StripAt(6).Mute(), false)
	assert.Equal(t, local.BusAt(2).EQ(), false)

	err := f.app.LoadProfile("loud")
	assert.Equal(t, errors.Is(err, ErrUnknownProfile), true)

	f.sched.Advance(500 * time.Millisecond)
	assert.Equal(t, f.app.State().Get(state.UpdatesEnabled), true)
}

func TestSelectResetProfileAsksFirst(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	local := f.locals[0]
	local.StripAt(6).SetMute(true)

	var results []error
	done := func(err error) { results = append(results, err) }

	f.answer = false
	f.app.SelectProfile(config.ResetProfile, done)
	assert.Equal(t, f.prompts, []string{"Reset to defaults: Reset every strip and bus to its default settings?"})
	assert.Equal(t, len(results), 0)
	assert.Equal(t, local.StripAt(6).Mute(), true)

	f.answer = true
	f.app.SelectProfile(config.ResetProfile, done)
	assert.Equal(t, len(f.prompts), 2)
	assert.Equal(t, results, []error{nil})
	assert.Equal(t, local.StripAt(6).Mute(), false)

	f.app.SelectProfile("quiet", done)
	assert.Equal(t, len(f.prompts), 2)
	assert.Equal(t, results, []error{nil, nil})
	assert.Equal(t, local.StripAt(0).Mute(), true)

	f.app.SelectProfile("loud", done)
	assert.Equal(t, errors.Is(results[2], ErrUnknownProfile), true)
}

func TestCommandGoesToCurrentTarget(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	assert.Equal(t, f.app.Command(remote.Show), nil)
	assert.Equal(t, f.locals[0].Commands(), []remote.Command{remote.Show})

	assert.Equal(t, f.app.Connect(context.Background(), 0), nil)
	assert.Equal(t, f.app.Command(remote.Restart), nil)
	assert.Equal(t, f.dialed[0].Commands(), []remote.Command{remote.Restart})
}

func TestClose(t *testing.T) {
	f := newAppFixture(t, true)
	f.start(t)
	assert.Equal(t, f.app.Connect(context.Background(), 0), nil)

	f.app.Close()
	assert.Equal(t, f.locals[0].Closed(), true)
	assert.Equal(t, f.dialed[0].Closed(), true)
	assert.Equal(t, f.app.Root().Len(), 0)
	assert.Equal(t, f.sched.Pending(), 0)
	assert.Equal(t, len(f.views.live()), 0)
}
