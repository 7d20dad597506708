// Package ui is the fyne front-end of the compact window. It implements the
// views of package compact, the menus and the restart prompt, and drives the
// scheduler on the fyne main goroutine.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/hrko/vmcompact/internal/compact"
	"github.com/hrko/vmcompact/internal/config"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/scheduler"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ui")

const (
	appID = "io.github.hrko.vmcompact"
	// movePoll is how often the window position is sampled to detect drags.
	movePoll = 25 * time.Millisecond
)

type UI struct {
	cfg   *config.Config
	kind  kind.Kind
	fyne  fyne.App
	win   fyne.Window
	sched *scheduler.Scheduler
	views *views
	core  *compact.App
	menus *menus
	moves *moveWatcher
	// ctx is cancelled when the window closes.
	ctx   context.Context
}

func New(cfg *config.Config, k kind.Kind) (*UI, error) {
	v, err := newViews(cfg)
	if err != nil {
		return nil, err
	}
	u := &UI{
		cfg:   cfg,
		kind:  k,
		fyne:  app.NewWithID(appID),
		views: v,
		ctx:   context.Background(),
	}
	u.win = u.fyne.NewWindow(fmt.Sprintf("Voicemeeter %v Compact", titleCase(k.Name)))
	u.sched = scheduler.New(nil, scheduler.WithDispatch(fyne.DoAndWait))
	u.core = compact.New(compact.Options{
		Config:    cfg,
		Kind:      k,
		Scheduler: u.sched,
		Views:     v,
		Prompter:  u,
		Quit:      u.quit,
	})
	u.menus = newMenus(u)
	u.core.OnChange(u.menus.refresh)
	u.moves = newMoveWatcher(u.win, u.core.Gestures().WindowMoved)
	u.win.SetContent(v.content())
	u.win.SetMainMenu(u.menus.main)
	return u, nil
}

// Run builds the window, starts polling and blocks until the window is
// closed.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	u.ctx = ctx

	if err := u.core.Start(ctx); err != nil {
		return err
	}
	u.menus.refresh()
	u.sched.Every("window-moves", movePoll, u.moves.poll)

	done := make(chan error, 1)
	go func() {
		done <- u.sched.Run(ctx)
	}()
	u.win.SetOnClosed(func() {
		cancel()
		u.core.Close()
	})
	u.win.SetFixedSize(true)
	u.win.ShowAndRun()

	cancel()
	// a callback may still be waiting for the main loop that just ended
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-time.After(time.Second):
		log.Warn("scheduler did not stop in time")
	}
	return nil
}

// Confirm shows a yes/no dialog. The answer is delivered on the UI
// goroutine.
func (u *UI) Confirm(title, message string, answer func(ok bool)) {
	dialog.ShowConfirm(title, message, answer, u.win)
}

func (u *UI) showError(err error) {
	log.Error(err)
	dialog.ShowError(err, u.win)
}

// reportError shows err when it is not nil.
func (u *UI) reportError(err error) {
	if err != nil {
		u.showError(err)
	}
}

func (u *UI) quit() {
	u.win.Close()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
