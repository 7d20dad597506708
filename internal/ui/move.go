package ui

import (
	"image"

	"fyne.io/fyne/v2"
)

// moveWatcher samples the window position and reports every change. fyne
// has no move event, so a drag of the title bar is only visible this way.
type moveWatcher struct {
	position func() (image.Point, bool)
	moved    func()
	last     image.Point
	known    bool
}

func newMoveWatcher(win fyne.Window, moved func()) *moveWatcher {
	return &moveWatcher{
		position: func() (image.Point, bool) { return windowPosition(win) },
		moved:    moved,
	}
}

// poll must run on the fyne main goroutine.
func (w *moveWatcher) poll() {
	pos, ok := w.position()
	if !ok {
		return
	}
	if w.known && pos != w.last {
		w.moved()
	}
	w.last, w.known = pos, true
}
