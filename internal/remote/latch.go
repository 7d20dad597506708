package remote

import "sync/atomic"

// eventLatch turns the engine's event stream into dirty flags that are
// cleared when read.
type eventLatch struct {
	pdirty atomic.Bool
	ldirty atomic.Bool
	gone   atomic.Bool
}

// run consumes events until done is closed or the publisher closes events.
// The publisher closes every registered channel once the engine stops
// answering, so a closed stream marks the engine as gone.
func (l *eventLatch) run(events <-chan string, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case e, ok := <-events:
			if !ok {
				log.Warn("engine event stream closed")
				l.gone.Store(true)
				return
			}
			switch e {
			case "pdirty", "mdirty":
				l.pdirty.Store(true)
			case "ldirty":
				l.ldirty.Store(true)
			}
		}
	}
}

func (l *eventLatch) params() bool { return l.pdirty.Swap(false) }
func (l *eventLatch) levels() bool { return l.ldirty.Swap(false) }

func (l *eventLatch) err() error {
	if l.gone.Load() {
		return ErrEngineGone
	}
	return nil
}
