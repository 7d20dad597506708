// Package state holds the small set of runtime flags shared between the poll
// loop, user gesture handlers and the frame lifecycle manager.
package state

import (
	"fmt"
	"sync"
	"time"
)

type Flag int

const (
	// Dragging is true while the main window is being moved.
	Dragging Flag = iota
	// SliderActive is true while a gain slider is held.
	SliderActive
	// UpdatesEnabled gates delivery of params-dirty notifications.
	UpdatesEnabled
	// NetworkConnected is true when the network transport is the active target.
	NetworkConnected

	numFlags
)

func (f Flag) String() string {
	switch f {
	case Dragging:
		return "dragging"
	case SliderActive:
		return "sliderActive"
	case UpdatesEnabled:
		return "updatesEnabled"
	case NetworkConnected:
		return "networkConnected"
	default:
		return fmt.Sprintf("Flag(%d)", int(f))
	}
}

// State is constructed once at startup and passed by reference to every
// component that reads or writes it. All writes are single scalar stores.
type State struct {
	mu    sync.RWMutex
	flags [numFlags]bool

	paramPollInterval time.Duration
	levelPollInterval time.Duration
}

func New(paramPollInterval, levelPollInterval time.Duration) *State {
	return &State{
		paramPollInterval: paramPollInterval,
		levelPollInterval: levelPollInterval,
	}
}

func (s *State) Get(f Flag) bool {
	if f < 0 || f >= numFlags {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[f]
}

func (s *State) Set(f Flag, v bool) {
	if f < 0 || f >= numFlags {
		return
	}
	s.mu.Lock()
	s.flags[f] = v
	s.mu.Unlock()
}

func (s *State) ParamPollInterval() time.Duration {
	return s.paramPollInterval
}

func (s *State) LevelPollInterval() time.Duration {
	return s.levelPollInterval
}

// Snapshot returns the current value of every flag, keyed by name.
func (s *State) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := make(map[string]bool, numFlags)
	for f := Flag(0); f < numFlags; f++ {
		m[f.String()] = s.flags[f]
	}
	return m
}
