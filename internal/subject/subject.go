// Package subject implements the observer registry that fans change
// notifications out to on-screen listeners.
package subject

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "subject")

type Topic int

const (
	ParamsDirty Topic = iota + 1
	LevelsDirty
	LabelsDirty
	SubmixChanged
	// DragEnded follows the last move of a window drag.
	DragEnded
)

func (t Topic) String() string {
	switch t {
	case ParamsDirty:
		return "pdirty"
	case LevelsDirty:
		return "ldirty"
	case LabelsDirty:
		return "labels"
	case SubmixChanged:
		return "submix"
	case DragEnded:
		return "drag-ended"
	default:
		return fmt.Sprintf("Topic(%d)", int(t))
	}
}

// Listener receives topics synchronously on the UI goroutine. Implementations
// must ignore topics they do not care about. Listeners are compared by
// identity, so register pointers.
type Listener interface {
	OnUpdate(topic Topic)
}

// Subject is an ordered set of listeners.
type Subject struct {
	name string

	mu        sync.Mutex
	listeners []Listener
	index     map[Listener]struct{}
}

func New(name string) *Subject {
	return &Subject{
		name:  name,
		index: make(map[Listener]struct{}),
	}
}

func (s *Subject) Name() string {
	return s.name
}

// Add registers l. Adding an already registered listener is a no-op.
func (s *Subject) Add(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[l]; ok {
		return
	}
	s.index[l] = struct{}{}
	s.listeners = append(s.listeners, l)
}

// Remove unregisters l. Removing an absent listener is a no-op.
func (s *Subject) Remove(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[l]; !ok {
		return
	}
	delete(s.index, l)
	for i, o := range s.listeners {
		if o == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			break
		}
	}
}

// Clear drops every listener.
func (s *Subject) Clear() {
	s.mu.Lock()
	s.listeners = nil
	s.index = make(map[Listener]struct{})
	s.mu.Unlock()
}

func (s *Subject) Has(l Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[l]
	return ok
}

func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Listeners returns a copy of the registered listeners in registration order.
func (s *Subject) Listeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// Notify calls OnUpdate once on every listener of a snapshot taken at
// entry. Adds and removes made during the fan-out take effect from the next
// Notify. A panicking listener is logged and the fan-out continues.
func (s *Subject) Notify(topic Topic) {
	for _, l := range s.Listeners() {
		s.call(l, topic)
	}
}

func (s *Subject) call(l Listener, topic Topic) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"subject":  s.name,
				"topic":    topic,
				"listener": fmt.Sprintf("%T", l),
			}).Errorf("listener panicked: %v\n%s", r, debug.Stack())
		}
	}()
	l.OnUpdate(topic)
}
