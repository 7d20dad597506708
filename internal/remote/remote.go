// Package remote defines the contract the compact core needs from a mixer
// engine, whichever transport reaches it.
package remote

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hrko/vmcompact/internal/kind"
)

var (
	ErrOutOfRange  = errors.New("index out of range")
	ErrUnsupported = errors.New("unsupported")
	ErrTimeout     = errors.New("timeout")
	ErrClosed      = errors.New("target closed")
	ErrEngineGone  = errors.New("engine stopped answering")
)

type Transport int

const (
	Local Transport = iota
	Network
)

func (t Transport) String() string {
	switch t {
	case Local:
		return "local"
	case Network:
		return "network"
	}
	return fmt.Sprintf("Transport(%d)", int(t))
}

type LevelKind int

const (
	StripPreFader LevelKind = iota
	BusOutput
)

type Command int

const (
	Show Command = iota
	Hide
	Restart
	Shutdown
	Lock
	Unlock
)

var commandScripts = map[Command]string{
	Show:     "Command.Show=1;",
	Hide:     "Command.Show=0;",
	Restart:  "Command.Restart=1;",
	Shutdown: "Command.Shutdown=1;",
	Lock:     "Command.Lock=1;",
	Unlock:   "Command.Lock=0;",
}

var commandNames = map[Command]string{
	Show:     "show",
	Hide:     "hide",
	Restart:  "restart",
	Shutdown: "shutdown",
	Lock:     "lock",
	Unlock:   "unlock",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Script returns the engine script that performs c.
func (c Command) Script() (string, error) {
	s, ok := commandScripts[c]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, c)
	}
	return s, nil
}

type Strip interface {
	Label() string
	Gain() float64
	SetGain(gain float64)
	Mute() bool
	SetMute(mute bool)
	// Route reports whether the strip feeds bus, numbered as in
	// kind.Kind.BusNames.
	Route(bus int) bool
	SetRoute(bus int, on bool)
	GainLayer(layer int) float64
	SetGainLayer(layer int, gain float64)
}

type Bus interface {
	Label() string
	Gain() float64
	SetGain(gain float64)
	Mute() bool
	SetMute(mute bool)
	Mono() bool
	SetMono(mono bool)
	EQ() bool
	SetEQ(on bool)
}

// Target is a logged-in session with a mixer engine.
//
// ParamsDirty and LevelsDirty must not block: they read and clear a latch
// that the transport maintains in the background.
type Target interface {
	ID() uuid.UUID
	Kind() kind.Kind
	Transport() Transport

	ParamsDirty() bool
	LevelsDirty() bool
	// Levels returns the flat level buffer for k, in dB. Its length follows
	// the engine's channel topology and may change across reconnects.
	Levels(k LevelKind) []float64

	Strip(i int) (Strip, error)
	Bus(i int) (Bus, error)

	// Ping fails once the engine can no longer be reached.
	Ping() error
	SendText(script string) error
	Command(c Command) error
	Close() error
}

func CheckStrip(k kind.Kind, i int) error {
	if i < 0 || i >= k.NumStrip() {
		return fmt.Errorf("%w: stripIndex %v", ErrOutOfRange, i)
	}
	return nil
}

func CheckBus(k kind.Kind, i int) error {
	if i < 0 || i >= k.NumBus() {
		return fmt.Errorf("%w: busIndex %v", ErrOutOfRange, i)
	}
	return nil
}
