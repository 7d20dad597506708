//go:build windows

package remote

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/onyx-and-iris/voicemeeter/v2"
)

type localTarget struct {
	id   uuid.UUID
	kind kind.Kind
	vm   *voicemeeter.Remote

	events chan string
	done   chan struct{}
	wg     sync.WaitGroup

	latch  eventLatch
	closed atomic.Bool
}

// pingParam is read by Ping. Reading a parameter does not touch the dirty
// flags the event publisher polls.
const pingParam = "Strip[0].Mute"

// OpenLocal logs in to the engine through the Voicemeeter remote DLL.
func OpenLocal(k kind.Kind) (Target, error) {
	vm, err := voicemeeter.NewRemote(k.Name, 0)
	if err != nil {
		return nil, fmt.Errorf("error creating remote: %w", err)
	}
	log.Printf("Login to voicemeeter %v", k)
	if err := vm.Login(); err != nil {
		return nil, fmt.Errorf("error logging in: %w", err)
	}
	vm.EventAdd("ldirty")

	t := &localTarget{
		id:     uuid.New(),
		kind:   k,
		vm:     vm,
		events: make(chan string, 16),
		done:   make(chan struct{}),
	}
	vm.Register(t.events)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.latch.run(t.events, t.done)
	}()
	return t, nil
}

func (t *localTarget) ID() uuid.UUID { return t.id }
func (t *localTarget) Kind() kind.Kind { return t.kind }
func (t *localTarget) Transport() Transport { return Local }

func (t *localTarget) ParamsDirty() bool { return t.latch.params() }
func (t *localTarget) LevelsDirty() bool { return t.latch.levels() }

func (t *localTarget) Levels(k LevelKind) []float64 {
	switch k {
	case StripPreFader:
		levels := make([]float64, 0, t.kind.NumStripLevels())
		for i := range t.vm.Strip {
			levels = append(levels, t.vm.Strip[i].Levels().PreFader()...)
		}
		return levels
	case BusOutput:
		levels := make([]float64, 0, t.kind.NumBusLevels())
		for i := range t.vm.Bus {
			levels = append(levels, t.vm.Bus[i].Levels().All()...)
		}
		return levels
	}
	return nil
}

func (t *localTarget) Strip(i int) (Strip, error) {
	if i < 0 || i >= len(t.vm.Strip) {
		return nil, fmt.Errorf("%w: stripIndex %v", ErrOutOfRange, i)
	}
	return &localStrip{t: t, i: i}, nil
}

func (t *localTarget) Bus(i int) (Bus, error) {
	if i < 0 || i >= len(t.vm.Bus) {
		return nil, fmt.Errorf("%w: busIndex %v", ErrOutOfRange, i)
	}
	return &localBus{t: t, i: i}, nil
}

// Ping fails once the event stream has closed or a parameter read through
// the DLL errors.
func (t *localTarget) Ping() error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := t.latch.err(); err != nil {
		return err
	}
	if _, err := t.vm.GetFloat(pingParam); err != nil {
		return fmt.Errorf("error reading from engine: %w", err)
	}
	return nil
}

func (t *localTarget) SendText(script string) error {
	return t.vm.SendText(script)
}

func (t *localTarget) Command(c Command) error {
	switch c {
	case Show:
		t.vm.Command.Show()
	case Hide:
		t.vm.Command.Hide()
	case Restart:
		t.vm.Command.Restart()
	case Shutdown:
		t.vm.Command.Shutdown()
	case Lock:
		t.vm.Command.Lock(true)
	case Unlock:
		t.vm.Command.Lock(false)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, c)
	}
	return nil
}

func (t *localTarget) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	log.Println("Logout from voicemeeter")
	err := t.vm.Logout()
	close(t.done)
	t.wg.Wait()
	return err
}

type localStrip struct {
	t *localTarget
	i int
}

func (s *localStrip) Label() string { return s.t.vm.Strip[s.i].Label() }
func (s *localStrip) Gain() float64 { return s.t.vm.Strip[s.i].Gain() }
func (s *localStrip) SetGain(gain float64) { s.t.vm.Strip[s.i].SetGain(gain) }
func (s *localStrip) Mute() bool { return s.t.vm.Strip[s.i].Mute() }
func (s *localStrip) SetMute(mute bool) { s.t.vm.Strip[s.i].SetMute(mute) }

func (s *localStrip) Route(bus int) bool {
	strip := s.t.vm.Strip[s.i]
	switch s.busName(bus) {
	case "A1":
		return strip.A1()
	case "A2":
		return strip.A2()
	case "A3":
		return strip.A3()
	case "A4":
		return strip.A4()
	case "A5":
		return strip.A5()
	case "B1":
		return strip.B1()
	case "B2":
		return strip.B2()
	case "B3":
		return strip.B3()
	}
	return false
}

func (s *localStrip) SetRoute(bus int, on bool) {
	strip := s.t.vm.Strip[s.i]
	switch s.busName(bus) {
	case "A1":
		strip.SetA1(on)
	case "A2":
		strip.SetA2(on)
	case "A3":
		strip.SetA3(on)
	case "A4":
		strip.SetA4(on)
	case "A5":
		strip.SetA5(on)
	case "B1":
		strip.SetB1(on)
	case "B2":
		strip.SetB2(on)
	case "B3":
		strip.SetB3(on)
	default:
		log.Warnf("busIndex %v is out of range", bus)
	}
}

func (s *localStrip) busName(bus int) string {
	names := s.t.kind.BusNames()
	if bus < 0 || bus >= len(names) {
		return ""
	}
	return names[bus]
}

func (s *localStrip) GainLayer(layer int) float64 {
	layers := s.t.vm.Strip[s.i].GainLayer()
	if layer < 0 || layer >= len(layers) {
		return 0
	}
	return layers[layer].Get()
}

func (s *localStrip) SetGainLayer(layer int, gain float64) {
	layers := s.t.vm.Strip[s.i].GainLayer()
	if layer < 0 || layer >= len(layers) {
		log.Warnf("gain layer %v is out of range", layer)
		return
	}
	layers[layer].Set(gain)
}

type localBus struct {
	t *localTarget
	i int
}

func (b *localBus) Label() string { return b.t.vm.Bus[b.i].Label() }
func (b *localBus) Gain() float64 { return b.t.vm.Bus[b.i].Gain() }
func (b *localBus) SetGain(gain float64) { b.t.vm.Bus[b.i].SetGain(gain) }
func (b *localBus) Mute() bool { return b.t.vm.Bus[b.i].Mute() }
func (b *localBus) SetMute(mute bool) { b.t.vm.Bus[b.i].SetMute(mute) }
func (b *localBus) Mono() bool { return b.t.vm.Bus[b.i].Mono() }
func (b *localBus) SetMono(mono bool) { b.t.vm.Bus[b.i].SetMono(mono) }
func (b *localBus) EQ() bool { return b.t.vm.Bus[b.i].Eq().On() }
func (b *localBus) SetEQ(on bool) { b.t.vm.Bus[b.i].Eq().SetOn(on) }
