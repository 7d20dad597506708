// Package remotetest provides an in-memory remote.Target for tests.
package remotetest

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/hrko/vmcompact/internal/remote"
)

type Target struct {
	id        uuid.UUID
	kind      kind.Kind
	transport remote.Transport

	mu          sync.Mutex
	strips      []*Strip
	buses       []*Bus
	stripLevels []float64
	busLevels   []float64
	pdirty      bool
	ldirty      bool
	pingErr    error
	accessErr   error
	closed      bool
	commands    []remote.Command
	scripts     []string
}

// New returns a fake engine of kind k with every strip and bus labelled
// after its index and all levels at -200 dB.
func New(k kind.Kind) *Target {
	t := &Target{
		id:          uuid.New(),
		kind:        k,
		transport:   remote.Local,
		stripLevels: floor(k.NumStripLevels()),
		busLevels:   floor(k.NumBusLevels()),
	}
	for i := 0; i < k.NumStrip(); i++ {
		t.strips = append(t.strips, &Strip{
			label:  fmt.Sprintf("Strip %d", i),
			routes: make([]bool, k.NumBus()),
		})
	}
	for i := 0; i < k.NumBus(); i++ {
		t.buses = append(t.buses, &Bus{label: fmt.Sprintf("Bus %d", i)})
	}
	return t
}

// NewNetwork is New for a target reached over the network.
func NewNetwork(k kind.Kind) *Target {
	t := New(k)
	t.transport = remote.Network
	return t
}

func floor(n int) []float64 {
	levels := make([]float64, n)
	for i := range levels {
		levels[i] = -200
	}
	return levels
}

func (t *Target) ID() uuid.UUID { return t.id }
func (t *Target) Kind() kind.Kind { return t.kind }
func (t *Target) Transport() remote.Transport { return t.transport }

func (t *Target) ParamsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.pdirty
	t.pdirty = false
	return d
}

func (t *Target) LevelsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.ldirty
	t.ldirty = false
	return d
}

func (t *Target) MarkParamsDirty() {
	t.mu.Lock()
	t.pdirty = true
	t.mu.Unlock()
}

func (t *Target) MarkLevelsDirty() {
	t.mu.Lock()
	t.ldirty = true
	t.mu.Unlock()
}

func (t *Target) Levels(k remote.LevelKind) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch k {
	case remote.StripPreFader:
		return append([]float64(nil), t.stripLevels...)
	case remote.BusOutput:
		return append([]float64(nil), t.busLevels...)
	}
	return nil
}

// SetLevels replaces the level buffer of k. The new buffer may have any
// length.
func (t *Target) SetLevels(k remote.LevelKind, levels []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch k {
	case remote.StripPreFader:
		t.stripLevels = append([]float64(nil), levels...)
	case remote.BusOutput:
		t.busLevels = append([]float64(nil), levels...)
	}
}

func (t *Target) Strip(i int) (remote.Strip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.accessErr != nil {
		return nil, t.accessErr
	}
	if err := remote.CheckStrip(t.kind, i); err != nil {
		return nil, err
	}
	return t.strips[i], nil
}

func (t *Target) Bus(i int) (remote.Bus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.accessErr != nil {
		return nil, t.accessErr
	}
	if err := remote.CheckBus(t.kind, i); err != nil {
		return nil, err
	}
	return t.buses[i], nil
}

// StripAt gives tests direct access to strip i.
func (t *Target) StripAt(i int) *Strip {
	return t.strips[i]
}

func (t *Target) BusAt(i int) *Bus {
	return t.buses[i]
}

// FailAccess makes every Strip and Bus lookup return err until called again
// with nil.
func (t *Target) FailAccess(err error) {
	t.mu.Lock()
	t.accessErr = err
	t.mu.Unlock()
}

// FailPing makes Ping return err until called again with nil.
func (t *Target) FailPing(err error) {
	t.mu.Lock()
	t.pingErr = err
	t.mu.Unlock()
}

func (t *Target) Ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return remote.ErrClosed
	}
	return t.pingErr
}

func (t *Target) SendText(script string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts = append(t.scripts, script)
	return nil
}

func (t *Target) Scripts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.scripts...)
}

func (t *Target) Command(c remote.Command) error {
	if _, err := c.Script(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands = append(t.commands, c)
	return nil
}

func (t *Target) Commands() []remote.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]remote.Command(nil), t.commands...)
}

func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Target) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type Strip struct {
	mu     sync.Mutex
	label  string
	gain   float64
	mute   bool
	routes []bool
	layers [8]float64
}

func (s *Strip) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

func (s *Strip) SetLabel(label string) {
	s.mu.Lock()
	s.label = label
	s.mu.Unlock()
}

func (s *Strip) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

func (s *Strip) SetGain(gain float64) {
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()
}

func (s *Strip) Mute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mute
}

func (s *Strip) SetMute(mute bool) {
	s.mu.Lock()
	s.mute = mute
	s.mu.Unlock()
}

func (s *Strip) Route(bus int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bus < 0 || bus >= len(s.routes) {
		return false
	}
	return s.routes[bus]
}

func (s *Strip) SetRoute(bus int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bus >= 0 && bus < len(s.routes) {
		s.routes[bus] = on
	}
}

func (s *Strip) GainLayer(layer int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer < 0 || layer >= len(s.layers) {
		return 0
	}
	return s.layers[layer]
}

func (s *Strip) SetGainLayer(layer int, gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer >= 0 && layer < len(s.layers) {
		s.layers[layer] = gain
	}
}

type Bus struct {
	mu    sync.Mutex
	label string
	gain  float64
	mute  bool
	mono  bool
	eq    bool
}

func (b *Bus) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

func (b *Bus) SetLabel(label string) {
	b.mu.Lock()
	b.label = label
	b.mu.Unlock()
}

func (b *Bus) Gain() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gain
}

func (b *Bus) SetGain(gain float64) {
	b.mu.Lock()
	b.gain = gain
	b.mu.Unlock()
}

func (b *Bus) Mute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mute
}

func (b *Bus) SetMute(mute bool) {
	b.mu.Lock()
	b.mute = mute
	b.mu.Unlock()
}

func (b *Bus) Mono() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mono
}

func (b *Bus) SetMono(mono bool) {
	b.mu.Lock()
	b.mono = mono
	b.mu.Unlock()
}

func (b *Bus) EQ() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eq
}

func (b *Bus) SetEQ(on bool) {
	b.mu.Lock()
	b.eq = on
	b.mu.Unlock()
}
