// Package kind describes the channel topology of each Voicemeeter edition.
package kind

import (
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown kind")

const (
	physStripLevels = 2
	virtStripLevels = 8
	busLevels       = 8
)

type Kind struct {
	Name    string
	PhysIn  int
	VirtIn  int
	PhysOut int
	VirtOut int
}

var (
	Basic  = Kind{Name: "basic", PhysIn: 2, VirtIn: 1, PhysOut: 1, VirtOut: 1}
	Banana = Kind{Name: "banana", PhysIn: 3, VirtIn: 2, PhysOut: 3, VirtOut: 2}
	Potato = Kind{Name: "potato", PhysIn: 5, VirtIn: 3, PhysOut: 5, VirtOut: 3}
)

var all = []Kind{Basic, Banana, Potato}

func All() []Kind {
	return append([]Kind(nil), all...)
}

func Get(name string) (Kind, error) {
	for _, k := range all {
		if k.Name == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("%w: '%v'", ErrUnknownKind, name)
}

// FromType maps the numeric edition reported by the engine (1 basic, 2
// banana, 3 potato) onto a Kind.
func FromType(t int) (Kind, error) {
	if t < 1 || t > len(all) {
		return Kind{}, fmt.Errorf("%w: type %v", ErrUnknownKind, t)
	}
	return all[t-1], nil
}

func (k Kind) String() string {
	return k.Name
}

func (k Kind) NumStrip() int {
	return k.PhysIn + k.VirtIn
}

func (k Kind) NumBus() int {
	return k.PhysOut + k.VirtOut
}

func (k Kind) IsPhysicalStrip(i int) bool {
	return i >= 0 && i < k.PhysIn
}

// BusNames returns the routing names of the kind's buses, physical first.
func (k Kind) BusNames() []string {
	names := make([]string, 0, k.NumBus())
	for i := 0; i < k.PhysOut; i++ {
		names = append(names, fmt.Sprintf("A%d", i+1))
	}
	for i := 0; i < k.VirtOut; i++ {
		names = append(names, fmt.Sprintf("B%d", i+1))
	}
	return names
}

// HasSubmix reports whether strips carry per-bus gain layers.
func (k Kind) HasSubmix() bool {
	return k.Name == Potato.Name
}

func (k Kind) HasBanner() bool {
	return k.HasSubmix()
}

// StripLevelOffset is the index of strip i's first channel in the strip level
// buffer.
func (k Kind) StripLevelOffset(i int) int {
	if i < k.PhysIn {
		return i * physStripLevels
	}
	return k.PhysIn*physStripLevels + (i-k.PhysIn)*virtStripLevels
}

func (k Kind) StripLevelWidth(i int) int {
	if i < k.PhysIn {
		return physStripLevels
	}
	return virtStripLevels
}

func (k Kind) BusLevelOffset(i int) int {
	return i * busLevels
}

func (k Kind) BusLevelWidth(int) int {
	return busLevels
}

func (k Kind) NumStripLevels() int {
	return k.PhysIn*physStripLevels + k.VirtIn*virtStripLevels
}

func (k Kind) NumBusLevels() int {
	return k.NumBus() * busLevels
}
