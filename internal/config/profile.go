package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hrko/vmcompact/internal/kind"
)

// ResetProfile is the name of the built-in profile that returns every
// channel to a neutral state.
const ResetProfile = "reset"

// ChannelSettings is one [strip-N] or [bus-N] table of a profile. Unset
// fields are left alone when the profile is applied.
type ChannelSettings struct {
	Mute *bool    `toml:"mute" json:"mute,omitempty"`
	Gain *float64 `toml:"gain" json:"gain,omitempty"`
	Mono *bool    `toml:"mono" json:"mono,omitempty"`
	EQ   *bool    `toml:"eq" json:"eq,omitempty"`

	A1 *bool `toml:"A1" json:"A1,omitempty"`
	A2 *bool `toml:"A2" json:"A2,omitempty"`
	A3 *bool `toml:"A3" json:"A3,omitempty"`
	A4 *bool `toml:"A4" json:"A4,omitempty"`
	A5 *bool `toml:"A5" json:"A5,omitempty"`
	B1 *bool `toml:"B1" json:"B1,omitempty"`
	B2 *bool `toml:"B2" json:"B2,omitempty"`
	B3 *bool `toml:"B3" json:"B3,omitempty"`
}

// Route returns the routing setting for a bus name such as "A1".
func (s ChannelSettings) Route(bus string) *bool {
	switch bus {
	case "A1":
		return s.A1
	case "A2":
		return s.A2
	case "A3":
		return s.A3
	case "A4":
		return s.A4
	case "A5":
		return s.A5
	case "B1":
		return s.B1
	case "B2":
		return s.B2
	case "B3":
		return s.B3
	}
	return nil
}

type Profile struct {
	Name   string
	Strips map[int]ChannelSettings
	Buses  map[int]ChannelSettings
}

func ptr[T any](v T) *T {
	return &v
}

// Reset builds the built-in reset profile for k: everything unmuted at
// 0 dB, physical strips routed to B1 only, virtual strips to A1 only, buses
// in stereo with EQ off.
func Reset(k kind.Kind) *Profile {
	p := &Profile{
		Name:   ResetProfile,
		Strips: map[int]ChannelSettings{},
		Buses:  map[int]ChannelSettings{},
	}
	for i := 0; i < k.NumStrip(); i++ {
		s := ChannelSettings{Mute: ptr(false), Gain: ptr(0.0)}
		want := "A1"
		if k.IsPhysicalStrip(i) {
			want = "B1"
		}
		for _, name := range k.BusNames() {
			s.setRoute(name, name == want)
		}
		p.Strips[i] = s
	}
	for i := 0; i < k.NumBus(); i++ {
		p.Buses[i] = ChannelSettings{Mute: ptr(false), Gain: ptr(0.0), Mono: ptr(false), EQ: ptr(false)}
	}
	return p
}

func (s *ChannelSettings) setRoute(bus string, on bool) {
	switch bus {
	case "A1":
		s.A1 = ptr(on)
	case "A2":
		s.A2 = ptr(on)
	case "A3":
		s.A3 = ptr(on)
	case "A4":
		s.A4 = ptr(on)
	case "A5":
		s.A5 = ptr(on)
	case "B1":
		s.B1 = ptr(on)
	case "B2":
		s.B2 = ptr(on)
	case "B3":
		s.B3 = ptr(on)
	}
}

// LoadProfiles reads every dir/<kind>/*.toml profile and adds the reset
// profile. A broken file is logged and skipped.
func LoadProfiles(dir string, k kind.Kind) (map[string]*Profile, error) {
	profiles := map[string]*Profile{ResetProfile: Reset(k)}

	paths, err := filepath.Glob(filepath.Join(dir, k.Name, "*.toml"))
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		p, err := loadProfile(path, k)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			log.Warnf("Invalid TOML config: %v: %v", path, err)
			continue
		}
		p.Name = name
		profiles[name] = p
		log.Infof("Loaded profile %v/%v", k.Name, name)
	}
	return profiles, nil
}

func loadProfile(path string, k kind.Kind) (*Profile, error) {
	raw := map[string]ChannelSettings{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, err
	}
	p := &Profile{
		Strips: map[int]ChannelSettings{},
		Buses:  map[int]ChannelSettings{},
	}
	for table, s := range raw {
		if n, ok := tableNumber(table, "strip-"); ok {
			if n < 0 || n >= k.NumStrip() {
				return nil, fmt.Errorf("stripIndex %v is out of range", n)
			}
			p.Strips[n] = s
			continue
		}
		if n, ok := tableNumber(table, "bus-"); ok {
			if n < 0 || n >= k.NumBus() {
				return nil, fmt.Errorf("busIndex %v is out of range", n)
			}
			p.Buses[n] = s
			continue
		}
		return nil, fmt.Errorf("unknown table [%v]", table)
	}
	return p, nil
}

// ProfileNames returns the names of profiles sorted, with the reset
// profile last.
func ProfileNames(profiles map[string]*Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		if name != ResetProfile {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := profiles[ResetProfile]; ok {
		names = append(names, ResetProfile)
	}
	return names
}
