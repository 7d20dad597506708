package compact

import (
	"fmt"
	"maps"
	"slices"

	"github.com/fufuok/cmap"
	"github.com/hrko/vmcompact/internal/config"
	"github.com/hrko/vmcompact/internal/remote"
)

// ProfileCache holds the user profiles loaded for each target session. A
// rebuilt target has a new ID, so stale entries are never hit; Invalidate
// drops them.
type ProfileCache struct {
	dir   string
	cache *cmap.MapOf[string, map[string]*config.Profile] // key: target ID
}

func NewProfileCache(dir string) *ProfileCache {
	return &ProfileCache{
		dir:   dir,
		cache: cmap.NewOf[string, map[string]*config.Profile](),
	}
}

func (c *ProfileCache) Get(t remote.Target) (map[string]*config.Profile, error) {
	if t == nil {
		return nil, ErrNoTarget
	}
	key := t.ID().String()
	if profiles, ok := c.cache.Get(key); ok {
		return profiles, nil
	}
	profiles, err := config.LoadProfiles(c.dir, t.Kind())
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, profiles)
	return profiles, nil
}

func (c *ProfileCache) Names(t remote.Target) ([]string, error) {
	profiles, err := c.Get(t)
	if err != nil {
		return nil, err
	}
	return config.ProfileNames(profiles), nil
}

func (c *ProfileCache) Cached(t remote.Target) bool {
	return t != nil && c.cache.Has(t.ID().String())
}

func (c *ProfileCache) Invalidate() {
	for item := range c.cache.IterBuffered() {
		c.cache.Remove(item.Key)
	}
}

// ApplyProfile writes every setting of p to t. Unset fields are left alone.
func ApplyProfile(t remote.Target, p *config.Profile) error {
	busNames := t.Kind().BusNames()
	for _, i := range slices.Sorted(maps.Keys(p.Strips)) {
		s, err := t.Strip(i)
		if err != nil {
			return fmt.Errorf("error applying profile %v: %w", p.Name, err)
		}
		set := p.Strips[i]
		if set.Mute != nil {
			s.SetMute(*set.Mute)
		}
		if set.Gain != nil {
			s.SetGain(ClampGain(*set.Gain))
		}
		for j, name := range busNames {
			if on := set.Route(name); on != nil {
				s.SetRoute(j, *on)
			}
		}
	}
	for _, i := range slices.Sorted(maps.Keys(p.Buses)) {
		b, err := t.Bus(i)
		if err != nil {
			return fmt.Errorf("error applying profile %v: %w", p.Name, err)
		}
		set := p.Buses[i]
		if set.Mute != nil {
			b.SetMute(*set.Mute)
		}
		if set.Gain != nil {
			b.SetGain(ClampGain(*set.Gain))
		}
		if set.Mono != nil {
			b.SetMono(*set.Mono)
		}
		if set.EQ != nil {
			b.SetEQ(*set.EQ)
		}
	}
	return nil
}
