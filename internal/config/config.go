// Package config loads the TOML files under the configs directory: app.toml
// for the window and update cadence, vban.toml for network connections and
// one directory of user profiles per kind.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/colors"
	"github.com/hrko/vmcompact/internal/kind"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "config")

var ErrInvalid = errors.New("invalid configuration")

const (
	appFile  = "app.toml"
	vbanFile = "vban.toml"
)

type Config struct {
	Extends      ExtendsConfig    `toml:"extends" json:"extends"`
	Channel      ChannelConfig    `toml:"channel" json:"channel"`
	MWScrollStep ScrollConfig     `toml:"mwscroll_step" json:"mwscroll_step"`
	Submixes     SubmixConfig     `toml:"submixes" json:"submixes"`
	Navigation   NavigationConfig `toml:"navigation" json:"navigation"`
	Configs      ProfileConfig    `toml:"configs" json:"configs"`
	Updates      UpdatesConfig    `toml:"updates" json:"updates"`
	Indicator    IndicatorConfig  `toml:"indicator" json:"indicator"`

	// VBAN holds the connections of vban.toml ordered by number.
	VBAN []Connection `toml:"-" json:"vban"`
	// Dir is the directory the configuration was loaded from.
	Dir string `toml:"-" json:"dir"`
}

type ExtendsConfig struct {
	Extended          bool `toml:"extended" json:"extended"`
	ExtendsHorizontal bool `toml:"extends_horizontal" json:"extends_horizontal"`
}

type ChannelConfig struct {
	Width    int `toml:"width" json:"width"`
	Height   int `toml:"height" json:"height"`
	XPadding int `toml:"xpadding" json:"xpadding"`
}

type ScrollConfig struct {
	Size int `toml:"size" json:"size"`
}

type SubmixConfig struct {
	Default int `toml:"default" json:"default"`
}

type NavigationConfig struct {
	Show bool `toml:"show" json:"show"`
}

type ProfileConfig struct {
	// Config names the user profile applied at startup, if any.
	Config string `toml:"config" json:"config"`
}

type UpdatesConfig struct {
	ParamPoll         Duration `toml:"param_poll" json:"param_poll"`
	LevelPoll         Duration `toml:"level_poll" json:"level_poll"`
	StartupGrace      Duration `toml:"startup_grace" json:"startup_grace"`
	RestartGrace      Duration `toml:"restart_grace" json:"restart_grace"`
	QuietWindow       Duration `toml:"quiet_window" json:"quiet_window"`
	ScrollPause       Duration `toml:"scroll_pause" json:"scroll_pause"`
	DragSettle        Duration `toml:"drag_settle" json:"drag_settle"`
	HealthInterval    Duration `toml:"health_interval" json:"health_interval"`
	ReconnectCooldown Duration `toml:"reconnect_cooldown" json:"reconnect_cooldown"`
	// LostAfter is the number of consecutive failed health checks that
	// count as a lost connection.
	LostAfter int `toml:"lost_after" json:"lost_after"`
	// SuppressLevelsWhileSliding also holds back level updates while a
	// slider is pressed, not only while the window is dragged.
	SuppressLevelsWhileSliding bool `toml:"suppress_levels_while_sliding" json:"suppress_levels_while_sliding"`
}

type IndicatorConfig struct {
	Mute     string `toml:"mute" json:"mute"`
	Route    string `toml:"route" json:"route"`
	Inactive string `toml:"inactive" json:"inactive"`
}

type Connection struct {
	Name       string   `toml:"-" json:"name"`
	Kind       string   `toml:"kind" json:"kind"`
	IP         string   `toml:"ip" json:"ip"`
	Port       int      `toml:"port" json:"port"`
	StreamName string   `toml:"streamname" json:"streamname"`
	BPS        int      `toml:"bps" json:"bps"`
	Channel    int      `toml:"channel" json:"channel"`
	Timeout    Duration `toml:"timeout" json:"timeout"`
}

func Default() *Config {
	return &Config{
		Extends: ExtendsConfig{
			Extended:          true,
			ExtendsHorizontal: true,
		},
		Channel: ChannelConfig{
			Width:    80,
			Height:   130,
			XPadding: 3,
		},
		MWScrollStep: ScrollConfig{Size: 3},
		Submixes:     SubmixConfig{Default: 0},
		Navigation:   NavigationConfig{Show: true},
		Updates: UpdatesConfig{
			ParamPoll:         Duration{33 * time.Millisecond},
			LevelPoll:         Duration{50 * time.Millisecond},
			StartupGrace:      Duration{12 * time.Second},
			RestartGrace:      Duration{8 * time.Second},
			QuietWindow:       Duration{500 * time.Millisecond},
			ScrollPause:       Duration{50 * time.Millisecond},
			DragSettle:        Duration{100 * time.Millisecond},
			HealthInterval:    Duration{250 * time.Millisecond},
			ReconnectCooldown: Duration{15 * time.Second},
			LostAfter:         1,
		},
		Indicator: IndicatorConfig{
			Mute:     "#f66051",
			Route:    "#70c399",
			Inactive: "#2c3d4d",
		},
	}
}

// Load reads dir/app.toml over the defaults and dir/vban.toml. Missing
// files are not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	if _, err := toml.DecodeFile(filepath.Join(dir, appFile), cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %v: %w", appFile, err)
		}
	} else {
		log.Infof("Loaded configuration %v", filepath.Join(dir, appFile))
	}

	conns, err := loadConnections(filepath.Join(dir, vbanFile))
	if err != nil {
		return nil, err
	}
	cfg.VBAN = conns

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConnections(path string) ([]Connection, error) {
	raw := map[string]Connection{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading %v: %w", vbanFile, err)
	}

	type numbered struct {
		n int
		c Connection
	}
	var list []numbered
	for name, c := range raw {
		n, ok := tableNumber(name, "connection-")
		if !ok {
			log.Warnf("ignoring table [%v] in %v", name, vbanFile)
			continue
		}
		c.Name = name
		list = append(list, numbered{n, c})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].n < list[j].n })

	conns := make([]Connection, 0, len(list))
	for _, e := range list {
		conns = append(conns, e.c)
	}
	log.Infof("Loaded %d vban connection(s)", len(conns))
	return conns, nil
}

func tableNumber(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Config) Validate() error {
	u := c.Updates
	for name, d := range map[string]Duration{
		"param_poll":      u.ParamPoll,
		"level_poll":      u.LevelPoll,
		"quiet_window":    u.QuietWindow,
		"health_interval": u.HealthInterval,
		"drag_settle":     u.DragSettle,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%w: updates.%v must be positive", ErrInvalid, name)
		}
	}
	if u.LostAfter < 1 {
		return fmt.Errorf("%w: updates.lost_after must be at least 1", ErrInvalid)
	}
	if c.Submixes.Default < 0 || c.Submixes.Default > 7 {
		return fmt.Errorf("%w: submixes.default %v is out of range", ErrInvalid, c.Submixes.Default)
	}
	if c.MWScrollStep.Size <= 0 {
		return fmt.Errorf("%w: mwscroll_step.size must be positive", ErrInvalid)
	}
	for _, conn := range c.VBAN {
		if conn.Kind != "" {
			if _, err := kind.Get(conn.Kind); err != nil {
				return fmt.Errorf("%w: %v: %w", ErrInvalid, conn.Name, err)
			}
		}
		if conn.IP == "" {
			return fmt.Errorf("%w: %v: missing ip", ErrInvalid, conn.Name)
		}
	}
	if _, err := c.Indicator.Colors(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

type IndicatorColors struct {
	Mute     color.Color
	Route    color.Color
	Inactive color.Color
}

func (c IndicatorConfig) Colors() (IndicatorColors, error) {
	var ic IndicatorColors
	var err error
	if ic.Mute, err = parseColor(c.Mute); err != nil {
		return ic, err
	}
	if ic.Route, err = parseColor(c.Route); err != nil {
		return ic, err
	}
	if ic.Inactive, err = parseColor(c.Inactive); err != nil {
		return ic, err
	}
	return ic, nil
}

func parseColor(s string) (color.Color, error) {
	hex, err := colors.ParseHEX(s)
	if err != nil {
		return nil, fmt.Errorf("error parsing color %q: %w", s, err)
	}
	rgba := hex.ToRGBA()
	return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: uint8(rgba.A * 0xff)}, nil
}
