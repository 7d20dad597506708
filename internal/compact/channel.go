package compact

import (
	"github.com/hrko/vmcompact/internal/remote"
	"github.com/hrko/vmcompact/internal/subject"
)

const maxLabelLen = 10

// channelAccess is what remote.Strip and remote.Bus have in common.
type channelAccess interface {
	Label() string
	Gain() float64
	SetGain(gain float64)
	Mute() bool
	SetMute(mute bool)
}

// Channel is one strip or bus of a ChannelFrame. A channel with an empty
// label is hidden and stops listening to the root subject; it comes back
// when the label is set again.
type Channel struct {
	env   *env
	id    FrameID
	index int
	view  ChannelView

	visible    bool
	label      string
	gain       float64
	mute       bool
	configOpen bool
}

func (c *Channel) Index() int {
	return c.index
}

func (c *Channel) Visible() bool {
	return c.visible
}

func (c *Channel) Label() string {
	return c.label
}

func (c *Channel) Gain() float64 {
	return c.gain
}

func (c *Channel) Muted() bool {
	return c.mute
}

func (c *Channel) access() (channelAccess, error) {
	t := c.env.target()
	if t == nil {
		return nil, ErrNoTarget
	}
	if c.id == BusFrame {
		b, err := t.Bus(c.index)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	s, err := t.Strip(c.index)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Channel) OnUpdate(topic subject.Topic) {
	switch topic {
	case subject.ParamsDirty:
		c.syncParams()
	case subject.LevelsDirty:
		c.updateLevel()
	case subject.LabelsDirty:
		c.syncLabel()
	}
}

func (c *Channel) syncParams() {
	a, err := c.access()
	if err != nil {
		log.WithField("frame", c.id).Debugf("error syncing channel %d: %v", c.index, err)
		return
	}
	c.gain = a.Gain()
	c.mute = a.Mute()
	c.view.SetGain(c.gain)
	c.view.SetMute(c.mute)
}

func (c *Channel) syncLabel() {
	a, err := c.access()
	if err != nil {
		log.WithField("frame", c.id).Debugf("error syncing label %d: %v", c.index, err)
		return
	}
	c.label = a.Label()
	if c.label == "" {
		if c.visible {
			c.visible = false
			c.env.root.Remove(c)
			c.view.Hide()
		}
		return
	}
	c.view.SetLabel(ShortLabel(c.label))
	if !c.visible {
		c.visible = true
		c.env.root.Add(c)
		c.view.Show()
		c.syncParams()
	}
}

func (c *Channel) updateLevel() {
	t := c.env.target()
	if t == nil {
		return
	}
	k := c.env.kind
	var level float64
	var ok bool
	if c.id == BusFrame {
		level, ok = peak(t.Levels(remote.BusOutput), k.BusLevelOffset(c.index), k.BusLevelWidth(c.index))
	} else {
		level, ok = peak(t.Levels(remote.StripPreFader), k.StripLevelOffset(c.index), k.StripLevelWidth(c.index))
		level += c.gain
	}
	if !ok {
		return
	}
	if c.mute {
		level = LevelFloor
	}
	c.view.SetLevel(level)
}

// peak returns the loudest of levels[offset:offset+width]. The buffer can
// shrink while a transport is switching; an offset past its end is reported
// as no reading.
func peak(levels []float64, offset, width int) (float64, bool) {
	if offset < 0 || width <= 0 || offset+width > len(levels) {
		return 0, false
	}
	loudest := levels[offset]
	for _, v := range levels[offset+1 : offset+width] {
		if v > loudest {
			loudest = v
		}
	}
	return loudest, true
}

// ShortLabel trims a label to fit the channel header.
func ShortLabel(label string) string {
	r := []rune(label)
	if len(r) > maxLabelLen {
		return string(r[:maxLabelLen-2]) + ".."
	}
	return label
}

func (c *Channel) SetGain(gain float64) {
	a, err := c.access()
	if err != nil {
		log.Warnf("error setting gain: %v", err)
		return
	}
	c.gain = ClampGain(gain)
	a.SetGain(c.gain)
}

func (c *Channel) PressSlider() {
	c.env.gestures.SliderPressed()
}

func (c *Channel) ReleaseSlider() {
	c.env.gestures.SliderReleased()
}

func (c *Channel) Scroll(up bool) {
	c.env.gestures.Scrolled(func() {
		c.SetGain(NudgeGain(c.gain, up, c.env.scrollStep))
		c.view.SetGain(c.gain)
	})
}

func (c *Channel) ResetGain() {
	c.SetGain(0)
	c.view.SetGain(c.gain)
}

func (c *Channel) ToggleMute() {
	a, err := c.access()
	if err != nil {
		log.Warnf("error toggling mute: %v", err)
		return
	}
	c.mute = !a.Mute()
	a.SetMute(c.mute)
	c.view.SetMute(c.mute)
}

func (c *Channel) ToggleConfig() {
	if c.env.toggleConfig != nil {
		c.env.toggleConfig(c.id, c.index)
	}
}

func (c *Channel) setConfigOpen(open bool) {
	c.configOpen = open
	c.view.SetConfigOpen(open)
}

func (c *Channel) ConfigOpen() bool {
	return c.configOpen
}
