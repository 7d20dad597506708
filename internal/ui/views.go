package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/hrko/vmcompact/internal/compact"
	"github.com/hrko/vmcompact/internal/config"
)

const meterWidth = 6

// views builds fyne widgets for the frames of compact.Manager. Every frame
// is placed in one of the window's slots and removed from it on Dispose.
type views struct {
	cfg    *config.Config
	colors config.IndicatorColors

	main      *fyne.Container
	secondary *fyne.Container
	configRow *fyne.Container
	banner    *fyne.Container
	nav       *fyne.Container
}

func newViews(cfg *config.Config) (*views, error) {
	colors, err := cfg.Indicator.Colors()
	if err != nil {
		return nil, err
	}
	return &views{
		cfg:       cfg,
		colors:    colors,
		main:      container.NewStack(),
		secondary: container.NewStack(),
		configRow: container.NewStack(),
		banner:    container.NewStack(),
		nav:       container.NewStack(),
	}, nil
}

func (v *views) slot(s compact.Slot) *fyne.Container {
	if s == compact.SlotSecondary {
		return v.secondary
	}
	return v.main
}

// content lays the slots out: navigation on the left, the banner on top, the
// config row at the bottom and the frames in the middle.
func (v *views) content() fyne.CanvasObject {
	var frames *fyne.Container
	if v.cfg.Extends.ExtendsHorizontal {
		frames = container.NewHBox(v.main, v.secondary)
	} else {
		frames = container.NewVBox(v.main, v.secondary)
	}
	return container.NewBorder(v.banner, v.configRow, v.nav, nil, frames)
}

type frameView struct {
	slot *fyne.Container
	row  *fyne.Container
}

func (f *frameView) Show() {
	f.row.Show()
}

func (f *frameView) Hide() {
	f.row.Hide()
}

func (f *frameView) Dispose() {
	f.slot.Remove(f.row)
}

func (v *views) newFrame(s compact.Slot) *frameView {
	f := &frameView{slot: v.slot(s), row: container.NewHBox()}
	f.slot.Add(f.row)
	return f
}

func (v *views) ChannelFrame(id compact.FrameID, slot compact.Slot) compact.FrameView {
	return v.newFrame(slot)
}

func (v *views) SubmixFrame(slot compact.Slot) compact.FrameView {
	return v.newFrame(slot)
}

type channelView struct {
	ctl    compact.ChannelControl
	box    *fyne.Container
	label  *widget.Button
	slider *gainSlider
	meter  *meterImage
	mute   *widget.Button
	lamp   *lamp
}

func (v *views) Channel(frame compact.FrameView, id compact.FrameID, index int, ctl compact.ChannelControl) compact.ChannelView {
	f := frame.(*frameView)
	height := v.cfg.Channel.Height
	c := &channelView{
		ctl:    ctl,
		slider: newGainSlider(ctl),
		meter:  newMeterImage(meterWidth, height, true),
		lamp:   newLamp(8, v.colors.Mute, v.colors.Inactive),
	}
	c.label = widget.NewButton(fmt.Sprintf("%v %d", id, index), ctl.ToggleConfig)
	c.label.Importance = widget.LowImportance
	c.mute = widget.NewButton("MUTE", ctl.ToggleMute)

	fader := container.NewBorder(nil, nil, c.meter.image, nil, c.slider)
	body := container.NewGridWrap(fyne.NewSize(float32(v.cfg.Channel.Width), float32(height)), fader)
	c.box = container.NewVBox(c.label, body, container.NewHBox(c.lamp.image, c.mute))
	f.row.Add(c.box)
	if pad := v.cfg.Channel.XPadding; pad > 0 {
		f.row.Add(newSpacer(pad))
	}
	return c
}

func (c *channelView) SetLabel(label string) {
	c.label.SetText(label)
}

func (c *channelView) SetGain(gain float64) {
	c.slider.setGain(gain)
}

func (c *channelView) SetMute(mute bool) {
	c.lamp.set(mute)
	if mute {
		c.mute.Importance = widget.DangerImportance
	} else {
		c.mute.Importance = widget.MediumImportance
	}
	c.mute.Refresh()
}

func (c *channelView) SetLevel(level float64) {
	c.meter.set(level)
}

func (c *channelView) SetConfigOpen(open bool) {
	if open {
		c.label.Importance = widget.HighImportance
	} else {
		c.label.Importance = widget.LowImportance
	}
	c.label.Refresh()
}

func (c *channelView) Show() {
	c.box.Show()
}

func (c *channelView) Hide() {
	c.box.Hide()
}

type gainLayerView struct {
	box    *fyne.Container
	label  *widget.Label
	slider *gainSlider
	meter  *meterImage
	fader  *faderImage
	on     *widget.Button
	gain   float64
	active bool
}

func (v *views) GainLayer(frame compact.FrameView, index int, ctl compact.GainLayerControl) compact.GainLayerView {
	f := frame.(*frameView)
	height := v.cfg.Channel.Height
	width := v.cfg.Channel.Width
	l := &gainLayerView{
		label:  widget.NewLabel(fmt.Sprintf("strip %d", index)),
		slider: newGainSlider(ctl),
		meter:  newMeterImage(meterWidth, height, true),
		fader:  newFaderImage(width - 8),
	}
	l.label.Alignment = fyne.TextAlignCenter
	l.on = widget.NewButton("ON", ctl.ToggleOn)

	fader := container.NewBorder(nil, nil, l.meter.image, nil, l.slider)
	body := container.NewGridWrap(fyne.NewSize(float32(width), float32(height)), fader)
	l.box = container.NewVBox(l.label, body, l.fader.image, l.on)
	f.row.Add(l.box)
	if pad := v.cfg.Channel.XPadding; pad > 0 {
		f.row.Add(newSpacer(pad))
	}
	return l
}

func (l *gainLayerView) SetLabel(label string) {
	l.label.SetText(label)
}

func (l *gainLayerView) SetGain(gain float64) {
	l.gain = gain
	l.slider.setGain(gain)
	l.fader.set(gain, l.active)
}

func (l *gainLayerView) SetOn(on bool) {
	l.active = on
	if on {
		l.on.Importance = widget.SuccessImportance
	} else {
		l.on.Importance = widget.MediumImportance
	}
	l.on.Refresh()
	l.fader.set(l.gain, on)
}

func (l *gainLayerView) SetLevel(level float64) {
	l.meter.set(level)
}

func (l *gainLayerView) Show() {
	l.box.Show()
}

func (l *gainLayerView) Hide() {
	l.box.Hide()
}

type configView struct {
	slot    *fyne.Container
	row     *fyne.Container
	buttons []*widget.Button
	lamps   []*lamp
}

func (v *views) ConfigPanel(id compact.FrameID, index int, names []string, ctl compact.ConfigControl) compact.ConfigView {
	c := &configView{slot: v.configRow, row: container.NewHBox()}
	c.row.Add(widget.NewLabel(fmt.Sprintf("%v %d", id, index)))
	for i, name := range names {
		b := widget.NewButton(name, func() { ctl.Toggle(i) })
		l := newLamp(8, v.colors.Route, v.colors.Inactive)
		c.buttons = append(c.buttons, b)
		c.lamps = append(c.lamps, l)
		c.row.Add(container.NewHBox(l.image, b))
	}
	c.slot.Add(c.row)
	return c
}

func (c *configView) SetStates(on []bool) {
	for i, b := range c.buttons {
		state := i < len(on) && on[i]
		c.lamps[i].set(state)
		if state {
			b.Importance = widget.HighImportance
		} else {
			b.Importance = widget.MediumImportance
		}
		b.Refresh()
	}
}

func (c *configView) Dispose() {
	c.slot.Remove(c.row)
}

type bannerView struct {
	slot  *fyne.Container
	label *widget.Label
}

func (v *views) Banner() compact.BannerView {
	b := &bannerView{slot: v.banner, label: widget.NewLabel("")}
	b.label.Alignment = fyne.TextAlignCenter
	b.label.TextStyle = fyne.TextStyle{Bold: true}
	b.slot.Add(b.label)
	return b
}

func (b *bannerView) SetText(text string) {
	b.label.SetText(text)
}

func (b *bannerView) Dispose() {
	b.slot.Remove(b.label)
}

type navView struct {
	slot   *fyne.Container
	box    *fyne.Container
	view   *widget.Button
	extend *widget.Button
	submix *widget.Button
}

func (v *views) Navigation(ctl compact.NavControl) compact.NavView {
	n := &navView{
		slot:   v.nav,
		view:   widget.NewButton("BUS", ctl.SwitchView),
		extend: widget.NewButton("EXTEND", ctl.ToggleExtend),
		submix: widget.NewButton("SUBMIX", ctl.ToggleSubmix),
	}
	n.box = container.NewVBox(n.view, n.extend, n.submix)
	n.slot.Add(n.box)
	return n
}

func (n *navView) SetState(s compact.NavState) {
	if s.View == compact.BusFrame {
		n.view.SetText("STRIP")
	} else {
		n.view.SetText("BUS")
	}
	if s.Extended {
		n.extend.SetText("REDUCE")
	} else {
		n.extend.SetText("EXTEND")
	}
	if s.Submix {
		n.submix.Importance = widget.HighImportance
	} else {
		n.submix.Importance = widget.MediumImportance
	}
	n.submix.Refresh()

	setEnabled(n.view, s.ViewEnabled)
	setEnabled(n.extend, s.ExtendEnabled)
	setEnabled(n.submix, s.SubmixEnabled)
	if s.SubmixEnabled {
		n.submix.Show()
	} else {
		n.submix.Hide()
	}
}

func (n *navView) Dispose() {
	n.slot.Remove(n.box)
}

func setEnabled(w fyne.Disableable, on bool) {
	if on {
		w.Enable()
	} else {
		w.Disable()
	}
}
