package compact

import "fmt"

// FrameID names a channel frame.
type FrameID int

const (
	StripFrame FrameID = iota
	BusFrame
)

func (f FrameID) String() string {
	switch f {
	case StripFrame:
		return "strip"
	case BusFrame:
		return "bus"
	}
	return fmt.Sprintf("FrameID(%d)", int(f))
}

// Slot is where a frame is placed in the window. The secondary slot sits to
// the right of or below the main one.
type Slot int

const (
	SlotMain Slot = iota
	SlotSecondary
)

// The view interfaces below are implemented by the toolkit front-end. Every
// method is called on the UI goroutine. Child views are disposed with the
// FrameView that created them.

type FrameView interface {
	Show()
	Hide()
	Dispose()
}

type ChannelView interface {
	SetLabel(label string)
	SetGain(gain float64)
	SetMute(mute bool)
	SetLevel(level float64)
	SetConfigOpen(open bool)
	Show()
	Hide()
}

type GainLayerView interface {
	SetLabel(label string)
	SetGain(gain float64)
	SetOn(on bool)
	SetLevel(level float64)
	Show()
	Hide()
}

type ConfigView interface {
	SetStates(on []bool)
	Dispose()
}

type BannerView interface {
	SetText(text string)
	Dispose()
}

// NavState is what the navigation column displays.
type NavState struct {
	View     FrameID
	Extended bool
	Submix   bool
	// ViewEnabled is false while extended; the strip/bus switch is locked.
	ViewEnabled bool
	// ExtendEnabled is false in bus view.
	ExtendEnabled bool
	// SubmixEnabled is true for kinds with gain layers.
	SubmixEnabled bool
}

type NavView interface {
	SetState(s NavState)
	Dispose()
}

// Views builds the widgets of every frame.
type Views interface {
	ChannelFrame(id FrameID, slot Slot) FrameView
	Channel(frame FrameView, id FrameID, index int, ctl ChannelControl) ChannelView
	SubmixFrame(slot Slot) FrameView
	GainLayer(frame FrameView, index int, ctl GainLayerControl) GainLayerView
	ConfigPanel(id FrameID, index int, names []string, ctl ConfigControl) ConfigView
	Banner() BannerView
	Navigation(ctl NavControl) NavView
}

// The control interfaces are how widgets report user gestures back.

type ChannelControl interface {
	SetGain(gain float64)
	PressSlider()
	ReleaseSlider()
	Scroll(up bool)
	ResetGain()
	ToggleMute()
	ToggleConfig()
}

type GainLayerControl interface {
	SetGain(gain float64)
	PressSlider()
	ReleaseSlider()
	Scroll(up bool)
	ResetGain()
	ToggleOn()
}

type ConfigControl interface {
	Toggle(option int)
}

type NavControl interface {
	SwitchView()
	ToggleExtend()
	ToggleSubmix()
}
