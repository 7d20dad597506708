package ui

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/hrko/vmcompact/internal/compact"
	"github.com/hrko/vmcompact/pkg/graphics"
)

// sliderControl is what channels and gain layers have in common.
type sliderControl interface {
	SetGain(gain float64)
	PressSlider()
	ReleaseSlider()
	Scroll(up bool)
	ResetGain()
}

// gainSlider is a vertical fader that reports press and release of a drag,
// wheel steps and double clicks to its control.
type gainSlider struct {
	widget.Slider
	ctl sliderControl

	held  bool
	quiet bool
}

func newGainSlider(ctl sliderControl) *gainSlider {
	s := &gainSlider{ctl: ctl}
	s.Min = compact.MinGain
	s.Max = compact.MaxGain
	s.Step = 0.1
	s.Orientation = widget.Vertical
	s.OnChanged = s.changed
	s.ExtendBaseWidget(s)
	return s
}

// changed reports a new value. Taps on the track and key steps arrive
// outside a drag and are wrapped in a press and release of their own, so
// they get the same quiet window as a drag.
func (s *gainSlider) changed(v float64) {
	if s.quiet {
		return
	}
	if s.held {
		s.ctl.SetGain(v)
		return
	}
	s.ctl.PressSlider()
	s.ctl.SetGain(v)
	s.ctl.ReleaseSlider()
}

func (s *gainSlider) Dragged(e *fyne.DragEvent) {
	if !s.held {
		s.held = true
		s.ctl.PressSlider()
	}
	s.Slider.Dragged(e)
}

func (s *gainSlider) DragEnd() {
	s.Slider.DragEnd()
	if s.held {
		s.held = false
		s.ctl.ReleaseSlider()
	}
}

func (s *gainSlider) Scrolled(e *fyne.ScrollEvent) {
	s.ctl.Scroll(e.Scrolled.DY > 0)
}

func (s *gainSlider) DoubleTapped(*fyne.PointEvent) {
	s.ctl.ResetGain()
}

// setGain moves the knob without reporting it back.
func (s *gainSlider) setGain(gain float64) {
	s.quiet = true
	s.SetValue(gain)
	s.quiet = false
}

// meterImage shows a graphics.Meter. Levels are only redrawn when the lit
// segment count or the held peak changed.
type meterImage struct {
	meter *graphics.Meter
	image *canvas.Image
	lit   int
	held  int
}

func newMeterImage(width, height int, vertical bool) *meterImage {
	m := graphics.NewMeter(width, height)
	m.Vertical = vertical
	m.PeakHold = graphics.PeakHoldShow
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(fyne.NewSize(float32(width), float32(height)))
	mi := &meterImage{meter: m, image: img, lit: -1, held: -1}
	mi.set(compact.LevelFloor)
	return mi
}

func (m *meterImage) set(level float64) {
	lit := m.meter.Lit(level)
	rendered, err := m.meter.Render(level, time.Now())
	if err != nil {
		log.Debugf("error rendering meter: %v", err)
		return
	}
	held := m.meter.Lit(m.meter.Peak())
	if lit == m.lit && held == m.held {
		return
	}
	m.lit, m.held = lit, held
	m.image.Image = rendered
	m.image.Refresh()
}

// lamp is a single indicator drawn with graphics.Indicators.
type lamp struct {
	style *graphics.Indicators
	image *canvas.Image
	on    bool
	drawn bool
}

func newLamp(size float64, on, off color.Color) *lamp {
	l := &lamp{
		style: &graphics.Indicators{
			Shape: graphics.IndicatorCircle,
			Size:  size,
			On:    []color.Color{on},
			Off:   off,
		},
		image: canvas.NewImageFromImage(nil),
	}
	l.image.FillMode = canvas.ImageFillContain
	l.image.SetMinSize(fyne.NewSize(float32(size), float32(size)))
	l.set(false)
	return l
}

func (l *lamp) set(on bool) {
	if l.drawn && l.on == on {
		return
	}
	img, err := l.style.Render([]bool{on})
	if err != nil {
		log.Debugf("error rendering lamp: %v", err)
		return
	}
	l.on, l.drawn = on, true
	l.image.Image = img
	l.image.Refresh()
}

// faderImage shows a gain as a bar with graphics.Fader.
type faderImage struct {
	fader *graphics.Fader
	image *canvas.Image
}

func newFaderImage(width int) *faderImage {
	f := graphics.NewFader()
	f.Width = width
	f.DbMin = compact.MinGain
	f.DbMax = compact.MaxGain
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(float32(f.Width), float32(f.Height)))
	fi := &faderImage{fader: f, image: img}
	fi.set(0, false)
	return fi
}

func (f *faderImage) set(gain float64, on bool) {
	f.image.Image = f.fader.Render(gain, on)
	f.image.Refresh()
}

func newSpacer(width int) fyne.CanvasObject {
	r := canvas.NewRectangle(color.Transparent)
	r.SetMinSize(fyne.NewSize(float32(width), 0))
	return r
}
