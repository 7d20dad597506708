// Package graphics draws the bitmaps of the compact window: segmented level
// meters, gain bars and rows of state indicators.
package graphics

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

type PeakHold int

const (
	PeakHoldNone PeakHold = iota
	// PeakHoldShow lights the segment of the held peak.
	PeakHoldShow
	// PeakHoldFill lights every segment up to the held peak.
	PeakHoldFill
)

type MeterColors struct {
	Normal     color.Color
	Good       color.Color
	Clipped    color.Color
	NormalOff  color.Color
	GoodOff    color.Color
	ClippedOff color.Color
}

// Meter draws a single channel level as a bar of segments. Levels below
// DbGood are drawn in the normal colour, levels from 0 dB up as clipped.
type Meter struct {
	Width    int
	Height   int
	Vertical bool

	DbMin  float64
	DbGood float64
	DbMax  float64

	// Segment is the length of one segment and Gap the space between two,
	// in pixels along the bar.
	Segment int
	Gap     int
	Padding int

	PeakHold          PeakHold
	PeakDecayDbPerSec float64

	Background color.Color
	Colors     MeterColors

	peak     float64
	peakTime time.Time
}

func NewMeter(width, height int) *Meter {
	return &Meter{
		Width:             width,
		Height:            height,
		Vertical:          true,
		DbMin:             -60.0,
		DbGood:            -24.0,
		DbMax:             12.0,
		Segment:           2,
		Gap:               1,
		Padding:           1,
		PeakHold:          PeakHoldNone,
		PeakDecayDbPerSec: 12.0,
		Background:        color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0x00},
		Colors: MeterColors{
			Normal:     color.RGBA{R: 133, G: 173, B: 185, A: 0xff},
			Good:       color.RGBA{R: 30, G: 254, B: 91, A: 0xff},
			Clipped:    color.RGBA{R: 250, G: 0, B: 0, A: 0xff},
			NormalOff:  color.RGBA{R: 25, G: 27, B: 27, A: 0xff},
			GoodOff:    color.RGBA{R: 25, G: 27, B: 27, A: 0xff},
			ClippedOff: color.RGBA{R: 31, G: 23, B: 21, A: 0xff},
		},
		peak: -200.0,
	}
}

func (m *Meter) validate() error {
	if m.DbMin >= m.DbMax {
		return fmt.Errorf("DbMin must be less than DbMax")
	}
	if m.DbGood < m.DbMin || m.DbGood > m.DbMax {
		return fmt.Errorf("DbGood must be between DbMin and DbMax")
	}
	if m.DbMax < 0.0 {
		return fmt.Errorf("DbMax must be greater than 0.0")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("Width and Height must be greater than 0")
	}
	if m.Segment <= 0 {
		return fmt.Errorf("Segment must be greater than 0")
	}
	if m.Gap < 0 || m.Padding < 0 {
		return fmt.Errorf("Gap and Padding must be greater than or equal to 0")
	}
	if m.Segments() == 0 {
		return fmt.Errorf("no room for a single segment")
	}
	return nil
}

// length is the extent of the bar along its axis.
func (m *Meter) length() int {
	if m.Vertical {
		return m.Height
	}
	return m.Width
}

func (m *Meter) thickness() int {
	if m.Vertical {
		return m.Width
	}
	return m.Height
}

// Segments returns how many segments fit in the bar.
func (m *Meter) Segments() int {
	room := m.length() - 2*m.Padding
	if room <= 0 {
		return 0
	}
	return (room + m.Gap) / (m.Segment + m.Gap)
}

// Lit returns the number of segments lit for db, between 0 and Segments.
func (m *Meter) Lit(db float64) int {
	n := m.Segments()
	i := int(math.Round((db - m.DbMin) / (m.DbMax - m.DbMin) * float64(n)))
	return max(0, min(n, i))
}

// Peak returns the held peak after the last Render.
func (m *Meter) Peak() float64 {
	return m.peak
}

func (m *Meter) ResetPeak() {
	m.peak = -200.0
	m.peakTime = time.Time{}
}

func (m *Meter) updatePeak(db float64, now time.Time) float64 {
	if db > m.peak || m.peakTime.IsZero() {
		m.peak = db
	} else {
		m.peak -= m.PeakDecayDbPerSec * now.Sub(m.peakTime).Seconds()
		m.peak = max(m.peak, db)
	}
	m.peakTime = now
	return m.peak
}

// Render draws db at time now. The time drives the decay of the held peak.
// A vertical meter is drawn horizontally and rotated so it fills bottom up.
func (m *Meter) Render(db float64, now time.Time) (image.Image, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	peak := m.updatePeak(db, now)

	length, thick := m.length(), m.thickness()
	dc := gg.NewContext(length, thick)
	dc.SetColor(m.Background)
	dc.DrawRectangle(0, 0, float64(length), float64(thick))
	dc.Fill()

	lit := m.Lit(db)
	held := m.Lit(peak)
	on := lit
	if m.PeakHold == PeakHoldFill {
		on = held
	}
	for i := 0; i < m.Segments(); i++ {
		if i < on {
			dc.SetColor(m.segmentColor(i))
		} else {
			dc.SetColor(m.segmentColorOff(i))
		}
		m.drawSegment(dc, i, thick)
	}
	if m.PeakHold == PeakHoldShow && held > 0 {
		dc.SetColor(m.segmentColor(held - 1))
		m.drawSegment(dc, held-1, thick)
	}

	img := dc.Image()
	if m.Vertical {
		return imaging.Rotate90(img), nil
	}
	return img, nil
}

func (m *Meter) drawSegment(dc *gg.Context, i, thick int) {
	x := m.Padding + i*(m.Segment+m.Gap)
	dc.DrawRectangle(float64(x), float64(m.Padding), float64(m.Segment), float64(thick-2*m.Padding))
	dc.Fill()
}

func (m *Meter) segmentColor(i int) color.Color {
	switch {
	case i < m.Lit(m.DbGood):
		return m.Colors.Normal
	case i < m.Lit(0.0):
		return m.Colors.Good
	default:
		return m.Colors.Clipped
	}
}

func (m *Meter) segmentColorOff(i int) color.Color {
	switch {
	case i < m.Lit(m.DbGood):
		return m.Colors.NormalOff
	case i < m.Lit(0.0):
		return m.Colors.GoodOff
	default:
		return m.Colors.ClippedOff
	}
}
