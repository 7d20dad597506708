package graphics

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// Fader draws a gain as a horizontal bar filled from the left. Gains above
// 0 dB use the overamplified colour; a bar that is switched off is drawn
// with the background only.
type Fader struct {
	Color struct {
		Background              color.Color
		Border                  color.Color
		ForegroundNormal        color.Color
		ForegroundOveramplified color.Color
	}
	Width          int
	Height         int
	RoundedCorners bool
	BorderWidth    int
	DbMin          float64
	DbMax          float64
}

func NewFader() *Fader {
	f := &Fader{}
	f.Color.Background = color.RGBA{0x2c, 0x3d, 0x4d, 0xff}
	f.Color.Border = color.RGBA{0, 0, 0, 159}
	f.Color.ForegroundNormal = color.RGBA{0x70, 0xc3, 0x99, 0xff}
	f.Color.ForegroundOveramplified = color.RGBA{0xf8, 0x63, 0x4d, 0xff}
	f.Width = 72
	f.Height = 8
	f.RoundedCorners = true
	f.BorderWidth = 1
	f.DbMin = -60.0
	f.DbMax = 12.0
	return f
}

// Fill returns the filled share of the bar for db, between 0 and 1.
func (f *Fader) Fill(db float64) float64 {
	if f.DbMax <= f.DbMin {
		return 0
	}
	v := (db - f.DbMin) / (f.DbMax - f.DbMin)
	return max(0, min(1, v))
}

func (f *Fader) radius(w, h float64) float64 {
	if !f.RoundedCorners {
		return 0
	}
	return min(w, h) / 2
}

func (f *Fader) Render(db float64, on bool) image.Image {
	c := gg.NewContext(f.Width, f.Height)

	w := float64(f.Width)
	h := float64(f.Height)
	c.DrawRoundedRectangle(0, 0, w, h, f.radius(w, h))
	c.Clip()

	c.DrawRectangle(0, 0, w, h)
	c.SetColor(f.Color.Border)
	c.Fill()

	b := float64(f.BorderWidth)
	w = float64(f.Width - f.BorderWidth*2)
	h = float64(f.Height - f.BorderWidth*2)
	c.DrawRoundedRectangle(b, b, w, h, f.radius(w, h))
	c.SetColor(f.Color.Background)
	c.Fill()

	fill := f.Fill(db)
	if !on || fill == 0 {
		return c.Image()
	}

	fg := f.Color.ForegroundNormal
	if db > 0.0 {
		fg = f.Color.ForegroundOveramplified
	}
	w *= fill
	c.DrawRoundedRectangle(b, b, w, h, f.radius(w, h))
	c.SetColor(fg)
	c.Fill()

	return c.Image()
}
