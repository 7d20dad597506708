package graphics

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

type IndicatorShape int

const (
	IndicatorCircle IndicatorShape = iota
	IndicatorSquare
)

// Indicators draws a row of on/off lamps, one per state, such as the bus
// routing of a strip.
type Indicators struct {
	Shape        IndicatorShape
	Size         float64
	Margin       float64
	CornerRadius float64
	// RightToLeft lays the first lamp out at the right edge.
	RightToLeft bool

	On  []color.Color
	Off color.Color
}

// Width is the width of a row of n lamps.
func (s *Indicators) Width(n int) int {
	if n <= 0 {
		return 0
	}
	return int(float64(n)*s.Size + float64(n-1)*s.Margin + 0.5)
}

// Render draws states. On colours are taken in order and the last one is
// reused when there are fewer colours than states.
func (s *Indicators) Render(states []bool) (image.Image, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("no states to draw")
	}
	if len(s.On) == 0 {
		return nil, fmt.Errorf("no colors for active lamps")
	}
	width := s.Width(len(states))
	c := gg.NewContext(width, int(s.Size+0.5))

	for i, on := range states {
		col := s.Off
		if on {
			col = s.On[min(i, len(s.On)-1)]
		}
		x := float64(i) * (s.Size + s.Margin)
		if s.RightToLeft {
			x = float64(width) - x - s.Size
		}

		c.SetColor(col)
		switch s.Shape {
		case IndicatorCircle:
			c.DrawCircle(x+s.Size/2, s.Size/2, s.Size/2)
		case IndicatorSquare:
			c.DrawRoundedRectangle(x, 0, s.Size, s.Size, s.CornerRadius)
		}
		c.Fill()
	}
	return c.Image(), nil
}
