// Command graphics-preview writes the meter, fader and indicator images at a
// given level to PNG files, for checking colours and sizes by eye.
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hrko/vmcompact/pkg/graphics"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: graphics-preview <level_db> <output_directory>")
		os.Exit(1)
	}
	db, err := strconv.ParseFloat(os.Args[1], 64)
	if err != nil {
		fmt.Println("Error parsing level:", err)
		os.Exit(1)
	}
	if err := render(db, os.Args[2]); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func render(db float64, dir string) error {
	meter := graphics.NewMeter(6, 110)
	meter.PeakHold = graphics.PeakHoldShow
	vertical, err := meter.Render(db, time.Now())
	if err != nil {
		return err
	}
	meter.Vertical = false
	meter.Width, meter.Height = 110, 6
	horizontal, err := meter.Render(db, time.Now())
	if err != nil {
		return err
	}

	lamps := &graphics.Indicators{
		Size:   8,
		Margin: 2,
		On:     []color.Color{color.RGBA{0xf6, 0x60, 0x51, 0xff}, color.RGBA{0x70, 0xc3, 0x99, 0xff}},
		Off:    color.RGBA{0x2c, 0x3d, 0x4d, 0xff},
	}
	indicators, err := lamps.Render([]bool{true, true, false, true, false})
	if err != nil {
		return err
	}

	images := map[string]image.Image{
		"meter-vertical.png":   vertical,
		"meter-horizontal.png": horizontal,
		"fader-on.png":         graphics.NewFader().Render(db, true),
		"fader-off.png":        graphics.NewFader().Render(db, false),
		"indicators.png":       indicators,
	}
	for name, img := range images {
		if err := writePNG(filepath.Join(dir, name), img); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
