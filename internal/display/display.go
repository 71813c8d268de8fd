// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display draws the four channel values as labelled bars with a
// percentage on a 128x64 SSD1306 OLED.
package display

import (
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/joystick_link/internal/joystick"
)

// Screen geometry.
const (
	Width  = 128
	Height = 64

	rowHeight = Height / joystick.NumChannels
	barLeft   = 24
	barRight  = 95
	pctLeft   = 99
	barTop    = 3 // within a row
	barBottom = 12
)

var labels = [joystick.NumChannels]string{"THR", "DIR", "AIL", "ELE"}

// Panel is the part of *ssd1306.Dev the display uses.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// LatestReceiver yields the newest sample if one is queued.
type LatestReceiver interface {
	TryLatest() (joystick.NormalizedSample, bool)
}

// OpenPanel initializes periph and the SSD1306 on busName. The caller
// closes the returned bus.
func OpenPanel(busName string) (*ssd1306.Dev, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	return dev, bus, nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// Render draws one frame. Without data it shows a waiting screen.
func Render(s joystick.NormalizedSample, have bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()
	if !have {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Joysticks")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	barWidth := barRight - barLeft - 1
	for i, v := range s {
		top := i * rowHeight
		drawer.Dot = fixed.P(0, top+barBottom)
		drawer.DrawString(labels[i])

		// outline
		for x := barLeft; x <= barRight; x++ {
			img.SetBit(x, top+barTop, image1bit.On)
			img.SetBit(x, top+barBottom, image1bit.On)
		}
		for y := top + barTop; y <= top+barBottom; y++ {
			img.SetBit(barLeft, y, image1bit.On)
			img.SetBit(barRight, y, image1bit.On)
		}

		drawer.Dot = fixed.P(pctLeft, top+barBottom)
		drawer.DrawString(fmt.Sprintf("%3d%%", int(v)/100))

		fill := int(v) * barWidth / joystick.NormalizedMax
		for x := barLeft + 1; x <= barLeft+fill; x++ {
			for y := top + barTop + 1; y < top+barBottom; y++ {
				img.SetBit(x, y, image1bit.On)
			}
		}
	}
	return img
}

// Display refreshes a panel with the newest sample.
type Display struct {
	panel    Panel
	interval time.Duration
	logger   *log.Logger

	last joystick.NormalizedSample
	have bool
}

// New creates a display refreshing every interval.
func New(panel Panel, interval time.Duration, logger *log.Logger) *Display {
	return &Display{panel: panel, interval: interval, logger: logger}
}

// Refresh pulls the newest sample, if any, and redraws.
func (d *Display) Refresh(rx LatestReceiver) error {
	if v, ok := rx.TryLatest(); ok {
		d.last, d.have = v, true
	}
	return d.panel.Draw(d.panel.Bounds(), Render(d.last, d.have), image.Point{})
}

// Run redraws on every tick. Draw errors are logged and do not stop the
// loop.
func (d *Display) Run(rx LatestReceiver) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("display update loop started", "interval", d.interval)
	for range ticker.C {
		if err := d.Refresh(rx); err != nil {
			d.logger.Warn("display update failed", "err", err)
		}
	}
}
