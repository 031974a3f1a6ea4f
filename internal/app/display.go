// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// StatusReader is the tracker surface drawn on the screen.
type StatusReader interface {
	Pose() odometry.Pose
	Attitude() odometry.Attitude
	Samples() int64
}

// RunDisplay draws the pose and attitude on an SSD1306 at addr every
// period until ctx is cancelled.
func RunDisplay(ctx context.Context, tracker StatusReader, addr uint16, period time.Duration) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&addressedBus{Bus: bus, addr: addr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized at 0x%02X", addr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			log.Println("display: stopped")
			return nil
		case <-ticker.C:
			img := renderStatus(tracker.Pose(), tracker.Attitude(), tracker.Samples() > 0)
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

// addressedBus sends every transaction to addr. The ssd1306 driver always
// talks to 0x3C, so modules strapped to 0x3D need the address rewritten.
type addressedBus struct {
	i2c.Bus
	addr uint16
}

func (b *addressedBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// renderStatus lays out pose on the first three rows and the filtered
// attitude on the last.
func renderStatus(pose odometry.Pose, att odometry.Attitude, haveData bool) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !haveData {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Odometry")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(fmt.Sprintf("X: %8.2f", pose.X))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawString(fmt.Sprintf("Y: %8.2f", pose.Y))

	drawer.Dot = fixed.P(0, 39)
	drawer.DrawString(fmt.Sprintf("H: %8.1f", pose.HeadingDegrees()))

	drawer.Dot = fixed.P(0, 52)
	drawer.DrawString(fmt.Sprintf("P%5.1f R%5.1f", att.Pitch, att.Roll))

	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Odometry Pi")

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("Place robot")

	drawer.Dot = fixed.P(5, 56)
	drawer.DrawString("and calibrate")

	return img
}
