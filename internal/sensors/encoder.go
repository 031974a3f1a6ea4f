// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeTimeout bounds each wait for an encoder edge so the watcher notices
// Close promptly.
const edgeTimeout = 100 * time.Millisecond

// WheelReader reports the cumulative rotation of one tracking wheel in
// degrees.
type WheelReader interface {
	Degrees() float64
}

// Encoder decodes a quadrature encoder wired to two GPIO pins. Edges on
// channel A are counted; channel B gives the direction.
type Encoder struct {
	name         string
	a, b         gpio.PinIO
	countsPerRev float64

	count atomic.Int64
	stop  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// OpenEncoder configures pinA and pinB as inputs and starts counting.
// countsPerRev is the number of channel A edges per wheel revolution.
func OpenEncoder(name, pinA, pinB string, countsPerRev int) (*Encoder, error) {
	if countsPerRev <= 0 {
		return nil, fmt.Errorf("%s encoder: counts per revolution must be positive, got %d", name, countsPerRev)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s encoder: periph host init: %w", name, err)
	}

	a := gpioreg.ByName(pinA)
	if a == nil {
		return nil, fmt.Errorf("%s encoder: pin %q not found", name, pinA)
	}
	b := gpioreg.ByName(pinB)
	if b == nil {
		return nil, fmt.Errorf("%s encoder: pin %q not found", name, pinB)
	}

	if err := a.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("%s encoder: configure %s: %w", name, pinA, err)
	}
	if err := b.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("%s encoder: configure %s: %w", name, pinB, err)
	}
	log.Printf("%s encoder: counting on %s/%s (%d counts/rev)", name, pinA, pinB, countsPerRev)

	e := &Encoder{
		name:         name,
		a:            a,
		b:            b,
		countsPerRev: float64(countsPerRev),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go e.watch()
	return e, nil
}

func (e *Encoder) watch() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		default:
		}
		if !e.a.WaitForEdge(edgeTimeout) {
			continue
		}
		e.count.Add(quadratureStep(e.a.Read(), e.b.Read()))
	}
}

// quadratureStep returns the count change for an edge on channel A given
// the levels of both channels right after the edge.
func quadratureStep(a, b gpio.Level) int64 {
	if a != b {
		return 1
	}
	return -1
}

// Degrees returns the cumulative wheel rotation in degrees.
func (e *Encoder) Degrees() float64 {
	return countsToDegrees(e.count.Load(), e.countsPerRev)
}

func countsToDegrees(count int64, countsPerRev float64) float64 {
	return float64(count) / countsPerRev * 360.0
}

// Close stops the watcher and releases the edge detection on pin A. Later
// calls return the first call's result.
func (e *Encoder) Close() error {
	e.closeOnce.Do(func() {
		close(e.stop)
		<-e.done
		e.closeErr = e.a.In(gpio.PullNoChange, gpio.NoEdge)
		log.Printf("%s encoder: stopped at %d counts", e.name, e.count.Load())
	})
	return e.closeErr
}

type encoderWheels struct {
	MotionSensorSource
	forward WheelReader
	lateral WheelReader
}

// WithWheels returns a source that takes orientation and geometry from src
// and wheel rotation from the given readers.
func WithWheels(src MotionSensorSource, forward, lateral WheelReader) MotionSensorSource {
	return &encoderWheels{MotionSensorSource: src, forward: forward, lateral: lateral}
}

func (w *encoderWheels) Wheel(id WheelID) float64 {
	if id == LateralWheel {
		return w.lateral.Degrees()
	}
	return w.forward.Degrees()
}

// Ready forwards to the wrapped source. Sources without a startup phase
// are always ready.
func (w *encoderWheels) Ready() bool {
	if r, ok := w.MotionSensorSource.(Readier); ok {
		return r.Ready()
	}
	return true
}
