// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

const eps = 1e-9

func TestNoiseGate(t *testing.T) {
	tests := []struct {
		name     string
		last     float64
		current  float64
		expected float64
	}{
		{"no change", 10, 10, 0},
		{"jitter up", 10, 10.009, 0},
		{"jitter down", 10, 9.991, 0},
		{"motion up", 10, 10.5, 0.5},
		{"motion down", 10, 9.5, -0.5},
		{"at threshold", 0, NoiseThreshold, NoiseThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, gate(tt.current, tt.last), eps)
		})
	}
}

func TestChannelIgnoresJitter(t *testing.T) {
	c := Channel{}
	c.Update(5)
	assert.InDelta(t, 5.0, c.Filtered, eps)

	for _, raw := range []float64{5.004, 4.998, 5.009, 5.001} {
		before := c.Filtered
		assert.Zero(t, c.Update(raw))
		assert.Equal(t, before, c.Filtered, "reading %v moved the accumulator", raw)
		assert.Equal(t, raw, c.Last)
		assert.Equal(t, raw, c.Current)
	}
}

func TestChannelAbsorbsSlowDrift(t *testing.T) {
	c := Channel{}
	// each step is below the threshold even though the total is not
	for _, raw := range []float64{0.006, 0.012, 0.018, 0.024} {
		c.Update(raw)
	}
	assert.Zero(t, c.Filtered)
	assert.InDelta(t, 0.024, c.Last, eps)
}

func TestWheelTrackDeltas(t *testing.T) {
	w := WheelTrack{}
	assert.InDelta(t, 3.0, w.Update(3), eps)
	assert.InDelta(t, 1.5, w.Update(4.5), eps)
	assert.InDelta(t, -0.5, w.Update(4), eps)
	assert.InDelta(t, 4.0, w.Last, eps)
}

func TestWheelDistance(t *testing.T) {
	assert.InDelta(t, 2.75*math.Pi, WheelDistance(360, 2.75), eps)
	assert.InDelta(t, 2.75*math.Pi/4, WheelDistance(90, 2.75), eps)
	assert.InDelta(t, -2.75*math.Pi, WheelDistance(-360, 2.75), eps)
}

func TestChordStraightLine(t *testing.T) {
	assert.Equal(t, 2.5, Chord(2.5, 0, 4))
	assert.Equal(t, -1.0, Chord(-1, 0, 4))
}

func TestChordArc(t *testing.T) {
	tests := []struct {
		delta, dTheta, offset float64
	}{
		{1.0, 0.1, 0},
		{1.0, -0.1, 3.5},
		{0, 0.25, 4.5},
		{-2.0, 0.05, 1.25},
	}
	for _, tt := range tests {
		radius := tt.delta/tt.dTheta + tt.offset
		expected := 2 * radius * math.Sin(tt.dTheta/2)
		assert.InDelta(t, expected, Chord(tt.delta, tt.dTheta, tt.offset), eps)
	}
}

func TestChordConvergesToStraightLine(t *testing.T) {
	// a vanishing turn must not blow up the chord
	assert.InDelta(t, 2.0, Chord(2.0, 1e-12, 0), 1e-6)
}

func TestIntegrateStraightLine(t *testing.T) {
	for _, heading := range []float64{0, 0.3, -1.2, math.Pi} {
		start := Pose{X: 1, Y: -2, Heading: heading}
		next := Integrate(start, Motion{Forward: 2.0}, 4.5, 3.25)

		d := r2.Vec{X: next.X - start.X, Y: next.Y - start.Y}
		assert.InDelta(t, 2.0, r2.Norm(d), eps)
		assert.InDelta(t, math.Sin(heading), d.X/2.0, eps)
		assert.InDelta(t, math.Cos(heading), d.Y/2.0, eps)
		assert.Equal(t, heading, next.Heading)
	}
}

func TestIntegrateLateralWheel(t *testing.T) {
	next := Integrate(Pose{}, Motion{Lateral: 1.5}, 4.5, 3.25)
	assert.InDelta(t, 1.5, next.X, eps)
	assert.InDelta(t, 0.0, next.Y, eps)
}

func TestIntegrateArc(t *testing.T) {
	start := Pose{X: 3, Y: 4, Heading: 0.4}
	m := Motion{Forward: 1.2, Lateral: -0.3, DeltaHeading: 0.15}
	forwardOffset, lateralOffset := 4.5, 3.25

	fc := 2 * (m.Forward/m.DeltaHeading + forwardOffset) * math.Sin(m.DeltaHeading/2)
	lc := 2 * (m.Lateral/m.DeltaHeading + lateralOffset) * math.Sin(m.DeltaHeading/2)
	angle := start.Heading + m.DeltaHeading/2

	next := Integrate(start, m, forwardOffset, lateralOffset)
	assert.InDelta(t, start.X+fc*math.Sin(angle)+lc*math.Cos(angle), next.X, eps)
	assert.InDelta(t, start.Y+fc*math.Cos(angle)-lc*math.Sin(angle), next.Y, eps)
	assert.InDelta(t, 0.55, next.Heading, eps)
}

func TestPureRotationAboutTrackingCenter(t *testing.T) {
	// Spinning in place rolls each wheel by offset*dTheta. The offset
	// correction must cancel that roll so the pose does not move.
	dTheta := 0.2
	m := Motion{Forward: -4.5 * dTheta, Lateral: -3.25 * dTheta, DeltaHeading: dTheta}
	next := Integrate(Pose{}, m, 4.5, 3.25)
	assert.InDelta(t, 0.0, next.X, eps)
	assert.InDelta(t, 0.0, next.Y, eps)
	assert.InDelta(t, dTheta, next.Heading, eps)
}
