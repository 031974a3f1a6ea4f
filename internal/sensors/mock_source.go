// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"

	"github.com/benbjohnson/clock"
)

// Mock motion profile: the robot drives forward at a constant speed while
// turning slowly, and crabs sideways back and forth.
const (
	mockForwardSpeed = 12.0 // distance units per second
	mockTurnRate     = 15.0 // degrees per second
	mockLateralSwing = 4.0  // peak lateral excursion
)

type mockSource struct {
	clk      clock.Clock
	start    int64
	geometry Geometry
}

// NewMockSource creates a mock motion source that generates smooth
// changing values derived from the elapsed time on clk.
func NewMockSource(geometry Geometry, clk clock.Clock) MotionSensorSource {
	if clk == nil {
		clk = clock.New()
	}
	return &mockSource{clk: clk, start: clk.Now().UnixNano(), geometry: geometry}
}

func (m *mockSource) elapsed() float64 {
	return float64(m.clk.Now().UnixNano()-m.start) / 1e9
}

func (m *mockSource) Heading() float64 {
	return mockTurnRate * m.elapsed()
}

func (m *mockSource) Pitch() float64 {
	return 2 * math.Sin(m.elapsed())
}

func (m *mockSource) Roll() float64 {
	return 1.5 * math.Cos(m.elapsed()*0.7)
}

func (m *mockSource) Wheel(id WheelID) float64 {
	t := m.elapsed()
	var distance float64
	switch id {
	case ForwardWheel:
		distance = mockForwardSpeed * t
	case LateralWheel:
		distance = mockLateralSwing * math.Sin(t*0.5)
	}
	return DistanceToDegrees(distance, m.geometry.Diameter)
}

func (m *mockSource) WheelDiameter() float64 {
	return m.geometry.Diameter
}

func (m *mockSource) WheelOffset(id WheelID) float64 {
	return m.geometry.Offset(id)
}

// DistanceToDegrees converts a rolled distance into encoder degrees for a
// wheel of the given diameter.
func DistanceToDegrees(distance, diameter float64) float64 {
	if diameter == 0 {
		return 0
	}
	return distance / (diameter * math.Pi) * 360.0
}
