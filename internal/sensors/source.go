// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "fmt"

// WheelID names one of the two tracking wheels.
type WheelID int

const (
	// ForwardWheel rolls along the robot's forward axis and is mounted
	// to the side of the tracking center.
	ForwardWheel WheelID = iota
	// LateralWheel rolls along the robot's lateral axis and is mounted
	// ahead of or behind the tracking center.
	LateralWheel
)

func (w WheelID) String() string {
	switch w {
	case ForwardWheel:
		return "forward"
	case LateralWheel:
		return "lateral"
	default:
		return fmt.Sprintf("wheel(%d)", int(w))
	}
}

// MotionSensorSource is the read-only view of the robot's motion sensors.
//
// Orientation readings are absolute and in degrees. Wheel readings are the
// cumulative encoder rotation in degrees since the encoder was last reset.
// Implementations never fail a read: when the hardware misbehaves they keep
// returning the last valid value.
type MotionSensorSource interface {
	Heading() float64
	Pitch() float64
	Roll() float64
	Wheel(id WheelID) float64
	WheelDiameter() float64
	WheelOffset(id WheelID) float64
}

// Readier is implemented by sources that have no data until their first
// sample arrives.
type Readier interface {
	Ready() bool
}

// Geometry holds the static constants of the tracking wheel assembly.
// Offsets are the distance from the tracking center to each wheel's
// contact line, in the same unit as Diameter.
type Geometry struct {
	Diameter      float64
	ForwardOffset float64
	LateralOffset float64
}

// Offset returns the mounting offset for the given wheel.
func (g Geometry) Offset(id WheelID) float64 {
	if id == LateralWheel {
		return g.LateralOffset
	}
	return g.ForwardOffset
}
