// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"fmt"
	"math"
)

// Pose is the robot's position and heading in the field frame. Heading is
// in radians; the zero heading points along +Y.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// HeadingDegrees returns the heading in degrees.
func (p Pose) HeadingDegrees() float64 {
	return radToDeg(p.Heading)
}

func (p Pose) String() string {
	return fmt.Sprintf("x=%.2f y=%.2f heading=%.1f°", p.X, p.Y, p.HeadingDegrees())
}

// Attitude is the noise-gated orientation accumulated by the sampling
// loop, in degrees.
type Attitude struct {
	Rotation float64 `json:"rotation"`
	Pitch    float64 `json:"pitch"`
	Roll     float64 `json:"roll"`
}

// StartingConfiguration is where the robot sits when odometry is
// calibrated. Heading is in radians.
type StartingConfiguration struct {
	X       float64
	Y       float64
	Heading float64
}

// CalibrationOffset is added to the starting configuration on calibration.
type CalibrationOffset struct {
	X       float64
	Y       float64
	Heading float64
}

// Goal is a named reference point on the field, kept for consumers that
// aim at or drive to it.
type Goal struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// DegreesToRadians converts an angle in degrees to radians.
func DegreesToRadians(deg float64) float64 { return degToRad(deg) }
