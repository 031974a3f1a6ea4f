// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// WheelDistance converts cumulative encoder degrees into distance rolled
// by a wheel of the given diameter.
func WheelDistance(degrees, diameter float64) float64 {
	return degrees / 360.0 * (diameter * math.Pi)
}

// Chord returns the straight-line length of a wheel's path over one
// sample. While turning, the path is an arc about the instantaneous center
// of rotation whose radius is corrected by the wheel's mounting offset.
// Without a heading change the path is the rolled distance itself.
func Chord(delta, deltaHeading, offset float64) float64 {
	if deltaHeading == 0 {
		return delta
	}
	radius := delta/deltaHeading + offset
	return 2 * radius * math.Sin(deltaHeading/2)
}

// Displacement projects both wheel chords into the field frame using the
// mid-turn heading.
func Displacement(heading, deltaHeading, forwardChord, lateralChord float64) r2.Vec {
	sin, cos := math.Sincos(heading + deltaHeading/2)
	return r2.Add(
		r2.Vec{X: forwardChord * sin, Y: forwardChord * cos},
		r2.Vec{X: lateralChord * cos, Y: lateralChord * -sin},
	)
}

// Motion is what one sample measured: wheel travel in distance units and
// the heading change in radians.
type Motion struct {
	Forward      float64
	Lateral      float64
	DeltaHeading float64
}

// Integrate advances p by one sample of motion.
func Integrate(p Pose, m Motion, forwardOffset, lateralOffset float64) Pose {
	forwardChord := Chord(m.Forward, m.DeltaHeading, forwardOffset)
	lateralChord := Chord(m.Lateral, m.DeltaHeading, lateralOffset)

	d := Displacement(p.Heading, m.DeltaHeading, forwardChord, lateralChord)
	return Pose{
		X:       p.X + d.X,
		Y:       p.Y + d.Y,
		Heading: p.Heading + m.DeltaHeading,
	}
}
