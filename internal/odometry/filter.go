// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import "math"

// NoiseThreshold is the smallest change between two samples, in the
// channel's unit, that counts as motion. Smaller changes are jitter.
const NoiseThreshold = 0.01

// gate returns current-last, or zero when the change is below the noise
// threshold.
func gate(current, last float64) float64 {
	d := current - last
	if math.Abs(d) < NoiseThreshold {
		return 0
	}
	return d
}

// Channel is the noise-gated accumulator for one orientation channel.
type Channel struct {
	Current  float64
	Last     float64
	Filtered float64
}

// Update feeds the next raw reading and returns the gated delta added to
// Filtered. Last always moves to raw, so slow drift below the threshold is
// never accumulated.
func (c *Channel) Update(raw float64) float64 {
	c.Current = raw
	d := gate(c.Current, c.Last)
	c.Filtered += d
	c.Last = c.Current
	return d
}

// WheelTrack remembers a tracking wheel's distance between samples.
type WheelTrack struct {
	Distance float64
	Last     float64
}

// Update records the wheel's cumulative distance and returns how far it
// rolled since the previous sample.
func (w *WheelTrack) Update(distance float64) float64 {
	w.Distance = distance
	d := w.Distance - w.Last
	w.Last = w.Distance
	return d
}

// FilterState is everything the sampling loop carries between iterations.
// Start builds a fresh one, so nothing leaks across start/stop cycles.
type FilterState struct {
	Rotation Channel
	Pitch    Channel
	Roll     Channel
	Forward  WheelTrack
	Lateral  WheelTrack
}

// NewFilterState returns a zeroed filter state.
func NewFilterState() *FilterState {
	return &FilterState{}
}

// Attitude returns the filtered orientation accumulators.
func (s *FilterState) Attitude() Attitude {
	return Attitude{
		Rotation: s.Rotation.Filtered,
		Pitch:    s.Pitch.Filtered,
		Roll:     s.Roll.Filtered,
	}
}
