// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

// DefaultPeriod is the sampling period used when Config.Period is zero.
const DefaultPeriod = 10 * time.Millisecond

// Config is what a Tracker is built from.
type Config struct {
	// Side selects the starting configuration.
	Side StartingSide
	// Goals are field reference points kept for consumers.
	Goals []Goal
	// Sensors supplies orientation and wheel readings.
	Sensors sensors.MotionSensorSource
	// Chassis is an opaque handle to the drive base, kept for consumers.
	// The pose math never touches it.
	Chassis any

	Period time.Duration
	Clock  clock.Clock
	Logf   func(format string, v ...interface{})
}

// Tracker estimates the robot pose by dead reckoning. A background loop is
// the only writer of the pose; any number of goroutines may read it.
type Tracker struct {
	start   StartingConfiguration
	offset  CalibrationOffset
	goals   []Goal
	src     sensors.MotionSensorSource
	chassis any
	period  time.Duration
	clock   clock.Clock
	logf    func(format string, v ...interface{})

	// pose and attitude are immutable snapshots swapped whole.
	pose     atomic.Pointer[Pose]
	attitude atomic.Pointer[Attitude]
	samples  atomic.Int64
	// writeMu serialises pose writers: the loop and Calibrate.
	writeMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New resolves the starting side and returns a tracker anchored at the
// starting configuration. The sampling loop is not started.
func New(cfg Config) (*Tracker, error) {
	start, err := resolveSide(cfg.Side)
	if err != nil {
		return nil, err
	}
	if cfg.Sensors == nil {
		return nil, &ConfigurationError{Field: "sensor source", Value: "<nil>"}
	}
	if cfg.Period < 0 {
		return nil, &ConfigurationError{Field: "sampling period", Value: cfg.Period.String()}
	}

	t := &Tracker{
		start:   start,
		goals:   append([]Goal(nil), cfg.Goals...),
		src:     cfg.Sensors,
		chassis: cfg.Chassis,
		period:  cfg.Period,
		clock:   cfg.Clock,
		logf:    cfg.Logf,
	}
	if t.period == 0 {
		t.period = DefaultPeriod
	}
	if t.clock == nil {
		t.clock = clock.New()
	}
	if t.logf == nil {
		t.logf = log.Printf
	}

	t.attitude.Store(&Attitude{})
	t.Calibrate()
	return t, nil
}

// Start launches the sampling loop. It returns ErrAlreadyRunning if the
// loop is already active.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := t.clock.Ticker(t.period)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.run(ctx, ticker, NewFilterState(), t.done)
	t.logf("odometry: sampling loop started (period %s, start %s)", t.period, t.Pose())
	return nil
}

// Stop cancels the sampling loop and waits for it to exit. The pose keeps
// its last value. Stop on an idle tracker does nothing.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.cancel()
	<-t.done

	t.running = false
	t.cancel = nil
	t.done = nil
	t.logf("odometry: sampling loop stopped at %s", t.Pose())
}

// Running reports whether the sampling loop is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Calibrate zeroes the calibration offsets and moves the pose back to the
// starting configuration. It is safe to call while the loop runs.
func (t *Tracker) Calibrate() {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.offset = CalibrationOffset{}
	t.pose.Store(&Pose{
		X:       t.start.X + t.offset.X,
		Y:       t.start.Y + t.offset.Y,
		Heading: t.start.Heading + t.offset.Heading,
	})
}

func (t *Tracker) run(ctx context.Context, ticker *clock.Ticker, state *FilterState, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		t.step(state)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// step runs one sampling iteration against state.
func (t *Tracker) step(state *FilterState) {
	state.Rotation.Update(t.src.Heading())
	state.Pitch.Update(t.src.Pitch())
	state.Roll.Update(t.src.Roll())

	diameter := t.src.WheelDiameter()
	forward := state.Forward.Update(WheelDistance(t.src.Wheel(sensors.ForwardWheel), diameter))
	lateral := state.Lateral.Update(WheelDistance(t.src.Wheel(sensors.LateralWheel), diameter))

	attitude := state.Attitude()
	t.attitude.Store(&attitude)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	current := *t.pose.Load()
	// The inertial sensor is authoritative for rotation. Its accumulated
	// reading is relative to the calibration heading.
	reference := t.start.Heading + t.offset.Heading + degToRad(state.Rotation.Filtered)
	next := Integrate(current, Motion{
		Forward:      forward,
		Lateral:      lateral,
		DeltaHeading: reference - current.Heading,
	}, t.src.WheelOffset(sensors.ForwardWheel), t.src.WheelOffset(sensors.LateralWheel))
	t.pose.Store(&next)
	t.samples.Inc()
}

// Samples returns how many sampling iterations have completed since New.
func (t *Tracker) Samples() int64 {
	return t.samples.Load()
}

// Pose returns a consistent snapshot of the current pose.
func (t *Tracker) Pose() Pose {
	return *t.pose.Load()
}

// X returns the current X coordinate.
func (t *Tracker) X() float64 { return t.Pose().X }

// Y returns the current Y coordinate.
func (t *Tracker) Y() float64 { return t.Pose().Y }

// Heading returns the current heading in radians.
func (t *Tracker) Heading() float64 { return t.Pose().Heading }

// HeadingDegrees returns the current heading in degrees.
func (t *Tracker) HeadingDegrees() float64 { return t.Pose().HeadingDegrees() }

// Attitude returns the latest filtered orientation.
func (t *Tracker) Attitude() Attitude {
	return *t.attitude.Load()
}

// StartingConfiguration returns the resolved starting configuration.
func (t *Tracker) StartingConfiguration() StartingConfiguration { return t.start }

// Goals returns a copy of the field reference points.
func (t *Tracker) Goals() []Goal {
	return append([]Goal(nil), t.goals...)
}

// Chassis returns the drive base handle passed to New.
func (t *Tracker) Chassis() any { return t.chassis }
