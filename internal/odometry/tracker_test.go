// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

// fakeSource serves fixed readings that tests may change at any time.
type fakeSource struct {
	mu       sync.Mutex
	heading  float64
	pitch    float64
	roll     float64
	wheels   map[sensors.WheelID]float64
	geometry sensors.Geometry

	samples atomic.Int64
}

func newFakeSource(geometry sensors.Geometry) *fakeSource {
	return &fakeSource{wheels: map[sensors.WheelID]float64{}, geometry: geometry}
}

func (f *fakeSource) set(heading, forward, lateral float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heading = heading
	f.wheels[sensors.ForwardWheel] = forward
	f.wheels[sensors.LateralWheel] = lateral
}

func (f *fakeSource) Heading() float64 {
	f.samples.Inc()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heading
}

func (f *fakeSource) Pitch() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pitch
}

func (f *fakeSource) Roll() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roll
}

func (f *fakeSource) Wheel(id sensors.WheelID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wheels[id]
}

func (f *fakeSource) WheelDiameter() float64 { return f.geometry.Diameter }

func (f *fakeSource) WheelOffset(id sensors.WheelID) float64 { return f.geometry.Offset(id) }

// unitGeometry has a circumference of exactly 2, so 180 encoder degrees
// is one unit of travel.
var unitGeometry = sensors.Geometry{Diameter: 2 / math.Pi, ForwardOffset: 4.5, LateralOffset: 3.25}

func quiet(string, ...interface{}) {}

func newTestTracker(t *testing.T, side StartingSide, src sensors.MotionSensorSource, clk clock.Clock) *Tracker {
	t.Helper()
	tr, err := New(Config{Side: side, Sensors: src, Clock: clk, Logf: quiet})
	require.NoError(t, err)
	t.Cleanup(tr.Stop)
	return tr
}

func TestNewResolvesStartingSide(t *testing.T) {
	positions := StartingPositions{
		Red:    StartingConfiguration{X: 10, Y: 20, Heading: 0.5},
		Blue:   StartingConfiguration{X: -10, Y: 20, Heading: -0.5},
		Skills: StartingConfiguration{X: 0, Y: 5, Heading: 0},
	}
	tests := []struct {
		name     string
		expected StartingConfiguration
	}{
		{"red", positions.Red},
		{"BLUE", positions.Blue},
		{" skills ", positions.Skills},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, err := SideByName(tt.name, positions)
			require.NoError(t, err)

			tr := newTestTracker(t, side, newFakeSource(unitGeometry), clock.NewMock())
			assert.Equal(t, tt.expected, tr.StartingConfiguration())
			assert.Equal(t, Pose{X: tt.expected.X, Y: tt.expected.Y, Heading: tt.expected.Heading}, tr.Pose())
		})
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"nil side", Config{Sensors: src}},
		{"pointer variant", Config{Side: &RedAlliance{}, Sensors: src}},
		{"nil sensors", Config{Side: Skills{}}},
		{"negative period", Config{Side: Skills{}, Sensors: src, Period: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.cfg)
			assert.Nil(t, tr)
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestSideByNameUnknown(t *testing.T) {
	side, err := SideByName("green", StartingPositions{})
	assert.Nil(t, side)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "green")
}

func TestStoredReferences(t *testing.T) {
	chassis := struct{ name string }{"skid-steer"}
	goals := []Goal{{Name: "center", X: 70.5, Y: 70.5}}

	tr, err := New(Config{Side: Skills{}, Sensors: newFakeSource(unitGeometry), Goals: goals, Chassis: chassis, Logf: quiet})
	require.NoError(t, err)

	assert.Equal(t, chassis, tr.Chassis())
	assert.Equal(t, goals, tr.Goals())

	// callers cannot reach into the tracker's copy
	tr.Goals()[0].X = 0
	assert.Equal(t, 70.5, tr.Goals()[0].X)
}

func TestScenarioForwardWheelStraightLine(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clock.NewMock())

	// 360 degrees on a wheel with circumference 2 is 2.0 of travel
	assert.Zero(t, tr.Samples())
	src.set(0, 360, 0)
	tr.step(NewFilterState())
	assert.EqualValues(t, 1, tr.Samples())

	p := tr.Pose()
	assert.InDelta(t, 0.0, p.X, eps)
	assert.InDelta(t, 2.0, p.Y, eps)
	assert.Equal(t, 0.0, p.Heading)
	assert.Equal(t, p.X, tr.X())
	assert.Equal(t, p.Y, tr.Y())
	assert.Equal(t, p.Heading, tr.Heading())
}

func TestStepUsesCalibrationHeading(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, RedAlliance{Heading: math.Pi / 4}, src, clock.NewMock())

	src.set(0, 180, 0)
	tr.step(NewFilterState())

	p := tr.Pose()
	assert.InDelta(t, math.Sin(math.Pi/4), p.X, eps)
	assert.InDelta(t, math.Cos(math.Pi/4), p.Y, eps)
	assert.Equal(t, math.Pi/4, p.Heading)
}

func TestStepFollowsInertialHeading(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clock.NewMock())
	state := NewFilterState()

	src.set(90, 0, 0)
	tr.step(state)
	assert.InDelta(t, math.Pi/2, tr.Heading(), eps)
	assert.InDelta(t, 90.0, tr.HeadingDegrees(), eps)

	// jitter below the gate leaves the heading alone
	src.set(90.004, 0, 0)
	tr.step(state)
	assert.InDelta(t, math.Pi/2, tr.Heading(), eps)
	assert.InDelta(t, 90.0, tr.Attitude().Rotation, eps)

	// driving forward now moves along +X
	before := tr.Pose()
	src.set(90.004, 180, 0)
	tr.step(state)
	assert.InDelta(t, before.X+1.0, tr.X(), eps)
	assert.InDelta(t, before.Y, tr.Y(), eps)
}

func TestAttitudeTracksFilteredChannels(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clock.NewMock())
	state := NewFilterState()

	src.mu.Lock()
	src.pitch, src.roll = 3.5, -1.25
	src.mu.Unlock()
	tr.step(state)

	assert.Equal(t, Attitude{Rotation: 0, Pitch: 3.5, Roll: -1.25}, tr.Attitude())
}

func TestCalibrateIsIdempotent(t *testing.T) {
	start := StartingConfiguration{X: 12, Y: -3, Heading: 1.1}
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, BlueAlliance(start), src, clock.NewMock())

	src.set(30, 720, -180)
	tr.step(NewFilterState())
	require.NotEqual(t, start.X, tr.X())

	tr.Calibrate()
	first := tr.Pose()
	tr.Calibrate()
	second := tr.Pose()

	expected := Pose{X: start.X, Y: start.Y, Heading: start.Heading}
	assert.Equal(t, expected, first)
	assert.Equal(t, expected, second)
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	tr := newTestTracker(t, RedAlliance{X: 1, Y: 2, Heading: 3}, newFakeSource(unitGeometry), clock.NewMock())
	before := tr.Pose()

	tr.Stop()
	tr.Stop()

	assert.False(t, tr.Running())
	assert.Equal(t, before, tr.Pose())
}

func TestStartTwiceIsRejected(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clock.NewMock())

	require.NoError(t, tr.Start())
	assert.ErrorIs(t, tr.Start(), ErrAlreadyRunning)
	assert.True(t, tr.Running())

	require.Eventually(t, func() bool { return src.samples.Load() == 1 }, time.Second, time.Millisecond)
	tr.Stop()
	assert.False(t, tr.Running())
	assert.EqualValues(t, 1, src.samples.Load(), "a second loop was started")
}

func TestLoopSamplesOnEveryTick(t *testing.T) {
	clk := clock.NewMock()
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clk)

	require.NoError(t, tr.Start())
	require.Eventually(t, func() bool { return src.samples.Load() == 1 }, time.Second, time.Millisecond)

	src.set(0, 180, 0)
	clk.Add(DefaultPeriod)
	require.Eventually(t, func() bool { return src.samples.Load() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return math.Abs(tr.Y()-1.0) < eps }, time.Second, time.Millisecond)

	tr.Stop()
	frozen := tr.Pose()

	src.set(0, 540, 0)
	clk.Add(5 * DefaultPeriod)
	assert.EqualValues(t, 2, src.samples.Load())
	assert.Equal(t, frozen, tr.Pose())
}

func TestRestartBuildsFreshFilterState(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clock.NewMock())
	src.set(0, 180, 0)

	require.NoError(t, tr.Start())
	require.Eventually(t, func() bool { return src.samples.Load() == 1 }, time.Second, time.Millisecond)
	tr.Stop()
	assert.InDelta(t, 1.0, tr.Y(), eps)

	// the new loop starts from zeroed wheel bookkeeping, so the same
	// cumulative reading counts as travel again
	require.NoError(t, tr.Start())
	require.Eventually(t, func() bool { return src.samples.Load() == 2 }, time.Second, time.Millisecond)
	tr.Stop()
	assert.InDelta(t, 2.0, tr.Y(), eps)
	assert.EqualValues(t, 2, tr.Samples())
}

// lockstepSource moves both wheels by the same amount every sample while
// the heading stays at zero, so every committed pose has X == Y.
type lockstepSource struct {
	n atomic.Int64
}

func (s *lockstepSource) Heading() float64 {
	s.n.Inc()
	return 0
}

func (s *lockstepSource) Pitch() float64 { return 0 }

func (s *lockstepSource) Roll() float64 { return 0 }

func (s *lockstepSource) Wheel(sensors.WheelID) float64 { return float64(s.n.Load()) * 36 }

func (s *lockstepSource) WheelDiameter() float64 { return unitGeometry.Diameter }

func (s *lockstepSource) WheelOffset(sensors.WheelID) float64 { return 0 }

func TestConcurrentReadersSeeWholePoses(t *testing.T) {
	src := &lockstepSource{}
	tr, err := New(Config{Side: Skills{}, Sensors: src, Period: time.Millisecond, Logf: quiet})
	require.NoError(t, err)

	require.NoError(t, tr.Start())

	var (
		wg    sync.WaitGroup
		torn  atomic.Int64
		reads atomic.Int64
		stop  = make(chan struct{})
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := tr.Pose()
				if p.X != p.Y || p.Heading != 0 {
					torn.Inc()
				}
				reads.Inc()
			}
		}()
	}

	require.Eventually(t, func() bool { return src.n.Load() > 20 }, 5*time.Second, time.Millisecond)
	close(stop)
	wg.Wait()
	tr.Stop()

	assert.Zero(t, torn.Load())
	assert.Positive(t, reads.Load())
	assert.Greater(t, tr.Y(), 0.0)
}

func TestCalibrateWhileRunning(t *testing.T) {
	src := &lockstepSource{}
	start := StartingConfiguration{X: 5, Y: 5}
	tr, err := New(Config{Side: RedAlliance(start), Sensors: src, Period: time.Millisecond, Logf: quiet})
	require.NoError(t, err)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	for i := 0; i < 10; i++ {
		tr.Calibrate()
		p := tr.Pose()
		// a loop update may land right after calibration, but never half of one
		assert.Equal(t, p.X, p.Y)
		assert.GreaterOrEqual(t, p.X, start.X)
		time.Sleep(time.Millisecond)
	}
}

// Calibrate resets the pose but not the inertial reference, so the next
// sample turns the robot back to the sensor heading. The arc model reads
// that turn with no wheel travel as a swing about the mounting offsets.
func TestCalibrateAfterTurnRealignsOnNextSample(t *testing.T) {
	src := newFakeSource(unitGeometry)
	tr := newTestTracker(t, Skills{}, src, clock.NewMock())
	state := NewFilterState()

	src.set(90, 0, 0)
	tr.step(state)
	require.InDelta(t, math.Pi/2, tr.Heading(), eps)

	tr.Calibrate()
	assert.Equal(t, Pose{}, tr.Pose())

	// robot still, sensors unchanged
	tr.step(state)
	p := tr.Pose()
	assert.InDelta(t, math.Pi/2, p.Heading, eps)
	assert.InDelta(t, unitGeometry.ForwardOffset+unitGeometry.LateralOffset, p.X, eps)
	assert.InDelta(t, unitGeometry.ForwardOffset-unitGeometry.LateralOffset, p.Y, eps)
}
