// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// gyroLSBPerDPS is the MPU9250 gyro sensitivity at the power-on ±250°/s
// range.
const gyroLSBPerDPS = 131.0

// imuReader is the part of the MPU9250 driver the source polls.
type imuReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationZ() (int16, error)
}

// IMUSource reads an MPU9250 directly. Heading is the integrated yaw rate
// and pitch/roll come from the accelerometer tilt. The IMU carries no
// tracking wheels, so it is always combined with WithWheels.
type IMUSource struct {
	geometry Geometry
	imu      imuReader

	mu          sync.RWMutex
	heading     float64
	pitch, roll float64
	lastRead    time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenIMU initializes the MPU9250 on spiDev with chip select csPin and
// polls it every period.
func OpenIMU(spiDev, csPin string, geometry Geometry, period time.Duration) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	// Self-test and calibration are advisory; odometry still runs on an
	// uncalibrated gyro.
	if _, err := dev.SelfTest(); err != nil {
		log.Printf("IMU: WARNING: self-test failed: %v", err)
	}
	log.Println("IMU: calibrating gyro, keep the robot still")
	if err := dev.Calibrate(); err != nil {
		log.Printf("IMU: WARNING: calibration failed: %v", err)
	} else {
		log.Println("IMU: calibration complete")
	}

	return newIMUSource(dev, geometry, clock.New(), period), nil
}

func newIMUSource(imu imuReader, geometry Geometry, clk clock.Clock, period time.Duration) *IMUSource {
	s := &IMUSource{
		geometry: geometry,
		imu:      imu,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.poll(clk.Ticker(period))
	return s
}

func (s *IMUSource) poll(ticker *clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if err := s.read(now); err != nil {
				log.Printf("IMU: read error: %v", err)
			}
		}
	}
}

// read samples the device once and advances the integrated heading.
func (s *IMUSource) read(now time.Time) error {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return fmt.Errorf("accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return fmt.Errorf("accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return fmt.Errorf("accel Z: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return fmt.Errorf("gyro Z: %w", err)
	}

	pitch, roll := tiltFromAccel(float64(ax), float64(ay), float64(az))

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastRead.IsZero() {
		s.heading += yawDelta(gz, now.Sub(s.lastRead))
	}
	s.lastRead = now
	s.pitch, s.roll = pitch, roll
	return nil
}

// yawDelta converts a raw Z rate over dt into degrees of heading change.
// The gyro is counter-clockwise positive seen from above; heading is
// clockwise positive.
func yawDelta(gz int16, dt time.Duration) float64 {
	return -float64(gz) / gyroLSBPerDPS * dt.Seconds()
}

// tiltFromAccel computes pitch and roll in degrees from the gravity
// vector:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func tiltFromAccel(ax, ay, az float64) (pitch, roll float64) {
	roll = math.Atan2(ay, az) * 180.0 / math.Pi
	pitch = math.Atan2(-ax, math.Sqrt(ay*ay+az*az)) * 180.0 / math.Pi
	return pitch, roll
}

func (s *IMUSource) Heading() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heading
}

func (s *IMUSource) Pitch() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pitch
}

func (s *IMUSource) Roll() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roll
}

// Wheel always reports zero; the IMU has no wheels.
func (s *IMUSource) Wheel(WheelID) float64 { return 0 }

func (s *IMUSource) WheelDiameter() float64 { return s.geometry.Diameter }

func (s *IMUSource) WheelOffset(id WheelID) float64 { return s.geometry.Offset(id) }

// Close stops polling. It is safe to call more than once.
func (s *IMUSource) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
