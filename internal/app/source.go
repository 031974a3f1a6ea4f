// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

// closers releases every opened device in reverse order.
type closers []io.Closer

func (c closers) Close() error {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		err = multierr.Append(err, c[i].Close())
	}
	return err
}

// newSensorSource builds the motion sensor source selected by
// SENSOR_SOURCE and WHEEL_SOURCE. The returned closer releases whatever
// was opened, even when an error is returned.
func newSensorSource(cfg *config.Config, clk clock.Clock) (sensors.MotionSensorSource, io.Closer, error) {
	var (
		src    sensors.MotionSensorSource
		opened closers
	)

	switch cfg.SensorSource {
	case config.SourceMock:
		log.Println("sensors: using mock motion source")
		src = sensors.NewMockSource(cfg.Geometry(), clk)
	case config.SourceSerial:
		bridge, err := sensors.OpenSerialBridge(cfg.SerialPort, cfg.SerialBaudRate, cfg.Geometry())
		if err != nil {
			return nil, opened, err
		}
		opened = append(opened, bridge)
		src = bridge
	case config.SourceIMU:
		imu, err := sensors.OpenIMU(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.Geometry(), cfg.SamplePeriod())
		if err != nil {
			return nil, opened, err
		}
		opened = append(opened, imu)
		src = imu
	default:
		return nil, opened, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
	}

	if cfg.WheelSource != config.WheelsGPIO {
		return src, opened, nil
	}

	forward, err := sensors.OpenEncoder("forward", cfg.EncoderForwardPinA, cfg.EncoderForwardPinB, cfg.EncoderCountsPerRev)
	if err != nil {
		return nil, opened, err
	}
	opened = append(opened, forward)

	lateral, err := sensors.OpenEncoder("lateral", cfg.EncoderLateralPinA, cfg.EncoderLateralPinB, cfg.EncoderCountsPerRev)
	if err != nil {
		return nil, opened, err
	}
	opened = append(opened, lateral)

	log.Println("sensors: tracking wheels read from GPIO encoders")
	return sensors.WithWheels(src, forward, lateral), opened, nil
}

const (
	// sensorReadyTimeout bounds the wait for a source's first sample.
	sensorReadyTimeout = 2 * time.Second
	sensorReadyPoll    = 10 * time.Millisecond
)

// waitForSensors blocks until src reports data, timeout passes or ctx is
// cancelled. It reports whether the source is ready.
func waitForSensors(ctx context.Context, src sensors.MotionSensorSource, clk clock.Clock, timeout time.Duration) bool {
	r, ok := src.(sensors.Readier)
	if !ok {
		return true
	}

	deadline := clk.Timer(timeout)
	defer deadline.Stop()
	ticker := clk.Ticker(sensorReadyPoll)
	defer ticker.Stop()

	for !r.Ready() {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
		}
	}
	return true
}
