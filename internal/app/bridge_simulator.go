// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

// RunBridgeSimulator plays the co-processor: it writes a $PODOM sentence
// built from the mock motion profile to out every period. Pointing it at
// one end of a serial loopback exercises the tracker's serial path without
// the robot.
func RunBridgeSimulator(ctx context.Context, out io.Writer, geometry sensors.Geometry, clk clock.Clock, period time.Duration) error {
	src := sensors.NewMockSource(geometry, clk)
	ticker := clk.Ticker(period)
	defer ticker.Stop()

	log.Printf("simulator: writing sentences every %s", period)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			line := sensors.FormatODOM(
				src.Heading(),
				src.Pitch(),
				src.Roll(),
				src.Wheel(sensors.ForwardWheel),
				src.Wheel(sensors.LateralWheel),
			)
			if _, err := io.WriteString(out, line+"\r\n"); err != nil {
				return err
			}
		}
	}
}
