// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

// mockGeometry is a typical tracking wheel layout: 2.75" wheels, the
// forward wheel 4.5" right of center and the lateral wheel 3.25" behind.
var mockGeometry = sensors.Geometry{Diameter: 2.75, ForwardOffset: 4.5, LateralOffset: 3.25}

// RunMockConsole drives a tracker from the simulated source and prints the
// pose every 100ms. No broker or hardware is needed.
func RunMockConsole(ctx context.Context, out io.Writer) error {
	return runMockConsole(ctx, out, clock.New(), 100*time.Millisecond)
}

func runMockConsole(ctx context.Context, out io.Writer, clk clock.Clock, every time.Duration) error {
	tracker, err := odometry.New(odometry.Config{
		Side:    odometry.Skills{},
		Sensors: sensors.NewMockSource(mockGeometry, clk),
		Clock:   clk,
	})
	if err != nil {
		return err
	}
	if err := tracker.Start(); err != nil {
		return err
	}
	defer tracker.Stop()

	ticker := clk.Ticker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p := tracker.Pose()
			a := tracker.Attitude()
			fmt.Fprintf(out, "X=%8.2f  Y=%8.2f  HDG=%7.2f  PITCH=%6.2f  ROLL=%6.2f\n",
				p.X, p.Y, p.HeadingDegrees(), a.Pitch, a.Roll)
		}
	}
}
