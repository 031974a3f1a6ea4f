// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/odometry_computer/internal/app"
	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

func main() {
	configPath := flag.String("config", "odometry_config.txt", "path to the KEY=VALUE config file")
	port := flag.String("port", "", "serial port to write to (stdout when empty)")
	flag.Parse()

	log.Println("starting odometry-computer co-processor simulator")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	var out io.Writer = os.Stdout
	if *port != "" {
		p, err := sensors.OpenSerialPort(*port, cfg.SerialBaudRate)
		if err != nil {
			log.Fatalf("simulator: %v", err)
		}
		defer p.Close()
		out = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunBridgeSimulator(ctx, out, cfg.Geometry(), clock.New(), cfg.SamplePeriod()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
