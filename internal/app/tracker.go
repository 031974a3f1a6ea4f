// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/recorder"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

// RunTracker runs odometry on the configured sensors and serves the pose
// over MQTT, HTTP and the status display until ctx is cancelled.
func RunTracker(ctx context.Context) (err error) {
	cfg := config.Get()

	logFile := SetupLogging(cfg.LogFile)
	defer func() { err = multierr.Append(err, logFile.Close()) }()

	clk := clock.New()

	// --- sensors ---
	src, devices, err := newSensorSource(cfg, clk)
	defer func() { err = multierr.Append(err, devices.Close()) }()
	if err != nil {
		return fmt.Errorf("failed to open sensors: %w", err)
	}
	// the tracker calibrates against the first readings
	if waitForSensors(ctx, src, clk, sensorReadyTimeout) {
		log.Println("sensors: receiving data")
	} else {
		log.Printf("sensors: WARNING: no data after %s, starting from zero readings", sensorReadyTimeout)
	}

	// --- tracker ---
	side, err := cfg.Side()
	if err != nil {
		return err
	}
	tracker, err := odometry.New(odometry.Config{
		Side:    side,
		Goals:   cfg.Goals,
		Sensors: src,
		Period:  cfg.SamplePeriod(),
		Clock:   clk,
	})
	if err != nil {
		return err
	}
	log.Printf("tracker: starting on %s side at %s", side, tracker.Pose())

	// --- optional pose recorder ---
	var (
		sink    telemetry.Sink
		history HistoryReader
	)
	if cfg.RecorderPath != "" {
		rec, openErr := recorder.Open(cfg.RecorderPath)
		if openErr != nil {
			return fmt.Errorf("failed to open recorder: %w", openErr)
		}
		defer func() { err = multierr.Append(err, rec.Close()) }()
		sink, history = rec, rec
		log.Printf("tracker: recording poses to %s", cfg.RecorderPath)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTracker).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("tracker: connected to MQTT broker at %s", cfg.MQTTBroker)

	publisher := telemetry.NewPublisher(client, tracker, telemetry.Options{
		TopicPose:     cfg.TopicPose,
		TopicAttitude: cfg.TopicAttitude,
		Period:        cfg.PublishPeriod(),
		Sink:          sink,
		Clock:         clk,
	})
	web := NewWebServer(tracker, history, publisher.RunID(), cfg.PublishPeriod())

	// --- sampling loop ---
	if err := tracker.Start(); err != nil {
		return err
	}
	defer tracker.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return publisher.Run(gctx)
	})
	g.Go(func() error {
		return web.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.WebServerPort))
	})
	if cfg.DisplayEnabled {
		g.Go(func() error {
			// a missing screen must not take odometry down with it
			if err := RunDisplay(gctx, tracker, cfg.DisplayI2CAddr, cfg.DisplayPeriod()); err != nil {
				log.Printf("display: disabled: %v", err)
			}
			return nil
		})
	}

	err = g.Wait()
	log.Printf("tracker: shutting down at %s", tracker.Pose())
	return err
}
