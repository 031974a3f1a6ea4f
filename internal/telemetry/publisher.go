// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry publishes tracker snapshots over MQTT.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// PoseReader is satisfied by *odometry.Tracker.
type PoseReader interface {
	Pose() odometry.Pose
	Attitude() odometry.Attitude
}

// Sink receives every published pose, e.g. *recorder.Recorder.
type Sink interface {
	Record(ctx context.Context, runID string, at time.Time, pose odometry.Pose) error
}

// PoseMessage is the JSON payload on the pose topic.
type PoseMessage struct {
	RunID      string    `json:"run_id"`
	Time       time.Time `json:"time"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Heading    float64   `json:"heading"`
	HeadingDeg float64   `json:"heading_deg"`
}

// AttitudeMessage is the JSON payload on the attitude topic.
type AttitudeMessage struct {
	RunID    string    `json:"run_id"`
	Time     time.Time `json:"time"`
	Rotation float64   `json:"rotation"`
	Pitch    float64   `json:"pitch"`
	Roll     float64   `json:"roll"`
}

// NewPoseMessage builds the pose payload for one sample.
func NewPoseMessage(runID string, at time.Time, p odometry.Pose) PoseMessage {
	return PoseMessage{
		RunID:      runID,
		Time:       at,
		X:          p.X,
		Y:          p.Y,
		Heading:    p.Heading,
		HeadingDeg: p.HeadingDegrees(),
	}
}

// Options configures a Publisher. Zero values fall back to defaults.
type Options struct {
	TopicPose     string
	TopicAttitude string
	Period        time.Duration
	Sink          Sink
	Clock         clock.Clock
	Logf          func(format string, v ...interface{})
}

// Publisher periodically publishes the tracker state. Each Publisher gets
// a fresh run ID so consumers can tell restarts apart.
type Publisher struct {
	client Client
	reader PoseReader
	opts   Options
	runID  string
}

// NewPublisher returns a publisher for reader over client.
func NewPublisher(client Client, reader PoseReader, opts Options) *Publisher {
	if opts.TopicPose == "" {
		opts.TopicPose = "odometry/pose"
	}
	if opts.TopicAttitude == "" {
		opts.TopicAttitude = "odometry/attitude"
	}
	if opts.Period <= 0 {
		opts.Period = 100 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Publisher{
		client: client,
		reader: reader,
		opts:   opts,
		runID:  uuid.NewString(),
	}
}

// RunID identifies this publisher's messages and recorded samples.
func (p *Publisher) RunID() string { return p.runID }

// PublishOnce publishes the current pose and attitude and hands the pose to
// the sink. Every step is attempted; their errors are combined.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	now := p.opts.Clock.Now()
	pose := p.reader.Pose()
	att := p.reader.Attitude()

	var err error
	err = multierr.Append(err, p.publish(p.opts.TopicPose, NewPoseMessage(p.runID, now, pose)))
	err = multierr.Append(err, p.publish(p.opts.TopicAttitude, AttitudeMessage{
		RunID:    p.runID,
		Time:     now,
		Rotation: att.Rotation,
		Pitch:    att.Pitch,
		Roll:     att.Roll,
	}))
	if p.opts.Sink != nil {
		err = multierr.Append(err, p.opts.Sink.Record(ctx, p.runID, now, pose))
	}
	return err
}

func (p *Publisher) publish(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal error (%s): %w", topic, err)
	}
	if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, token.Error())
	}
	return nil
}

// Run publishes on every period until ctx is cancelled. Publish failures
// are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := p.opts.Clock.Ticker(p.opts.Period)
	defer ticker.Stop()

	p.opts.Logf("telemetry: publishing run %s every %s", p.runID, p.opts.Period)
	for {
		select {
		case <-ctx.Done():
			p.opts.Logf("telemetry: stopped")
			return nil
		case <-ticker.C:
			if err := p.PublishOnce(ctx); err != nil {
				p.opts.Logf("telemetry: %v", err)
			}
		}
	}
}
