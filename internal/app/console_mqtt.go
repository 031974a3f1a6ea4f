// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/odometry_computer/internal/config"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

func formatPoseLine(p telemetry.PoseMessage) string {
	return fmt.Sprintf("[POSE] X=%8.2f  Y=%8.2f  HDG=%7.2f°  run=%s", p.X, p.Y, p.HeadingDeg, p.RunID)
}

func formatAttitudeLine(a telemetry.AttitudeMessage) string {
	return fmt.Sprintf("[ATT ] ROT=%7.2f  PITCH=%6.2f  ROLL=%6.2f", a.Rotation, a.Pitch, a.Roll)
}

// RunConsoleMQTT prints every pose and attitude message until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p telemetry.PoseMessage
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		fmt.Println(formatPoseLine(p))
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPose)

	attToken := client.Subscribe(cfg.TopicAttitude, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var a telemetry.AttitudeMessage
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			log.Printf("console: attitude unmarshal error: %v", err)
			return
		}
		fmt.Println(formatAttitudeLine(a))
	})
	attToken.Wait()
	if attToken.Error() != nil {
		return attToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicAttitude)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
