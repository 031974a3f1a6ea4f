// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/sensors"
)

// Sensor source kinds for SENSOR_SOURCE.
const (
	SourceMock   = "mock"
	SourceSerial = "serial"
	SourceIMU    = "imu"
)

// Wheel source kinds for WHEEL_SOURCE.
const (
	WheelsSerial = "serial"
	WheelsGPIO   = "gpio"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDTracker string
	MQTTClientIDConsole string

	// Topics
	TopicPose     string
	TopicAttitude string

	// Sensor co-processor
	SensorSource   string // "mock", "serial" or "imu"
	SerialPort     string
	SerialBaudRate int

	// Direct IMU
	IMUSPIDevice string
	IMUCSPin     string

	// Tracking wheels
	WheelSource         string // "serial" or "gpio"
	EncoderForwardPinA  string
	EncoderForwardPinB  string
	EncoderLateralPinA  string
	EncoderLateralPinB  string
	EncoderCountsPerRev int
	WheelDiameter       float64
	WheelForwardOffset  float64
	WheelLateralOffset  float64

	// Timing
	SampleInterval  int // milliseconds
	PublishInterval int // milliseconds

	// Field
	StartingSide string // "red", "blue" or "skills"
	StartRed     odometry.StartingConfiguration
	StartBlue    odometry.StartingConfiguration
	StartSkills  odometry.StartingConfiguration
	Goals        []odometry.Goal

	// Web Server
	WebServerPort int

	// Display
	DisplayEnabled        bool
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Storage and logs
	RecorderPath string
	LogFile      string
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu lets many readers call Get concurrently.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		MQTTClientIDTracker:   "odometry-tracker",
		MQTTClientIDConsole:   "odometry-console",
		TopicPose:             "odometry/pose",
		TopicAttitude:         "odometry/attitude",
		SensorSource:          SourceMock,
		SerialBaudRate:        115200,
		WheelSource:           WheelsSerial,
		EncoderCountsPerRev:   720,
		WheelDiameter:         2.75,
		SampleInterval:        10,
		PublishInterval:       100,
		StartingSide:          "skills",
		WebServerPort:         8080,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Goal order in the file is not meaningful; keep it stable for consumers.
	sort.Slice(cfg.Goals, func(i, j int) bool { return cfg.Goals[i].Name < cfg.Goals[j].Name })

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	if name, ok := strings.CutPrefix(key, "GOAL_"); ok {
		x, y, err := parsePoint(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		c.Goals = append(c.Goals, odometry.Goal{Name: strings.ToLower(name), X: x, Y: y})
		return nil
	}

	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_ATTITUDE":
		c.TopicAttitude = value

	// Sensor co-processor
	case "SENSOR_SOURCE":
		if value != SourceMock && value != SourceSerial && value != SourceIMU {
			return fmt.Errorf("SENSOR_SOURCE must be %q, %q or %q, got %q", SourceMock, SourceSerial, SourceIMU, value)
		}
		c.SensorSource = value
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parsePositiveInt(key, value)

	// Direct IMU
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Tracking wheels
	case "WHEEL_SOURCE":
		if value != WheelsSerial && value != WheelsGPIO {
			return fmt.Errorf("WHEEL_SOURCE must be %q or %q, got %q", WheelsSerial, WheelsGPIO, value)
		}
		c.WheelSource = value
	case "ENCODER_FORWARD_PIN_A":
		c.EncoderForwardPinA = value
	case "ENCODER_FORWARD_PIN_B":
		c.EncoderForwardPinB = value
	case "ENCODER_LATERAL_PIN_A":
		c.EncoderLateralPinA = value
	case "ENCODER_LATERAL_PIN_B":
		c.EncoderLateralPinB = value
	case "ENCODER_COUNTS_PER_REV":
		c.EncoderCountsPerRev, err = parsePositiveInt(key, value)
	case "WHEEL_DIAMETER":
		c.WheelDiameter, err = parseFloat(key, value)
		if err == nil && c.WheelDiameter <= 0 {
			err = fmt.Errorf("WHEEL_DIAMETER must be positive, got %v", c.WheelDiameter)
		}
	case "WHEEL_FORWARD_OFFSET":
		c.WheelForwardOffset, err = parseFloat(key, value)
	case "WHEEL_LATERAL_OFFSET":
		c.WheelLateralOffset, err = parseFloat(key, value)

	// Timing
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parsePositiveInt(key, value)
	case "PUBLISH_INTERVAL":
		c.PublishInterval, err = parsePositiveInt(key, value)

	// Field
	case "STARTING_SIDE":
		c.StartingSide = strings.ToLower(value)
	case "START_RED":
		c.StartRed, err = parseStart(key, value)
	case "START_BLUE":
		c.StartBlue, err = parseStart(key, value)
	case "START_SKILLS":
		c.StartSkills, err = parseStart(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parsePositiveInt(key, value)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parsePositiveInt(key, value)

	// Storage and logs
	case "RECORDER_PATH":
		c.RecorderPath = value
	case "LOG_FILE":
		c.LogFile = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parsePositiveInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloats(value string, n int) ([]float64, error) {
	fields := strings.Split(value, ",")
	if len(fields) != n {
		return nil, fmt.Errorf("want %d comma separated values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parsePoint(value string) (float64, float64, error) {
	v, err := parseFloats(value, 2)
	if err != nil {
		return 0, 0, err
	}
	return v[0], v[1], nil
}

// parseStart reads "x,y,heading" with the heading in degrees.
func parseStart(key, value string) (odometry.StartingConfiguration, error) {
	v, err := parseFloats(value, 3)
	if err != nil {
		return odometry.StartingConfiguration{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return odometry.StartingConfiguration{
		X:       v[0],
		Y:       v[1],
		Heading: odometry.DegreesToRadians(v[2]),
	}, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.SensorSource == SourceSerial && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required when SENSOR_SOURCE=%s", SourceSerial)
	}
	if c.SensorSource == SourceIMU {
		if c.IMUSPIDevice == "" || c.IMUCSPin == "" {
			return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required when SENSOR_SOURCE=%s", SourceIMU)
		}
		if c.WheelSource != WheelsGPIO {
			return fmt.Errorf("SENSOR_SOURCE=%s has no wheel data, set WHEEL_SOURCE=%s", SourceIMU, WheelsGPIO)
		}
	}
	if c.WheelSource == WheelsGPIO {
		if c.EncoderForwardPinA == "" || c.EncoderForwardPinB == "" ||
			c.EncoderLateralPinA == "" || c.EncoderLateralPinB == "" {
			return fmt.Errorf("all ENCODER_*_PIN_* keys are required when WHEEL_SOURCE=%s", WheelsGPIO)
		}
	}
	if _, err := c.Side(); err != nil {
		return err
	}
	return nil
}

// Side builds the starting side variant selected by STARTING_SIDE.
func (c *Config) Side() (odometry.StartingSide, error) {
	return odometry.SideByName(c.StartingSide, odometry.StartingPositions{
		Red:    c.StartRed,
		Blue:   c.StartBlue,
		Skills: c.StartSkills,
	})
}

// Geometry returns the tracking wheel constants.
func (c *Config) Geometry() sensors.Geometry {
	return sensors.Geometry{
		Diameter:      c.WheelDiameter,
		ForwardOffset: c.WheelForwardOffset,
		LateralOffset: c.WheelLateralOffset,
	}
}

// SamplePeriod returns SAMPLE_INTERVAL as a duration.
func (c *Config) SamplePeriod() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

// PublishPeriod returns PUBLISH_INTERVAL as a duration.
func (c *Config) PublishPeriod() time.Duration {
	return time.Duration(c.PublishInterval) * time.Millisecond
}

// DisplayPeriod returns DISPLAY_UPDATE_INTERVAL as a duration.
func (c *Config) DisplayPeriod() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file; later calls return its result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
