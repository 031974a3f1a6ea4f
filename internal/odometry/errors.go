// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("odometry: invalid configuration")
	// ErrAlreadyRunning is returned by Start when the sampling loop is active.
	ErrAlreadyRunning = errors.New("odometry: tracker already running")
)

// ConfigurationError reports a tracker setting that cannot be used.
type ConfigurationError struct {
	Field string
	Value string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("odometry: invalid %s %q", e.Field, e.Value)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
