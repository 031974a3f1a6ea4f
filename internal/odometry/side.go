// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package odometry

import (
	"fmt"
	"strings"
)

// StartingSide selects the starting configuration. The only
// implementations are RedAlliance, BlueAlliance and Skills; each carries
// its own coordinates.
type StartingSide interface {
	fmt.Stringer
	startingSide()
}

// RedAlliance starts the robot on the red alliance side.
type RedAlliance StartingConfiguration

// BlueAlliance starts the robot on the blue alliance side.
type BlueAlliance StartingConfiguration

// Skills starts the robot in the single-robot skills position.
type Skills StartingConfiguration

func (RedAlliance) startingSide()  {}
func (BlueAlliance) startingSide() {}
func (Skills) startingSide()       {}

func (RedAlliance) String() string  { return "red" }
func (BlueAlliance) String() string { return "blue" }
func (Skills) String() string       { return "skills" }

// StartingPositions holds the coordinates for every side.
type StartingPositions struct {
	Red    StartingConfiguration
	Blue   StartingConfiguration
	Skills StartingConfiguration
}

// SideByName picks the side variant named by name ("red", "blue" or
// "skills", case-insensitive) and attaches its coordinates.
func SideByName(name string, positions StartingPositions) (StartingSide, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "red":
		return RedAlliance(positions.Red), nil
	case "blue":
		return BlueAlliance(positions.Blue), nil
	case "skills":
		return Skills(positions.Skills), nil
	default:
		return nil, &ConfigurationError{Field: "starting side", Value: name}
	}
}

// resolveSide unpacks the coordinates carried by side. Anything other than
// the three value variants, nil included, is a configuration error.
func resolveSide(side StartingSide) (StartingConfiguration, error) {
	switch s := side.(type) {
	case RedAlliance:
		return StartingConfiguration(s), nil
	case BlueAlliance:
		return StartingConfiguration(s), nil
	case Skills:
		return StartingConfiguration(s), nil
	default:
		return StartingConfiguration{}, &ConfigurationError{Field: "starting side", Value: fmt.Sprintf("%T", side)}
	}
}
