// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	nmea "github.com/adrianmo/go-nmea"
)

// TypeODOM is the proprietary sentence type emitted by the sensor
// co-processor. A full sentence looks like
//
//	$PODOM,<heading>,<pitch>,<roll>,<forward>,<lateral>*hh
//
// where the orientation fields are in degrees and the wheel fields are
// cumulative encoder degrees.
const TypeODOM = "ODOM"

// ODOM is one sample from the sensor co-processor.
type ODOM struct {
	nmea.BaseSentence
	Heading float64
	Pitch   float64
	Roll    float64
	Forward float64
	Lateral float64
}

func init() {
	if err := nmea.RegisterParser(TypeODOM, parseODOM); err != nil {
		panic(fmt.Sprintf("sensors: register %s parser: %v", TypeODOM, err))
	}
}

func parseODOM(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeODOM)
	return ODOM{
		BaseSentence: s,
		Heading:      p.Float64(0, "heading"),
		Pitch:        p.Float64(1, "pitch"),
		Roll:         p.Float64(2, "roll"),
		Forward:      p.Float64(3, "forward wheel"),
		Lateral:      p.Float64(4, "lateral wheel"),
	}, p.Err()
}

// FormatODOM renders a sample as a checksummed sentence, the same way the
// co-processor firmware does.
func FormatODOM(heading, pitch, roll, forward, lateral float64) string {
	body := fmt.Sprintf("PODOM,%.3f,%.3f,%.3f,%.3f,%.3f", heading, pitch, roll, forward, lateral)
	return fmt.Sprintf("$%s*%s", body, nmea.Checksum(body))
}
