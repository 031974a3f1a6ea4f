// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging tees the standard logger into a rotating file at path.
// With an empty path logging stays on stderr and the closer is a no-op.
func SetupLogging(path string) io.Closer {
	if path == "" {
		return io.NopCloser(nil)
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	log.Printf("logging: writing to %s", path)
	return file
}
