// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recorder stores pose samples in a local SQLite file so a run can
// be inspected after the robot stops.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
)

// Recorder appends pose samples to the poses table.
type Recorder struct {
	db *sql.DB
}

// Sample is one stored pose.
type Sample struct {
	RunID      string        `json:"run_id"`
	RecordedAt time.Time     `json:"recorded_at"`
	Pose       odometry.Pose `json:"pose"`
}

// Open opens (or creates) the database at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps writes ordered and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS poses (
			run_id TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			x DOUBLE NOT NULL,
			y DOUBLE NOT NULL,
			heading DOUBLE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS poses_run ON poses (run_id, recorded_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Record stores pose as sampled at time at for the given run.
func (r *Recorder) Record(ctx context.Context, runID string, at time.Time, pose odometry.Pose) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO poses (run_id, recorded_at, x, y, heading) VALUES (?, ?, ?, ?, ?)",
		runID, at.UnixNano(), pose.X, pose.Y, pose.Heading)
	if err != nil {
		return fmt.Errorf("recorder: insert: %w", err)
	}
	return nil
}

// History returns up to limit samples of a run, newest first.
func (r *Recorder) History(ctx context.Context, runID string, limit int) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT run_id, recorded_at, x, y, heading FROM poses WHERE run_id = ? ORDER BY recorded_at DESC, rowid DESC LIMIT ?",
		runID, limit)
	if err != nil {
		return nil, fmt.Errorf("recorder: query: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			s  Sample
			ns int64
		)
		if err := rows.Scan(&s.RunID, &ns, &s.Pose.X, &s.Pose.Y, &s.Pose.Heading); err != nil {
			return nil, err
		}
		s.RecordedAt = time.Unix(0, ns).UTC()
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
