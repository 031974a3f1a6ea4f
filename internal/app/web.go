// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/odometry_computer/internal/odometry"
	"github.com/relabs-tech/odometry_computer/internal/recorder"
	"github.com/relabs-tech/odometry_computer/internal/telemetry"
)

const defaultHistoryLimit = 100

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// PoseService is the tracker surface the web server exposes.
type PoseService interface {
	Pose() odometry.Pose
	Attitude() odometry.Attitude
	Goals() []odometry.Goal
	Samples() int64
	Calibrate()
}

// HistoryReader is satisfied by *recorder.Recorder.
type HistoryReader interface {
	History(ctx context.Context, runID string, limit int) ([]recorder.Sample, error)
}

// WebServer serves the tracker state over HTTP and a pose websocket.
type WebServer struct {
	tracker      PoseService
	history      HistoryReader
	runID        string
	streamPeriod time.Duration
	mux          *http.ServeMux
}

// NewWebServer builds the handler. history may be nil when no recorder is
// configured; streamPeriod is the websocket push interval.
func NewWebServer(tracker PoseService, history HistoryReader, runID string, streamPeriod time.Duration) *WebServer {
	s := &WebServer{
		tracker:      tracker,
		history:      history,
		runID:        runID,
		streamPeriod: streamPeriod,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/pose", s.handlePose)
	s.mux.HandleFunc("GET /api/attitude", s.handleAttitude)
	s.mux.HandleFunc("GET /api/goals", s.handleGoals)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/calibrate", s.handleCalibrate)
	s.mux.HandleFunc("GET /ws/pose", s.handlePoseWS)
	return s
}

func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *WebServer) handlePose(w http.ResponseWriter, r *http.Request) {
	if s.tracker.Samples() == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, telemetry.NewPoseMessage(s.runID, time.Now(), s.tracker.Pose()))
}

func (s *WebServer) handleAttitude(w http.ResponseWriter, r *http.Request) {
	if s.tracker.Samples() == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.tracker.Attitude())
}

func (s *WebServer) handleGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.tracker.Goals()
	if goals == nil {
		goals = []odometry.Goal{}
	}
	writeJSON(w, goals)
}

func (s *WebServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "recorder not configured", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	samples, err := s.history.History(r.Context(), s.runID, limit)
	if err != nil {
		log.Printf("web: history error: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []recorder.Sample{}
	}
	writeJSON(w, samples)
}

// handleCalibrate resets the pose to the starting configuration. Heading
// still follows the inertial sensor, so calibrating a robot that has
// turned snaps the heading back on the next sample, and the arc model
// turns that snap into a shift of up to the wheel offsets. Calibrate
// with the robot facing its starting heading.
func (s *WebServer) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	s.tracker.Calibrate()
	log.Printf("web: calibrated, pose reset to %s", s.tracker.Pose())
	writeJSON(w, telemetry.NewPoseMessage(s.runID, time.Now(), s.tracker.Pose()))
}

// handlePoseWS pushes a pose message every stream period until the client
// goes away.
func (s *WebServer) handlePoseWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// The client never sends anything useful; reading only detects close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case now := <-ticker.C:
			if err := conn.WriteJSON(telemetry.NewPoseMessage(s.runID, now, s.tracker.Pose())); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

// ListenAndServe serves s on addr until ctx is cancelled.
func (s *WebServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web: server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
