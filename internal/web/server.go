// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves a live view of the mixer output over HTTP and
// websocket.
package web

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/joystick_link/internal/joystick"
	"github.com/relabs-tech/joystick_link/internal/telemetry"
)

//go:embed static
var static embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins on the local network
	},
}

// Receiver yields every normalized sample in order.
type Receiver interface {
	Recv() joystick.NormalizedSample
}

// RawReceiver yields every raw sample in order.
type RawReceiver interface {
	Recv() joystick.RawSample
}

// Server holds the latest samples and fans them out to HTTP clients.
type Server struct {
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu      sync.RWMutex
	last    joystick.NormalizedSample
	seq     uint64
	raw     joystick.RawSample
	haveRaw bool
	rec     joystick.CalibrationRecord
	haveRec bool
}

// NewServer creates a server that pushes to websocket clients at most once
// per interval.
func NewServer(interval time.Duration, logger *log.Logger) *Server {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Server{interval: interval, logger: logger, now: time.Now}
}

// SetRecord exposes the active calibration on /api/calibration.
func (s *Server) SetRecord(rec joystick.CalibrationRecord) {
	s.mu.Lock()
	s.rec, s.haveRec = rec, true
	s.mu.Unlock()
}

// Update stores v as the latest sample.
func (s *Server) Update(v joystick.NormalizedSample) {
	s.mu.Lock()
	s.last = v
	s.seq++
	s.mu.Unlock()
}

// UpdateRaw stores v as the latest raw sample.
func (s *Server) UpdateRaw(v joystick.RawSample) {
	s.mu.Lock()
	s.raw, s.haveRaw = v, true
	s.mu.Unlock()
}

func (s *Server) snapshot() (joystick.NormalizedSample, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.seq
}

// Track feeds every sample from rx into the server. It never returns.
func (s *Server) Track(rx Receiver) {
	for {
		s.Update(rx.Recv())
	}
}

// TrackRaw feeds every raw sample from rx into the server. It never returns.
func (s *Server) TrackRaw(rx RawReceiver) {
	for {
		s.UpdateRaw(rx.Recv())
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/channels", s.handleChannels)
	mux.HandleFunc("/api/raw", s.handleRaw)
	mux.HandleFunc("/api/calibration", s.handleCalibration)
	mux.HandleFunc("/ws", s.handleWS)

	root, _ := fs.Sub(static, "static")
	mux.Handle("/", http.FileServer(http.FS(root)))
	return mux
}

// ListenAndServe serves Handler on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("web server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	v, seq := s.snapshot()
	if seq == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(telemetry.NewChannelsMessage(v, s.now())); err != nil {
		s.logger.Warn("json encode error", "err", err)
	}
}

// handleRaw shows the unmixed slot values, for checking wiring.
func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	v, ok := s.raw, s.haveRaw
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(telemetry.RawMessage{Raw: v, Time: s.now().UTC()}); err != nil {
		s.logger.Warn("json encode error", "err", err)
	}
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rec, ok := s.rec, s.haveRec
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "not calibrated", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		s.logger.Warn("json encode error", "err", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "err", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	// Reads only detect the close; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("websocket read error", "err", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var sent uint64
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
		}
		v, seq := s.snapshot()
		if seq == sent {
			continue
		}
		sent = seq
		if err := conn.WriteJSON(telemetry.NewChannelsMessage(v, s.now())); err != nil {
			s.logger.Debug("websocket write error", "err", err)
			return
		}
	}
}
