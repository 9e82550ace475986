package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"zigbee-coop-door/internal/device"
	"zigbee-coop-door/internal/zcl"
)

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithVersion sets the version string reported by /api/status.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// Server exposes the device state over a small JSON API plus a WebSocket
// event stream. It is a local diagnostics surface, not the network
// transport.
type Server struct {
	mux      *http.ServeMux
	door     *device.Bridge
	attrs    *device.AttributeStore
	net      *device.NetworkState
	endpoint zcl.Endpoint
	hub      *WSHub
	unsub    func()
	version  string
	logger   *slog.Logger
}

// NewServer creates the web server and subscribes it to device events.
func NewServer(door *device.Bridge, attrs *device.AttributeStore, net *device.NetworkState, events *device.EventBus, endpoint zcl.Endpoint, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		door:     door,
		attrs:    attrs,
		net:      net,
		endpoint: endpoint,
		hub:      NewWSHub(logger),
		version:  "dev",
		logger:   logger.With("component", "web"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/state", s.handleGetState)
	s.mux.HandleFunc("POST /api/state", s.handleSetState)
	s.mux.HandleFunc("POST /api/identify", s.handleIdentify)
	s.mux.HandleFunc("POST /api/attribute", s.handleWriteAttribute)
	s.mux.HandleFunc("POST /api/command", s.handleCommand)
	s.mux.HandleFunc("GET /api/endpoint", s.handleEndpoint)
	s.mux.HandleFunc("GET /ws", s.handleWS)

	go s.hub.Run()
	s.unsub = events.OnAll(func(e device.Event) {
		s.hub.Broadcast(e)
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Stop unsubscribes from events and shuts the WebSocket hub down.
func (s *Server) Stop() {
	if s.unsub != nil {
		s.unsub()
	}
	s.hub.Stop()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	meta := s.attrs.Metadata()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":      s.version,
		"joined":       s.net.Joined(),
		"manufacturer": meta.ManufacturerName,
		"model":        meta.ModelID,
		"date_code":    meta.DateCode,
		"location":     meta.Location,
		"hw_version":   meta.HWVersion,
		"app_version":  meta.AppVersion,
	})
}

type stateDoc struct {
	State        string `json:"state"`
	Identify     bool   `json:"identify"`
	IdentifyTime uint16 `json:"identify_time"`
}

func (s *Server) stateDoc() stateDoc {
	state := "OFF"
	if s.door.OnOff() {
		state = "ON"
	}
	return stateDoc{
		State:        state,
		Identify:     s.door.IdentifyQuery(),
		IdentifyTime: s.attrs.IdentifyTime(),
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stateDoc())
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	var on bool
	switch req.State {
	case "ON", "on":
		on = true
	case "OFF", "off":
		on = false
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("state must be ON or OFF, got %q", req.State))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.door.SetOnOff(ctx, on); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.stateDoc())
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds uint16 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	if err := s.door.HandleIdentify(req.Seconds); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"identify":      s.door.IdentifyQuery(),
		"identify_time": s.attrs.IdentifyTime(),
	})
}

func (s *Server) handleEndpoint(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.endpoint)
}
