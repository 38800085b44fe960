// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/bodytrack/internal/domain/selection"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	// Targets exposes the selection targets and their state.
	Targets() []selection.Target
}

// SceneSource serves the live scene: the last presented frame as JSON and
// a websocket stream of every frame after it.
type SceneSource interface {
	http.Handler
	LastJSON() []byte
}

// Server wires HTTP routes for the scene API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sceneHandler   *SceneHandler
	targetsHandler *TargetsHandler

	display http.Handler
	sensor  http.Handler
}

// NewServer creates a new API server with all handlers. sensor may be nil
// when frames do not arrive over HTTP.
func NewServer(deps Dependencies, scene SceneSource, sensor http.Handler) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		sceneHandler:   NewSceneHandler(scene),
		targetsHandler: NewTargetsHandler(deps),
		display:        scene,
		sensor:         sensor,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scene", MetricsMiddleware(s.sceneHandler.HandleScene, "scene"))
	mux.HandleFunc("/targets", MetricsMiddleware(s.targetsHandler.HandleTargets, "targets"))

	mux.Handle("/ws", StreamMiddleware(s.display, "ws"))
	if s.sensor != nil {
		mux.Handle("/sensor", StreamMiddleware(s.sensor, "sensor"))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	if rw, ok := w.(interface{ setErrorCode(string) }); ok {
		rw.setErrorCode(code)
	}
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
