// Package api implements the minimal HTTP control surface a UI host calls
// instead of reimplementing the Player contract directly: transport
// commands, a project push endpoint, and a Prometheus /metrics endpoint.
// No auth, no session state, per spec.md's explicit exclusion of
// "user-facing UI, authentication." Grounded on
// internal/distribution.Server's REST handler style (stdlib
// net/http.ServeMux with Go 1.22 method+path patterns, writeJSON/writeError
// helpers).
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zsiec/weave/player"
	"github.com/zsiec/weave/project"
)

// Config configures a Server.
type Config struct {
	Log      *slog.Logger
	Player   *player.Player
	Registry *prometheus.Registry // nil uses promhttp's default handler
}

// Server wires a Player to an HTTP handler.
type Server struct {
	log *slog.Logger
	pl  *player.Player
	reg *prometheus.Registry
}

// New creates a Server bound to cfg.Player.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log: log.With("component", "api"),
		pl:  cfg.Player,
		reg: cfg.Registry,
	}
}

// Handler builds the routed http.Handler for the control API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transport/play", s.handlePlay)
	mux.HandleFunc("POST /transport/pause", s.handlePause)
	mux.HandleFunc("POST /transport/stop", s.handleStop)
	mux.HandleFunc("POST /transport/seek", s.handleSeek)
	mux.HandleFunc("POST /clips", s.handleLoadClip)
	mux.HandleFunc("DELETE /clips/{id}", s.handleClearClip)
	mux.HandleFunc("PUT /projects/{id}", s.handleSetProject)

	if s.reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		At *float64 `json:"at,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.pl.Play(r.Context(), req.At); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "playing"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.pl.Pause(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.pl.Stop(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		T float64 `json:"t"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.pl.Seek(r.Context(), req.T); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeked"})
}

func (s *Server) handleLoadClip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"trackId"`
		ClipID  string `json:"clipId,omitempty"`
		Data    []byte `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "trackId is required")
		return
	}
	clipID, err := s.pl.LoadClip(r.Context(), req.TrackID, req.Data, req.ClipID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"clipId": clipID})
}

func (s *Server) handleClearClip(w http.ResponseWriter, r *http.Request) {
	clipID := r.PathValue("id")
	if err := s.pl.ClearClip(r.Context(), clipID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSetProject(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.pl.SetProject(r.Context(), p); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
