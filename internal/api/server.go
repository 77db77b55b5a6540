// Package api runs the loopback control server: a token-guarded HTTP surface
// for scripting the queue without going through the UI.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"drop-desktop/internal/config"
	"drop-desktop/internal/download"
	"drop-desktop/internal/library"
)

type ControlServer struct {
	log     *slog.Logger
	cfg     *config.ConfigManager
	manager *download.DownloadManager
	library *library.Service
	router  *chi.Mux
}

func NewControlServer(log *slog.Logger, cfg *config.ConfigManager, manager *download.DownloadManager, lib *library.Service) *ControlServer {
	s := &ControlServer{
		log:     log,
		cfg:     cfg,
		manager: manager,
		library: lib,
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Start binds to loopback only and serves in the background.
func (s *ControlServer) Start(port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	go func() {
		conn, err := net.Listen("tcp", addr)
		if err != nil {
			s.log.Error("control server failed to bind", "addr", addr, "error", err)
			return
		}
		s.log.Info("control server listening", "addr", addr)
		if err := http.Serve(conn, s.router); err != nil {
			s.log.Error("control server failed", "error", err)
		}
	}()
}

func (s *ControlServer) setupRoutes() {
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.tokenMiddleware)

	s.router.Get("/v1/queue", s.handleQueueSnapshot)
	s.router.Post("/v1/queue/pause", s.handlePause)
	s.router.Post("/v1/queue/resume", s.handleResume)
	s.router.Post("/v1/queue/cancel", s.handleCancel)
	s.router.Get("/v1/games/{id}/status", s.handleGameStatus)
}

func (s *ControlServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// tokenMiddleware rejects anything not carrying the bearer token from the
// settings table. Loopback binding is the first layer; this is the second.
func (s *ControlServer) tokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.ControlToken()
		if token == "" || r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *ControlServer) handleQueueSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": s.manager.Status(),
		"queue":  s.manager.QueueSnapshot(),
	})
}

func (s *ControlServer) handlePause(w http.ResponseWriter, r *http.Request) {
	s.manager.PauseDownloads()
	w.WriteHeader(http.StatusNoContent)
}

func (s *ControlServer) handleResume(w http.ResponseWriter, r *http.Request) {
	s.manager.ResumeDownloads()
	w.WriteHeader(http.StatusNoContent)
}

func (s *ControlServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	var key download.DownloadableKey
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		http.Error(w, "invalid key", http.StatusBadRequest)
		return
	}
	s.manager.Cancel(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *ControlServer) handleGameStatus(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	writeJSON(w, s.library.FetchState(gameID))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
