// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package server provides an HTTP + WebSocket front end for the model
// acquisition core: a REST API to start/inspect/cancel downloads and a
// WebSocket stream that mirrors the Coordinator's progress events, for
// remote dashboards and automation that cannot link the Go package
// directly.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// Config holds server configuration.
type Config struct {
	Addr         string
	Port         int
	Token        string
	Endpoint     string
	CacheRoot    string
	DownloadBase string
	ModelsDir    string
	FailFast     bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:      "0.0.0.0",
		Port:      8080,
		ModelsDir: "./Models",
	}
}

// Server is the HTTP+WebSocket front end.
type Server struct {
	config     Config
	httpServer *http.Server
	coord      *hub.Coordinator
	jobs       *JobManager
	wsHub      *WSHub
}

// New builds a Server and the Coordinator backing it.
func New(cfg Config) *Server {
	coord := hub.NewCoordinator(hub.CoordinatorConfig{
		DownloadBase: cfg.DownloadBase,
		CacheRoot:    cfg.CacheRoot,
		Client:       hub.NewClient(hub.ClientOptions{Token: cfg.Token, Endpoint: cfg.Endpoint}),
		FailFast:     cfg.FailFast,
	})

	wsHub := NewWSHub()
	s := &Server{
		config: cfg,
		coord:  coord,
		jobs:   NewJobManager(cfg, coord, wsHub),
		wsHub:  wsHub,
	}

	coord.Notifier().SubscribeDownloadProgress(func(ev hub.Event) { wsHub.BroadcastEvent(ev) })
	coord.Notifier().SubscribeVerificationProgress(func(ev hub.Event) { wsHub.BroadcastEvent(ev) })

	return s
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.wsHub.Run()

	mux := http.NewServeMux()
	s.registerAPIRoutes(mux)

	addr := fmt.Sprintf("%s:%d", s.config.Addr, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.corsMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("modelhub: server listening on http://%s", addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/download", s.handleStartDownload)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleCancelJob)
	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("POST /api/repair", s.handleRepair)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
