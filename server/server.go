// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"postscheduler/dispatch"
	"postscheduler/pkg/scheduler"
	"postscheduler/schedule"
	"postscheduler/store"
)

// Scheduler interface for turning intents into records.
type Scheduler interface {
	Schedule(ctx context.Context, intent scheduler.Intent) (*schedule.Receipt, error)
}

// Dispatcher interface for triggering a dispatch pass.
type Dispatcher interface {
	Run(ctx context.Context, now time.Time) (dispatch.Result, error)
}

// Lister interface for reading back post records.
type Lister interface {
	List(ctx context.Context, f store.Filter) ([]*scheduler.ScheduledPost, error)
}

// Server handles HTTP requests.
type Server struct {
	scheduler  Scheduler
	dispatcher Dispatcher
	lister     Lister
	logger     *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Scheduler  Scheduler
	Dispatcher Dispatcher
	Lister     Lister
	Logger     *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		scheduler:  cfg.Scheduler,
		dispatcher: cfg.Dispatcher,
		lister:     cfg.Lister,
		logger:     cfg.Logger,
	}
}

// Routes returns the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/schedule", s.handleSchedule)
	mux.HandleFunc("/posts", s.handlePosts)
	mux.HandleFunc("/dispatchz", s.handleDispatch)
	return mux
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe(port string) error {
	// Configure server with timeouts to prevent resource exhaustion
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Routes(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second, // a dispatch pass can take a while
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "port", port)
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
		return
	}
}

// handleDispatch is the trigger for the external periodic scheduler. It
// answers 200 with the counters even when individual posts failed; 500
// means the batch itself was skipped (store unreachable) and the next
// trigger should retry wholesale.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Dispatch endpoint triggered")

	result, err := s.dispatcher.Run(r.Context(), time.Now().UTC())
	if err != nil {
		s.logger.Error("Dispatch run failed", "error", err)
		http.Error(w, "Dispatch failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, s.logger, http.StatusOK, result)
}
