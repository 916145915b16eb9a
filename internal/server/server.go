// Package server exposes the sync engine and the catalog over HTTP. Sync
// progress is pushed to clients as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spinshelf/spinshelf/internal/config"
	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/record"
	"github.com/spinshelf/spinshelf/internal/sync"
)

// SyncRunner is the slice of the sync service the server needs
type SyncRunner interface {
	Run(ctx context.Context, emit sync.ProgressFunc) (*sync.Progress, error)
	InProgress() bool
}

// Server serves the HTTP API
type Server struct {
	cfg     config.ServerConfig
	syncSvc SyncRunner
	records record.Repository
	runs    sync.Repository
	logger  *loggy.Logger
	hub     *hub
	http    *http.Server
}

// New creates a Server wired to the given services
func New(
	cfg config.ServerConfig,
	syncSvc SyncRunner,
	records record.Repository,
	runs sync.Repository,
	logger *loggy.Logger,
) *Server {
	s := &Server{
		cfg:     cfg,
		syncSvc: syncSvc,
		records: records,
		runs:    runs,
		logger:  logger,
		hub:     newHub(logger),
	}

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Routes builds the HTTP router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", s.handleStartSync)
		r.Get("/sync/events", s.handleSyncEvents)
		r.Get("/sync/latest", s.handleLatestRun)
		r.Get("/records", s.handleListRecords)
	})

	return r
}

// ListenAndServe starts the HTTP listener and blocks until shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleStartSync kicks off a sync run in the background. Overlapping
// requests are rejected; runs are serialized.
func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	if s.syncSvc.InProgress() {
		s.respondError(w, http.StatusConflict, "a sync run is already in progress")
		return
	}

	go func() {
		// The run outlives the request
		if _, err := s.syncSvc.Run(context.Background(), s.hub.broadcast); err != nil {
			if errors.Is(err, sync.ErrSyncInProgress) {
				return
			}
			s.logger.Error("Background sync run failed", "error", err)
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleSyncEvents streams progress snapshots as server-sent events until
// the client disconnects. Events arrive in emission order; the terminal
// done event of a run is always the last event of that run.
func (s *Server) handleSyncEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events := s.hub.subscribe()
	defer s.hub.unsubscribe(events)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case p := <-events:
			data, err := json.Marshal(p)
			if err != nil {
				s.logger.Error("Failed to encode progress event", "error", err)
				continue
			}
			if _, err := w.Write([]byte("event: progress\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleLatestRun returns the bookkeeping row of the most recent run
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetLatestRun(r.Context())
	if err != nil {
		if errors.Is(err, sync.ErrRunNotFound) {
			s.respondError(w, http.StatusNotFound, "no sync runs recorded")
			return
		}
		s.logger.Error("Failed to load latest run", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":           run.ID,
		"pulled":       run.Pulled,
		"pushed":       run.Pushed,
		"skipped":      run.Skipped,
		"error_count":  run.ErrorCount,
		"success":      run.Success,
		"started_at":   run.StartedAt.Format(time.RFC3339),
		"completed_at": run.CompletedAt.Format(time.RFC3339),
	})
}

// handleListRecords returns a page of the local catalog
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	params := record.NewPaginationParams(
		queryInt(r, "page", 1),
		queryInt(r, "limit", 50),
	)

	records, err := s.records.ListRecords(r.Context(), params)
	if err != nil {
		s.logger.Error("Failed to list records", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []*record.Record{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":    params.Page,
		"limit":   params.Limit,
		"records": records,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
