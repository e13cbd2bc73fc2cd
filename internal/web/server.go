// Package web serves the artwork table as server-rendered HTML. Every
// mutating action is a form POST that redirects back to the table.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/Sternrassler/artwork-table/pkg/metrics"
	"github.com/Sternrassler/artwork-table/pkg/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds the web server configuration.
type Config struct {
	PageSize        int
	SessionCapacity int

	// Ready reports whether backing services are reachable. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

// DefaultConfig returns the default web configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        table.DefaultPageSize,
		SessionCapacity: 1024,
	}
}

// Server renders one table per browser session.
type Server struct {
	fetcher  table.Fetcher
	sessions *SessionStore
	config   Config
	tmpl     *template.Template
	logger   zerolog.Logger
}

// NewServer creates a server that loads pages through fetcher.
func NewServer(fetcher table.Fetcher, cfg Config) (*Server, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", table.ErrInvalidPageSize, cfg.PageSize)
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		fetcher: fetcher,
		config:  cfg,
		tmpl:    tmpl,
		logger:  logging.NewLogger(logging.ComponentWeb),
	}

	s.sessions, err = NewSessionStore(cfg.SessionCapacity, s.newController)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) newController(id string) (*table.Controller, error) {
	ctrl, err := table.NewController(s.fetcher, s.config.PageSize)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session", id).Msg("Session started")
	return ctrl.WithLogger(logging.NewLogger(logging.ComponentTable).With().Str("session", id).Logger()), nil
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /{$}", "index", s.handleIndex)
	s.route(mux, "GET /api/state", "state", s.handleState)
	s.route(mux, "POST /page", "page", s.action(goToPage))
	s.route(mux, "POST /page/next", "next", s.action(func(ctx context.Context, c *table.Controller, _ *http.Request) error {
		return c.Next(ctx)
	}))
	s.route(mux, "POST /page/prev", "prev", s.action(func(ctx context.Context, c *table.Controller, _ *http.Request) error {
		return c.Prev(ctx)
	}))
	s.route(mux, "POST /retry", "retry", s.action(func(ctx context.Context, c *table.Controller, _ *http.Request) error {
		return c.Retry(ctx)
	}))
	s.route(mux, "POST /selection", "selection", s.action(toggleSelection))
	s.route(mux, "POST /selection/clear", "clear", s.action(func(_ context.Context, c *table.Controller, _ *http.Request) error {
		c.ClearSelection()
		return nil
	}))
	s.route(mux, "POST /bulk", "bulk", s.action(bulkSelect))

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	counter := httpRequestsTotal.MustCurryWith(prometheus.Labels{"route": name})
	mux.Handle(pattern, promhttp.InstrumentHandlerCounter(counter, h))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	s.render(w, http.StatusOK, ctrl.Snapshot(), "")
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ctrl.Snapshot()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode state")
	}
}

// session resolves the controller and performs the first load of a new
// session. A failed first load is shown in the error panel.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*table.Controller, bool) {
	ctrl, _, err := s.sessions.Ensure(w, r)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return nil, false
	}
	if !ctrl.Loaded() {
		_ = ctrl.Load(r.Context())
	}
	return ctrl, true
}

type actionFunc func(ctx context.Context, ctrl *table.Controller, r *http.Request) error

// action wraps a mutating handler in post/redirect/get. Input errors
// re-render the table with a notice; load failures are already part of
// the table state.
func (s *Server) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := s.session(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		if err := fn(r.Context(), ctrl, r); err != nil {
			var inErr *inputError
			if errors.As(err, &inErr) {
				s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected input")
				s.render(w, http.StatusUnprocessableEntity, ctrl.Snapshot(), inErr.Notice)
				return
			}
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Action finished with load failure")
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) render(w http.ResponseWriter, status int, view table.View, notice string) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "table.html", newPageData(view, notice)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render table")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.config.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.config.Ready(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
