// Package httpapi is the thin HTTP surface over the negotiation
// engine. It maps the two fatal failure kinds to distinct status
// codes: reasoning unavailable is a 500, state unavailable a 503.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazaarsim/vyapari/internal/engine"
	"github.com/bazaarsim/vyapari/pkg/domain"
)

// Processor runs one negotiation turn.
type Processor interface {
	Process(ctx context.Context, req engine.Request) (*engine.Response, error)
}

// SessionAdmin exposes the session maintenance operations.
type SessionAdmin interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type Server struct {
	processor Processor
	admin     SessionAdmin
	logger    *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewHandler builds the router.
func NewHandler(processor Processor, admin SessionAdmin, logger *slog.Logger) http.Handler {
	s := &Server{processor: processor, admin: admin, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Post("/process", s.handleProcess)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{sessionID}", s.handleGetSession)
		r.Delete("/{sessionID}", s.handleDeleteSession)
	})

	return r
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", "bad_request")
		return
	}
	if strings.TrimSpace(req.UserText) == "" {
		writeError(w, http.StatusBadRequest, "user_text is required", "bad_request")
		return
	}

	resp, err := s.processor.Process(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeFailure maps the two fatal kinds to their status codes.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var brainErr *domain.BrainError
	var storeErr *domain.StoreError
	switch {
	case errors.As(err, &brainErr):
		s.logger.Error("reasoning unavailable", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "reasoning unavailable", "generation_failed")
	case errors.As(err, &storeErr):
		s.logger.Error("state unavailable", "error", err, "op", storeErr.Op)
		writeError(w, http.StatusServiceUnavailable, "state unavailable", "store_unavailable")
	default:
		s.logger.Error("unexpected failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.admin.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.admin.Load(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found", "not_found")
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}
