// Package api exposes the timer over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"legal-timer/internal/model"
	"legal-timer/internal/notify"
	"legal-timer/internal/repository"
	"legal-timer/internal/service"
)

// Server is the HTTP front end. All state lives behind the services; the
// server itself is stateless and safe to run in multiple instances against
// a shared store.
type Server struct {
	auth     *service.AuthService
	tasks    *service.TaskService
	timer    *service.TimerService
	reports  *service.ReportService
	users    *repository.UserRepository
	catRepo  *repository.CategoryRepository
	notifier *notify.Notifier
	mux      *http.ServeMux
	server   *http.Server
}

func NewServer(addr string,
	auth *service.AuthService,
	tasks *service.TaskService,
	timer *service.TimerService,
	reports *service.ReportService,
	users *repository.UserRepository,
	catRepo *repository.CategoryRepository,
	notifier *notify.Notifier,
) *Server {
	s := &Server{
		auth:     auth,
		tasks:    tasks,
		timer:    timer,
		reports:  reports,
		users:    users,
		catRepo:  catRepo,
		notifier: notifier,
		mux:      http.NewServeMux(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /auth/me", s.withUser(s.handleMe))
	s.mux.HandleFunc("POST /auth/telegram", s.withUser(s.handleLinkTelegram))
	s.mux.HandleFunc("GET /categories", s.handleCategories)
	s.mux.HandleFunc("POST /tasks", s.withUser(s.handleCreateTask))
	s.mux.HandleFunc("GET /tasks", s.withUser(s.handleListTasks))
	s.mux.HandleFunc("GET /tasks/active", s.withUser(s.handleActiveTask))
	s.mux.HandleFunc("POST /tasks/{id}/start", s.withUser(s.handleStartTimer))
	s.mux.HandleFunc("POST /tasks/{id}/stop", s.withUser(s.handleStopTimer))
	s.mux.HandleFunc("POST /tasks/{id}/complete", s.withUser(s.handleCompleteTask))
	s.mux.HandleFunc("GET /export/csv", s.withUser(s.handleExportCSV))
	s.mux.HandleFunc("GET /", s.handleRoot)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Printf("[info] http listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the route table, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *model.User)

// withUser resolves the bearer token and rejects the request when it cannot.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, service.ErrUnauthenticated)
			return
		}
		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, user)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[warn] encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps domain errors onto stable HTTP error kinds so clients can
// branch on them.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, repository.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "invalid_input"
	default:
		log.Printf("[warn] internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: "internal"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return service.ErrInvalidInput
	}
	return nil
}
