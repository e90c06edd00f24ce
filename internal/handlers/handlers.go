package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"tasktrack/internal/auth"
	"tasktrack/internal/coordinator"
	"tasktrack/internal/models"
)

type contextKey string

const sessionKey contextKey = "session"

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	coord    *coordinator.Coordinator
	auth     *auth.Authenticator
	identity *auth.Client
	sessions *auth.Sessions
	log      logrus.FieldLogger
}

// New creates a new Handlers instance.
func New(c *coordinator.Coordinator, a *auth.Authenticator, identity *auth.Client, sessions *auth.Sessions, log logrus.FieldLogger) *Handlers {
	return &Handlers{
		coord:    c,
		auth:     a,
		identity: identity,
		sessions: sessions,
		log:      log,
	}
}

// Routes mounts all API routes on a new router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/api/auth/profile", h.Profile)
		r.Put("/api/auth/profile", h.UpdateProfile)
		r.Post("/api/auth/logout", h.Logout)

		r.Get("/api/tasks", h.TaskState)
		r.Post("/api/tasks/load", h.LoadTasks)
		r.Post("/api/tasks", h.CreateTask)
		r.Put("/api/tasks/{id}", h.UpdateTask)
		r.Delete("/api/tasks/{id}", h.DeleteTask)
		r.Post("/api/tasks/{id}/toggle", h.ToggleTask)
		r.Get("/api/tasks/search", h.SearchTasks)
		r.Get("/api/tasks/sorted", h.SortedTasks)
		r.Post("/api/tasks/clear-error", h.ClearError)
	})

	return r
}

// RequireSession rejects requests without a valid bearer session token.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		session, err := h.sessions.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey).(*auth.Session)
	return session
}

// parseID extracts and parses an integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	return strconv.ParseInt(idStr, 10, 64)
}

// parseDate parses a due date in RFC 3339 or YYYY-MM-DD format.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// respondFault maps the shared fault taxonomy to HTTP status codes.
func (h *Handlers) respondFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.log.WithError(err).Error("internal server error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
