package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"tasktrack/internal/auth"
	"tasktrack/internal/coordinator"
	"tasktrack/internal/handlers"
	"tasktrack/internal/store"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	// Configuration
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "./data/tasktrack.db")
	identityURL := getEnv("IDENTITY_URL", "http://localhost:9090")
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set")
	}
	sessionTTL := 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			log.Fatalf("invalid SESSION_TTL: %q", raw)
		}
		sessionTTL = parsed
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize store
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer s.Close()

	// Initialize the coordinator and publish the initial views
	coord := coordinator.New(s, log.StandardLogger())
	if err := coord.LoadTasks(context.Background()); err != nil {
		log.WithError(err).Warn("initial task load failed")
	}

	// Identity and sessions
	identity := auth.NewClient(identityURL, log.StandardLogger())
	authenticator := auth.NewAuthenticator(identity, log.StandardLogger())
	sessions := auth.NewSessions([]byte(sessionSecret), sessionTTL)

	h := handlers.New(coord, authenticator, identity, sessions, log.StandardLogger())

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Mount("/", h.Routes())

	// Start server
	addr := fmt.Sprintf(":%s", port)
	log.Infof("Starting server on http://localhost%s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
