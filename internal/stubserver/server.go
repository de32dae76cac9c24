// Package stubserver is an in-memory implementation of the campus events API
// for local development and tests. It is not the production service; data
// lives only as long as the process.
package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Togather-Foundation/campus/internal/audit"
	"github.com/Togather-Foundation/campus/internal/auth"
	"github.com/Togather-Foundation/campus/internal/domain/events"
	"github.com/Togather-Foundation/campus/internal/domain/users"
	"github.com/Togather-Foundation/campus/internal/metrics"
)

const issuer = "campus-stub"

// Config configures a stub server.
type Config struct {
	JWTSecret string
	JWTExpiry time.Duration
	// AdminEmail and AdminPassword bootstrap an admin account when both are set.
	AdminEmail    string
	AdminPassword string
	// SeedEvents adds a handful of sample events relative to Now.
	SeedEvents bool
	BcryptCost int
	Now        func() time.Time
}

// Server serves the events API from memory.
type Server struct {
	cfg     Config
	logger  zerolog.Logger
	jwt     *auth.JWTManager
	store   *memStore
	audit   *audit.Logger
	handler http.Handler
}

// New builds a server. It fails only when the bootstrap admin cannot be
// created.
func New(cfg Config, logger zerolog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("stub server: JWT secret is required")
	}
	if cfg.JWTExpiry <= 0 {
		cfg.JWTExpiry = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "stubserver").Logger(),
		jwt:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, issuer),
		store:  newMemStore(),
		audit:  audit.NewLogger(logger),
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := s.createAccount("Administrator", cfg.AdminEmail, cfg.AdminPassword, users.RoleAdmin, nil); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}
	if cfg.SeedEvents {
		if err := s.seed(); err != nil {
			return nil, fmt.Errorf("seed events: %w", err)
		}
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("GET /api/auth/me", s.authenticated(s.handleMe))

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("GET /api/events/search", s.handleSearchEvents)
	mux.HandleFunc("GET /api/events/registered", s.authenticated(s.handleRegisteredEvents))
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("POST /api/events/{id}/register", s.authenticated(s.handleRegisterForEvent))
	mux.HandleFunc("POST /api/events/admin", s.adminOnly(s.handleCreateEvent))
	// DELETE /events/admin/{id} and DELETE /events/{id}/register overlap on
	// "/events/admin/register", so one route dispatches both.
	mux.HandleFunc("DELETE /api/events/{first}/{second}", s.handleEventsDelete)

	mux.HandleFunc("GET /api/admin/events", s.adminOnly(s.handleAdminEvents))
	mux.HandleFunc("POST /api/admin/events", s.adminOnly(s.handleCreateEvent))
	mux.HandleFunc("PUT /api/admin/events/{id}", s.adminOnly(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/admin/events/{id}", s.adminOnly(s.handleDeleteEvent))
	mux.HandleFunc("GET /api/admin/events/{id}/registrations", s.adminOnly(s.handleEventRegistrations))
	mux.HandleFunc("DELETE /api/admin/events/{id}/registrations/{userId}", s.adminOnly(s.handleAdminCancelRegistration))
	mux.HandleFunc("GET /api/admin/registrations", s.adminOnly(s.handleAllRegistrations))
	mux.HandleFunc("GET /api/admin/dashboard", s.adminOnly(s.handleDashboard))

	mux.HandleFunc("GET /api/users/profile", s.authenticated(s.handleProfile))
	mux.HandleFunc("PUT /api/users/profile", s.authenticated(s.handleUpdateProfile))
	mux.HandleFunc("PUT /api/users/preferences", s.authenticated(s.handleUpdatePreferences))
	mux.HandleFunc("GET /api/users/events", s.authenticated(s.handleUserEvents))

	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = requestLogging(handler)
	handler = correlationID(s.logger)(handler)
	handler = tracing(handler)
	return handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("stub server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down stub server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) createAccount(name, email, password string, role users.Role, prefs events.Types) (account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return account{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.createAccount(account{
		Name:         name,
		Email:        email,
		Role:         users.NormalizeRole(string(role)),
		PasswordHash: hash,
		Preferences:  prefs,
	})
}

// auditAdmin records an admin mutation performed while serving r.
func (s *Server) auditAdmin(r *http.Request, action, resourceID string, err error, details map[string]string) {
	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusFailure
		if details == nil {
			details = map[string]string{}
		}
		details["error"] = err.Error()
	}
	s.audit.LogFromRequest(r, currentAccount(r).Email, action, "event", resourceID, status, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("stub handler failed")
	writeError(w, http.StatusInternalServerError, "Server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}
