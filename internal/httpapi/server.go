package httpapi

import (
	"net/http"
	"time"

	"userpanel/internal/config"
	"userpanel/internal/store"
)

type Server struct {
	cfg     config.Config
	store   store.Store
	mux     *http.ServeMux
	session *sessionVerifier
	started time.Time
	now     func() time.Time
}

// NewServer builds the proxy. A nil store is accepted: the server still starts and
// answers every /api route with 503 so a misconfigured deployment stays diagnosable.
func NewServer(cfg config.Config, st store.Store) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		mux:     http.NewServeMux(),
		session: newSessionVerifier(cfg.SessionSecret),
		started: time.Now(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = storeMiddleware(s.store != nil, h)
	h = sessionMiddleware(s.session, h)
	h = recoverMiddleware(h)
	h = loggingMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/users", s.handleUsers)
	s.mux.HandleFunc("/api/users/{id}", s.handleUser)
	s.mux.HandleFunc("/api/users/{id}/toggle-status", s.handleUserToggleStatus)
	s.mux.HandleFunc("/api/users/{id}/toggle-admin", s.handleUserToggleAdmin)
	s.mux.HandleFunc("/api/users/{id}/reset-password", s.handleUserResetPassword)

	s.mux.HandleFunc("/api/login-attempts", s.handleLoginAttempts)
	s.mux.HandleFunc("/api/authorized-devices", s.handleDevices)
	s.mux.HandleFunc("/api/authorized-devices/{id}", s.handleDevice)

	s.mux.HandleFunc("/api/alerts", s.handleAlerts)
	s.mux.HandleFunc("/api/alerts/{id}", s.handleAlert)
	s.mux.HandleFunc("/api/alerts/{id}/mark-read", s.handleAlertMarkRead)

	s.mux.HandleFunc("/api/dashboard", s.handleDashboard)
}
