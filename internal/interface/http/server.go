// Package http exposes the attendance hub over a JSON REST API: QR scans,
// participation management, analytics, health checks and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/isuventra/attendance-hub/internal/application/command"
	"github.com/isuventra/attendance-hub/internal/application/query"
	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/interface/http/handlers"
	"github.com/isuventra/attendance-hub/pkg/logger"
	"github.com/isuventra/attendance-hub/pkg/metrics"
	"github.com/isuventra/attendance-hub/pkg/validation"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr to listen on, e.g. ":8080".
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of API request bodies.
	MaxBodyBytes int64

	// AllowedOrigins for CORS; "*" allows any origin. Empty disables CORS.
	AllowedOrigins []string

	// Token bucket per client IP on the scan endpoints. Zero RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// MetricsPath serves Prometheus exposition; empty disables it.
	MetricsPath string

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   64 << 10,
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		MetricsPath:    "/metrics",
		Version:        "v1",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the handlers call.
type Dependencies struct {
	Recorder         *command.Recorder
	CheckStatus      *query.CheckStatusHandler
	GetParticipation *query.GetParticipationHandler
	GetForecast      *query.GetForecastHandler
	GetDashboard     *query.GetDashboardStatsHandler

	// Admins authenticates HTTP Basic credentials on admin routes.
	Admins attendance.AdminDirectory

	HealthChecker handlers.HealthChecker
	Metrics       *metrics.Manager
	Logger        *logger.Logger
	Validator     *validation.Validator

	// Location interprets offset-less timestamps in manual entries.
	Location *time.Location
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger

	scanLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop()
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewCompositeHealthChecker(config.Version)
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger.With(logger.Component("http")),
	}

	if config.RateLimitRPS > 0 {
		s.scanLimiter = newRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Addr,
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	s.route("GET /health", s.handleHealth)
	s.route("GET /ready", s.handleReady)
	s.route("GET /live", s.handleLive)
	s.route("GET /{$}", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// Scanning
	// ─────────────────────────────────────────────────────────────────────────
	s.route("POST /api/v1/events/{eventID}/scan-in", s.limited(s.admin(s.handleScanIn)))
	s.route("POST /api/v1/events/{eventID}/scan-out", s.limited(s.admin(s.handleScanOut)))
	s.route("GET /api/v1/events/{eventID}/status/{identifier}", s.limited(s.handleCheckStatus))

	// ─────────────────────────────────────────────────────────────────────────
	// Participations
	// ─────────────────────────────────────────────────────────────────────────
	s.route("POST /api/v1/participations", s.admin(s.handleManualCreate))
	s.route("GET /api/v1/participations/{id}", s.admin(s.handleGetParticipation))
	s.route("DELETE /api/v1/participations/{id}", s.admin(s.handleDeleteParticipation))

	// ─────────────────────────────────────────────────────────────────────────
	// Analytics
	// ─────────────────────────────────────────────────────────────────────────
	s.route("GET /api/v1/analytics/forecast", s.admin(s.handleForecast))
	s.route("GET /api/v1/analytics/dashboard", s.admin(s.handleDashboard))

	if s.config.MetricsPath != "" {
		s.router.Handle("GET "+s.config.MetricsPath, s.deps.Metrics.Handler())
	}
}

// route registers h and records per-pattern request metrics.
func (s *Server) route(pattern string, h http.HandlerFunc) {
	s.router.Handle(pattern, s.instrument(pattern, h))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router; the first middleware listed is
// outermost.
func (s *Server) buildMiddlewareChain(router http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		handlers.SecurityHeadersMiddleware,
		handlers.NoCacheMiddleware,
	}
	if len(s.config.AllowedOrigins) > 0 {
		chain = append(chain, s.corsMiddleware)
	}
	chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	return handlers.ChainHandler(router, chain...)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
