package http

import (
	"net/http"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.GetForecast.Handle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.GetDashboard.Handle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "ISUVentra Attendance Hub API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":    "/health",
			"scan_in":   "/api/v1/events/{eventID}/scan-in",
			"scan_out":  "/api/v1/events/{eventID}/scan-out",
			"status":    "/api/v1/events/{eventID}/status/{identifier}",
			"forecast":  "/api/v1/analytics/forecast",
			"dashboard": "/api/v1/analytics/dashboard",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeErrorResponse(w, r, http.StatusServiceUnavailable, "not_ready", status.Message, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": s.Uptime().Round(time.Second).String(),
	})
}
