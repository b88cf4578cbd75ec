package api

import (
	"net/http"
	"time"

	"github.com/genlayer/glvault/pkg/types"
)

// handleHealth implements GET /health, the bearer-protected operational
// probe. It exercises the same listing path the admin API uses, so a
// backend outage degrades it to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	health := types.HealthStatus{
		Status:   "ok",
		Version:  s.version,
		UptimeMS: time.Since(s.startTime).Milliseconds(),
		Storage:  "connected",
	}

	count, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("health probe failed to reach storage")
		health.Status = "degraded"
		health.Storage = "disconnected"
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health.KeysRegistered = count

	s.writeJSON(w, http.StatusOK, health)
}

// handleHealthz implements GET /healthz, an unauthenticated liveness probe
// for the hosting platform. It reveals nothing about stored data.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
		"version":   s.version,
	})
}
