package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/logging"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status  string                   `json:"status"`
	Uploads core.UploadLimiterStatus `json:"uploads"`
}

// handleHealth pings the store and reports upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Uploads: s.service.Limiter().Status()}
	if err := s.service.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
