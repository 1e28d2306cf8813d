package http

import (
	"log/slog"
	"net/http"

	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
)

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

type healthHandler struct {
	logger *slog.Logger
	db     db.HealthChecker
}

func (h *healthHandler) Health(w http.ResponseWriter, r *http.Request) error {
	healthy, err := h.db.IsHealthy(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "database health check failed", slog.Any("error", err))
	}

	if !healthy {
		return writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", DB: "down"})
	}
	return writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DB: "up"})
}
