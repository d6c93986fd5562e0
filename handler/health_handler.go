package handler

import (
	"context"
	"knoword-api/common"
	"knoword-api/logger"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency, e.g. a database ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health godoc
// @Summary      Show the status of server
// @Description  get the status of server and its backing stores
// @Tags         health
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	failed := map[string]string{}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			logger.Log.WithError(err).WithField("dependency", c.Name).Warn("Health check failed")
			failed[c.Name] = err.Error()
		}
	}

	if len(failed) > 0 {
		common.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"checks": failed,
		})
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "API is healthy and running"})
}
