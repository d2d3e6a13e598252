package handlers

import (
	"context"
	"net/http"
	"time"

	"CrossPostAPI/utils"
)

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		utils.Warnf("Health check failed: %v", err)
		utils.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
