package handlers

import (
	"net/http"
	"strings"

	"CrossPostAPI/models"
	"CrossPostAPI/utils"

	"github.com/gorilla/mux"
)

func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	conns, err := h.platforms.ListPlatforms(r.Context(), userID(r))
	if err != nil {
		respondError(w, err, "Error fetching platforms")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, conns)
}

func (h *Handler) AddPlatform(w http.ResponseWriter, r *http.Request) {
	var req models.AddPlatformRequest
	if !h.decode(w, r, &req) {
		return
	}

	conn, err := h.platforms.AddPlatform(r.Context(), userID(r), req.Platform)
	if err != nil {
		respondError(w, err, "Error adding platform")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, conn)
}

func (h *Handler) RemovePlatform(w http.ResponseWriter, r *http.Request) {
	if err := h.platforms.RemovePlatform(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		respondError(w, err, "Error removing platform")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetConnectionStatus(w http.ResponseWriter, r *http.Request) {
	kind := models.Platform(mux.Vars(r)["kind"])

	status, err := h.platforms.GetConnectionStatus(r.Context(), userID(r), kind)
	if err != nil {
		respondError(w, err, "Error fetching connection status")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.ConnectionStatusResponse{Platform: kind, Status: status})
}

func (h *Handler) ConnectPlatform(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectPlatformRequest
	if !h.decode(w, r, &req) {
		return
	}

	cred := &models.Credential{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	}
	conn, err := h.platforms.ConnectPlatform(r.Context(), userID(r), mux.Vars(r)["id"], req.Username, cred)
	if err != nil {
		respondError(w, err, "Error connecting platform")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, conn)
}

func (h *Handler) SyncMetrics(w http.ResponseWriter, r *http.Request) {
	var req models.SyncMetricsRequest
	if !h.decode(w, r, &req) {
		return
	}

	metrics := models.PlatformMetrics{
		Followers:      req.Followers,
		Following:      req.Following,
		Posts:          req.Posts,
		EngagementRate: req.EngagementRate,
	}
	conn, err := h.platforms.SyncMetrics(r.Context(), userID(r), mux.Vars(r)["id"], metrics)
	if err != nil {
		respondError(w, err, "Error syncing metrics")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, conn)
}

// GetContentLimits reports per-platform character limits and the tightest
// one across the requested set (all platforms when none are given).
func (h *Handler) GetContentLimits(w http.ResponseWriter, r *http.Request) {
	platforms := models.AllPlatforms
	if raw := r.URL.Query().Get("platforms"); raw != "" {
		platforms = nil
		for _, name := range strings.Split(raw, ",") {
			p := models.Platform(strings.TrimSpace(name))
			if !p.Valid() {
				utils.RespondWithError(w, http.StatusBadRequest, "unknown platform "+string(p))
				return
			}
			platforms = append(platforms, p)
		}
	}

	limits := make(map[models.Platform]int, len(platforms))
	for _, p := range platforms {
		limits[p] = models.ContentLimit(p)
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"limits": limits,
		"min":    models.MinContentLimit(platforms),
	})
}
