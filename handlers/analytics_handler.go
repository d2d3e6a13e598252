package handlers

import (
	"net/http"
	"strconv"

	"CrossPostAPI/utils"
)

func (h *Handler) RecomputeAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.analytics.RecomputeToday(r.Context(), userID(r))
	if err != nil {
		respondError(w, err, "Error computing analytics")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

func (h *Handler) GetLatestAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.analytics.Latest(r.Context(), userID(r))
	if err != nil {
		respondError(w, err, "Error fetching analytics")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snap)
}

func (h *Handler) GetAnalyticsHistory(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondWithError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	snaps, err := h.analytics.History(r.Context(), userID(r), days)
	if err != nil {
		respondError(w, err, "Error fetching analytics history")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, snaps)
}
