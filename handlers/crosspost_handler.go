package handlers

import (
	"net/http"
	"time"

	"CrossPostAPI/models"
	"CrossPostAPI/utils"

	"github.com/gorilla/mux"
)

// CreateCrossPost publishes immediately, or schedules the post when
// scheduled_for is in the future.
func (h *Handler) CreateCrossPost(w http.ResponseWriter, r *http.Request) {
	var req models.PublishRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		detail *models.CrossPostDetail
		err    error
	)
	if req.ScheduledFor != nil && req.ScheduledFor.After(time.Now()) {
		detail, err = h.dispatcher.Schedule(r.Context(), userID(r), req.Content, req.Platforms, *req.ScheduledFor)
	} else {
		detail, err = h.dispatcher.Publish(r.Context(), userID(r), req.Content, req.Platforms)
	}
	if err != nil {
		respondError(w, err, "Error creating cross-post")
		return
	}

	if over := models.ExceedsLimit(req.Content, detail.CrossPost.Platforms); len(over) > 0 {
		utils.Debugf("Cross-post %s exceeds the content limit of %v", detail.CrossPost.ID, over)
	}
	utils.RespondWithJSON(w, http.StatusCreated, detail)
}

func (h *Handler) ListCrossPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.crossPosts.ListCrossPosts(r.Context(), userID(r))
	if err != nil {
		respondError(w, err, "Error fetching cross-posts")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) GetCrossPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.crossPosts.GetCrossPost(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err, "Error fetching cross-post")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, post)
}

func (h *Handler) DeleteCrossPost(w http.ResponseWriter, r *http.Request) {
	if err := h.crossPosts.DeleteCrossPost(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		respondError(w, err, "Error deleting cross-post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
