package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"CrossPostAPI/middleware"
	"CrossPostAPI/models"
	"CrossPostAPI/services"
	"CrossPostAPI/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	platforms  *services.PlatformRegistry
	dispatcher *services.DeliveryDispatcher
	crossPosts *services.CrossPostService
	analytics  *services.AnalyticsRollup
	store      Pinger
	validate   *validator.Validate
}

func NewHandler(platforms *services.PlatformRegistry, dispatcher *services.DeliveryDispatcher, crossPosts *services.CrossPostService, analytics *services.AnalyticsRollup, store Pinger) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		platforms:  platforms,
		dispatcher: dispatcher,
		crossPosts: crossPosts,
		analytics:  analytics,
		store:      store,
		validate:   validate,
	}
}

// Register mounts every route on r. Everything under /api requires auth.
func (h *Handler) Register(r *mux.Router, auth mux.MiddlewareFunc) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth)

	api.HandleFunc("/platforms", h.ListPlatforms).Methods("GET")
	api.HandleFunc("/platforms", h.AddPlatform).Methods("POST")
	api.HandleFunc("/platforms/limits", h.GetContentLimits).Methods("GET")
	api.HandleFunc("/platforms/{id}", h.RemovePlatform).Methods("DELETE")
	api.HandleFunc("/platforms/{kind}/status", h.GetConnectionStatus).Methods("GET")
	api.HandleFunc("/platforms/{id}/connect", h.ConnectPlatform).Methods("POST")
	api.HandleFunc("/platforms/{id}/metrics", h.SyncMetrics).Methods("PUT")

	api.HandleFunc("/crossposts", h.CreateCrossPost).Methods("POST")
	api.HandleFunc("/crossposts", h.ListCrossPosts).Methods("GET")
	api.HandleFunc("/crossposts/{id}", h.GetCrossPost).Methods("GET")
	api.HandleFunc("/crossposts/{id}", h.DeleteCrossPost).Methods("DELETE")

	api.HandleFunc("/analytics/recompute", h.RecomputeAnalytics).Methods("POST")
	api.HandleFunc("/analytics/latest", h.GetLatestAnalytics).Methods("GET")
	api.HandleFunc("/analytics/history", h.GetAnalyticsHistory).Methods("GET")
}

func userID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request payload"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// respondError maps service errors to status codes. Anything unclassified is
// logged and reported as msg.
func respondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrDuplicateConnection):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		utils.Errorf("%s: %v", msg, err)
		utils.RespondWithError(w, http.StatusInternalServerError, msg)
	}
}
