package middleware

import (
	"net/http"

	"CrossPostAPI/utils"

	"github.com/gorilla/mux"
)

// BodyLimit caps request bodies at maxBytes. Reads past the limit fail, and
// the JSON decoders in handlers report that as 413.
func BodyLimit(maxBytes int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
