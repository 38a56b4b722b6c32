package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/composables"
)

// TrustedUser reads the caller identity from a header set by the upstream
// authentication layer. Requests without a valid header pass through
// unauthenticated; ownership checks downstream reject them.
func TrustedUser(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(header); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					r = r.WithContext(composables.WithUserID(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
