package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/composables"
	"github.com/arborhq/arbor/pkg/constants"
)

// Provide injects a value into every request context under the given key.
func Provide(key constants.ContextKey, value interface{}) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestParams captures per-request metadata for downstream composables.
func RequestParams() mux.MiddlewareFunc {
	conf := func(r *http.Request) string {
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
		return r.RemoteAddr
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := &composables.Params{
				IP:        conf(r),
				UserAgent: r.UserAgent(),
				Request:   r,
				Writer:    w,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}
