// Package requesttime pins one "now" per request so that every endpoint
// validity check of a lookup sees the same instant.
package requesttime

import (
	"net/http"
	"time"

	"smp/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
