package middleware

import (
	"net/http"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/ratelimit"
)

// RateLimit rejects requests from a client IP once limiter says it is over quota.
// A nil limiter disables the check. trusted decides whether X-Forwarded-For is read.
func RateLimit(limiter ratelimit.Limiter, trusted *TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), ClientIP(r, trusted)) {
				WriteError(w, r, apperrors.RateLimited("Too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
