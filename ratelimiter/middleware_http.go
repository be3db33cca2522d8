package ratelimiter

import (
	"net/http"
	"strconv"

	"github.com/pitabwire/util"
)

// GetIP extracts the caller IP from proxy headers or the remote address.
func GetIP(r *http.Request) string {
	if ip := util.GetIP(r); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimitMiddleware rejects callers that exceed their per-IP budget with
// 429 Too Many Requests. A nil limiter lets everything through.
func RateLimitMiddleware(limiter *KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			if !limiter.Allow(GetIP(r)) {
				util.Log(r.Context()).WithField("ip", GetIP(r)).Debug("request rate limited")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
