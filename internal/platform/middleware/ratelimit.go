package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"egress/internal/platform/ratelimit"
)

// RateLimit rejects requests over the per-device budget with 429. Keys on the
// authenticated device, so it must run after RequireAuth; unauthenticated
// paths fall back to the remote address.
func RateLimit(limiter *ratelimit.SlidingWindow, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetDeviceID(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			result := limiter.Allow(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.Allowed {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"request_id", GetRequestID(r.Context()),
					"key", key,
					"path", r.URL.Path,
				)
				retryAfter := int64(time.Until(result.ResetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
