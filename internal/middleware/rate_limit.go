package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// IPRateLimitConfig holds the coarse per-IP request limit applied in front
// of the auth endpoints. This is volumetric protection only; credential
// attempts are tracked separately by the failed-attempt limiter.
type IPRateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthIPRateLimit allows 60 requests per minute per IP
func DefaultAuthIPRateLimit() IPRateLimitConfig {
	return IPRateLimitConfig{
		RequestsPerMinute: 60,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config IPRateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded"}`))
		}),
	)
}
