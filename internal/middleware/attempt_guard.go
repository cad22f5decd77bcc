package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/danielmv21/fitpulse/internal/auth"
	"github.com/danielmv21/fitpulse/internal/services"
	pkghttp "github.com/danielmv21/fitpulse/pkg/http"
)

type contextKey string

// AttemptKeyContextKey carries the limiter key from the guard to the handler
// so both sides of a request account against the same record.
const AttemptKeyContextKey contextKey = "attempt_key"

const maxPeekBody = 1 << 20 // 1 MiB

// AttemptChecker is the read side of the failed-attempt limiter
type AttemptChecker interface {
	Status(key string) services.RateLimitResult
}

// KeyFunc derives the limiter key for a request
type KeyFunc func(r *http.Request) string

// EmailOrIPKey keys attempts by the email in the request body, falling back
// to the client IP when the body carries none. The body is restored for the
// handler.
func EmailOrIPKey(ipConfig *pkghttp.IPConfig) KeyFunc {
	return func(r *http.Request) string {
		if r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
			if err == nil {
				var peek struct {
					Email string `json:"email"`
				}
				if json.Unmarshal(body, &peek) == nil && peek.Email != "" {
					return "email:" + strings.ToLower(strings.TrimSpace(peek.Email))
				}
			}
		}
		return "ip:" + pkghttp.ExtractClientIP(r, ipConfig)
	}
}

// AccountOrIPKey keys attempts by the authenticated account, falling back to
// the client IP for anonymous requests.
func AccountOrIPKey(ipConfig *pkghttp.IPConfig) KeyFunc {
	return func(r *http.Request) string {
		if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.Subject != "" {
			return "account:" + claims.Subject
		}
		return "ip:" + pkghttp.ExtractClientIP(r, ipConfig)
	}
}

// FailedAttemptGuard rejects requests whose limiter key is inside an active
// block and stashes the key in the context. It never mutates limiter state:
// recording failures and successes is the handler's call, after the outcome
// is known.
func FailedAttemptGuard(limiter AttemptChecker, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)

			if result := limiter.Status(key); result.Blocked {
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				pkghttp.WriteTooManyRequests(w,
					fmt.Sprintf("Too many failed attempts, try again in %d seconds", retryAfter))
				return
			}

			ctx := context.WithValue(r.Context(), AttemptKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AttemptKeyFromContext returns the limiter key stored by FailedAttemptGuard
func AttemptKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(AttemptKeyContextKey).(string)
	return key, ok
}
