package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/agencyhub/pkg/clientip"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
)

// KeyFunc extracts the rate limit key of a request. An empty key skips
// limiting.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by caller address under scope.
func ByClientIP(scope string) KeyFunc {
	return func(r *http.Request) string {
		ip := clientip.FromRequest(r)
		if ip == "" {
			return ""
		}
		return scope + ":" + ip
	}
}

// Middleware answers 429 once the key exceeds the limit. Store failures let
// the request through and are logged.
func Middleware(l *Limiter, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if key == nil {
		panic("ratelimit: key func is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), k)
			if err != nil {
				log.WarnContext(r.Context(), "rate limit check failed", logger.Component("ratelimit"), logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(res.RetryAfter().Seconds()))))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
