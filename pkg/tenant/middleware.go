package tenant

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultUserHeader is set by the upstream auth layer.
const DefaultUserHeader = "X-User-ID"

// Middleware stores the caller id from header in the request context.
// Requests without a valid id pass through anonymously; handlers that need a
// caller check UserIDFromContext.
func Middleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultUserHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(header))
			if raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					r = r.WithContext(WithUserID(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
