package access

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
)

// DaysLeftHeader is set on allowed responses inside the warning window.
const DaysLeftHeader = "X-Subscription-Days-Left"

type decisionKey struct{}

// DecisionFromContext returns the decision Middleware stored for the request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(Decision)
	return d, ok
}

type middlewareConfig struct {
	billingURL string
	log        *slog.Logger
}

type MiddlewareOption func(*middlewareConfig)

// WithBillingURL is linked from the blocked page.
func WithBillingURL(url string) MiddlewareOption {
	return func(c *middlewareConfig) {
		if url != "" {
			c.billingURL = url
		}
	}
}

func WithMiddlewareLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Middleware lets allowed callers through and answers blocked ones with 402:
// an HTML interstitial for browsers, a JSON error otherwise. It expects
// tenant.Middleware to run first.
func Middleware(gate *Gate, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{billingURL: "/billing", log: logger.Discard()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := tenant.UserIDFromContext(r.Context())
			if !ok {
				render(w, r, cfg.log, handler.JSONError(handler.Classify(handler.ErrUnauthorized)))
				return
			}

			d, err := gate.Check(r.Context(), userID)
			if err != nil {
				cfg.log.ErrorContext(r.Context(), "access check failed", logger.Component("access"), logger.Error(err))
				render(w, r, cfg.log, handler.JSONError(handler.Classify(err)))
				return
			}

			if !d.Allowed() {
				if wantsHTML(r) {
					render(w, r, cfg.log, handler.Templ(BlockedPage(d, cfg.billingURL), http.StatusPaymentRequired))
					return
				}
				info := handler.Classify(handler.ErrPaymentRequired)
				render(w, r, cfg.log, handler.JSONError(info, handler.WithJSONMeta(map[string]any{"access": d})))
				return
			}

			if d.Warn {
				w.Header().Set(DaysLeftHeader, strconv.Itoa(d.DaysLeft))
			}
			ctx := context.WithValue(r.Context(), decisionKey{}, d)
			if d.AgencyID != nil {
				ctx = tenant.WithAgencyID(ctx, *d.AgencyID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func render(w http.ResponseWriter, r *http.Request, log *slog.Logger, resp handler.Response) {
	if err := resp.Render(w, r); err != nil {
		log.ErrorContext(r.Context(), "failed to render access response", logger.Error(err))
	}
}
