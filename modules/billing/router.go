// Package billing exposes checkout, trial provisioning, webhook intake and
// access checks over HTTP.
package billing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/binder"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
	"github.com/dmitrymomot/agencyhub/svc/access"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/checkout"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
	"github.com/dmitrymomot/agencyhub/svc/payments"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
	"github.com/dmitrymomot/agencyhub/svc/trial"
)

type CheckoutBuilder interface {
	CreateCheckout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type TrialProvisioner interface {
	Provision(ctx context.Context, req trial.Request) (*trial.Result, error)
}

type EventProcessor interface {
	Process(ctx context.Context, evt payments.Event) (subscription.Result, error)
}

// WebhookSecrets returns the signing secret, or "" when none is configured.
type WebhookSecrets interface {
	WebhookSecret(ctx context.Context) (string, error)
}

type AccessChecker interface {
	Check(ctx context.Context, userID uuid.UUID) (access.Decision, error)
}

type CouponChecker interface {
	Validate(ctx context.Context, code string, asOf time.Time, planID *uuid.UUID) (*coupon.Coupon, error)
}

// RouterOptions configures which endpoints to mount. Each endpoint is only
// mounted when its service is provided.
type RouterOptions struct {
	Checkout  CheckoutBuilder
	Trials    TrialProvisioner
	Processor EventProcessor
	Secrets   WebhookSecrets
	Access    AccessChecker
	Coupons   CouponChecker

	// Profiles restricts checkout to members of the agency when set.
	Profiles agency.ProfileStore

	// Throttle wraps the caller-facing endpoints. Webhook deliveries come
	// from a few processor addresses and are never throttled.
	Throttle func(http.Handler) http.Handler

	AllowUnsignedWebhooks bool
	Logger                *slog.Logger
	Now                   func() time.Time
}

type module struct {
	opts    RouterOptions
	log     *slog.Logger
	onError handler.ErrorHandler
}

// Router creates the billing API router. Mount it under /api/v1 behind
// tenant.Middleware.
//
//	r.Mount("/api/v1", billing.Router(billing.RouterOptions{
//		Checkout:  builder,
//		Processor: processor,
//		Secrets:   provider,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &module{
		opts:    opts,
		log:     opts.Logger.With(logger.Component("billing")),
		onError: handler.NewErrorHandler(opts.Logger, ErrorRules...),
	}

	r := chi.NewRouter()
	if opts.Processor != nil && opts.Secrets != nil {
		r.Post("/webhooks/stripe", handler.Wrap[webhookRequest](m.receiveWebhook,
			handler.WithBinders[webhookRequest](bindWebhook),
			handler.WithErrorHandler[webhookRequest](m.onError),
		))
	}

	r.Group(func(r chi.Router) {
		if opts.Throttle != nil {
			r.Use(opts.Throttle)
		}
		if opts.Checkout != nil {
			r.Post("/checkout", handler.Wrap[checkoutRequest](m.createCheckout,
				handler.WithBinders[checkoutRequest](binder.JSON),
				handler.WithDecorators[checkoutRequest](requireCaller[checkoutRequest]),
				handler.WithErrorHandler[checkoutRequest](m.onError),
			))
		}
		if opts.Trials != nil {
			r.Post("/trials", handler.Wrap[trialRequest](m.provisionTrial,
				handler.WithBinders[trialRequest](binder.JSON),
				handler.WithDecorators[trialRequest](requireCaller[trialRequest]),
				handler.WithErrorHandler[trialRequest](m.onError),
			))
		}
		if opts.Access != nil {
			r.Get("/access", handler.Wrap[accessRequest](m.checkAccess,
				handler.WithDecorators[accessRequest](requireCaller[accessRequest]),
				handler.WithErrorHandler[accessRequest](m.onError),
			))
		}
		if opts.Coupons != nil {
			r.Get("/coupons/{code}", handler.Wrap[couponRequest](m.previewCoupon,
				handler.WithBinders[couponRequest](bindCouponQuery),
				handler.WithDecorators[couponRequest](requireCaller[couponRequest]),
				handler.WithErrorHandler[couponRequest](m.onError),
			))
		}
	})
	return r
}

// requireCaller rejects requests without an authenticated user.
func requireCaller[R any](next handler.HandlerFunc[R]) handler.HandlerFunc[R] {
	return func(ctx handler.Context, req R) handler.Response {
		if _, ok := tenant.UserIDFromContext(ctx); !ok {
			return handler.Error(ErrUnauthenticated)
		}
		return next(ctx, req)
	}
}
