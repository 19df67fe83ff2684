package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/agencyhub/modules/billing"
	"github.com/dmitrymomot/agencyhub/pkg/config"
	"github.com/dmitrymomot/agencyhub/pkg/environment"
	"github.com/dmitrymomot/agencyhub/pkg/httpserver"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/metrics"
	"github.com/dmitrymomot/agencyhub/pkg/pg"
	"github.com/dmitrymomot/agencyhub/pkg/ratelimit"
	"github.com/dmitrymomot/agencyhub/pkg/redis"
	"github.com/dmitrymomot/agencyhub/pkg/requestid"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
	"github.com/dmitrymomot/agencyhub/store/redisstore"
	"github.com/dmitrymomot/agencyhub/svc/access"
	"github.com/dmitrymomot/agencyhub/svc/checkout"
	"github.com/dmitrymomot/agencyhub/svc/coupon"
	"github.com/dmitrymomot/agencyhub/svc/payments"
	"github.com/dmitrymomot/agencyhub/svc/settings"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
	"github.com/dmitrymomot/agencyhub/svc/trial"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServer(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrateOnStart {
		if err := a.migrate(ctx); err != nil {
			return err
		}
	}

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return fmt.Errorf("load http config: %w", err)
	}

	readiness := []func(context.Context) error{pg.Healthcheck(a.pool)}

	var ledger subscription.EventLedger = a.store.Events
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if a.cfg.EventLedger == billing.LedgerRedis {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return fmt.Errorf("load redis config: %w", err)
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		ledger = redisstore.NewEventLedger(client)
		limitStore = ratelimit.NewRedisStore(client, "")
		readiness = append(readiness, redis.Healthcheck(client))
	}
	if mem, ok := limitStore.(*ratelimit.MemoryStore); ok {
		go sweep(ctx, mem, time.Minute)
	}

	provider := settings.NewProvider(a.store.Settings,
		settings.WithFallbackWebhookSecret(a.cfg.WebhookSecret),
		settings.WithLogger(a.log),
	)
	factory := payments.NewStripeFactory(a.cfg.StripeAPIURL)
	validator := coupon.NewValidator(a.store.Coupons)

	builder := checkout.NewBuilder(a.store.Subscriptions, a.store.Subscriptions, validator, provider, factory,
		checkout.WithLogger(a.log),
		checkout.WithDefaultCurrency(a.cfg.Currency),
	)
	processor := subscription.NewProcessor(a.store.Subscriptions, ledger, a.store.Coupons, provider, factory,
		subscription.WithLogger(a.log),
	)
	trials := trial.NewService(a.store.Agencies, a.store.Agencies, a.store.Agencies, a.store.Subscriptions, a.store.Agencies, provider,
		trial.WithLogger(a.log),
		trial.WithStepRecorder(a.store.Steps),
	)
	gate := access.NewGate(a.store.Agencies, a.store.Agencies, a.store.Subscriptions, access.WithLogger(a.log))

	if a.cfg.AllowUnsignedWebhooks {
		if a.env.IsProduction() {
			return fmt.Errorf("BILLING_ALLOW_UNSIGNED_WEBHOOKS must not be set in production")
		}
		a.log.WarnContext(ctx, "unsigned webhook deliveries are accepted when no signing secret is configured")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(environment.Middleware(a.env))
	r.Use(tenant.Middleware(a.cfg.UserHeader()))

	r.Get("/healthz", httpserver.HealthCheckHandler(a.log))
	r.Get("/readyz", httpserver.HealthCheckHandler(a.log, readiness...))
	r.Handle("/metrics", metrics.Handler())

	var throttle func(http.Handler) http.Handler
	if a.cfg.RateLimitPerMinute > 0 {
		limiter, err := ratelimit.New(limitStore, a.cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			return err
		}
		throttle = ratelimit.Middleware(limiter, ratelimit.ByClientIP("api"), a.log)
	}

	r.Mount("/api/v1", billing.Router(billing.RouterOptions{
		Checkout:              builder,
		Trials:                trials,
		Processor:             processor,
		Secrets:               provider,
		Access:                gate,
		Coupons:               validator,
		Profiles:              a.store.Agencies,
		Throttle:              throttle,
		AllowUnsignedWebhooks: a.cfg.AllowUnsignedWebhooks,
		Logger:                a.log,
	}))

	if a.cfg.AppUpstreamURL != "" {
		upstream, err := url.Parse(a.cfg.AppUpstreamURL)
		if err != nil {
			return fmt.Errorf("parse APP_UPSTREAM_URL: %w", err)
		}
		shell := httputil.NewSingleHostReverseProxy(upstream)
		r.With(access.Middleware(gate,
			access.WithBillingURL(a.cfg.BillingURL),
			access.WithMiddlewareLogger(a.log),
		)).Handle("/app/*", shell)
	}

	a.log.InfoContext(ctx, "starting server", logger.Component("http"), "addr", httpCfg.Addr)
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(a.log))
	return srv.Run(ctx, r)
}

func sweep(ctx context.Context, store *ratelimit.MemoryStore, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			store.Sweep()
		}
	}
}
