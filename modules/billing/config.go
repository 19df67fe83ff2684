package billing

import (
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
)

// Config holds the process level settings of the billing module. Processor
// credentials and trial defaults are platform settings, not process config.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"agencyhub"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	// WebhookSecret is used when the stripe_webhook_secret setting is empty.
	WebhookSecret         string `env:"STRIPE_WEBHOOK_SECRET"`
	AllowUnsignedWebhooks bool   `env:"BILLING_ALLOW_UNSIGNED_WEBHOOKS" envDefault:"false"`
	StripeAPIURL          string `env:"STRIPE_API_URL"`
	Currency              string `env:"BILLING_CURRENCY" envDefault:"usd"`

	// EventLedger selects where processed webhook ids are kept: postgres or redis.
	EventLedger    string `env:"EVENT_LEDGER" envDefault:"postgres"`
	AuthUserHeader string `env:"AUTH_USER_HEADER" envDefault:"X-User-ID"`
	BillingURL     string `env:"BILLING_URL" envDefault:"/billing"`

	// RateLimitPerMinute caps API requests per client IP. Zero disables it.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// AppUpstreamURL is the application shell served behind the access gate
	// under /app. Empty disables the proxy.
	AppUpstreamURL string `env:"APP_UPSTREAM_URL"`
}

const (
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// UserHeader returns the identity header, falling back to the tenant default.
func (c Config) UserHeader() string {
	if c.AuthUserHeader == "" {
		return tenant.DefaultUserHeader
	}
	return c.AuthUserHeader
}
