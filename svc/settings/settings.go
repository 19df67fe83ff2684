// Package settings reads platform-wide settings from the datastore on every
// call so credential and trial changes made by operators apply immediately.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dmitrymomot/agencyhub/pkg/logger"
)

// Setting keys.
const (
	KeyStripeSecretKey     = "stripe_secret_key"
	KeyStripeWebhookSecret = "stripe_webhook_secret"
	KeyTrialEnabled        = "trial_enabled"
	KeyTrialDays           = "trial_days"
	KeyTrialMaxUsers       = "trial_max_users"
	KeyTrialMaxClients     = "trial_max_clients"
	KeyTrialMaxProposals   = "trial_max_proposals"
)

// DefaultTrialDays applies when neither the request nor the settings give a length.
const DefaultTrialDays = 7

// Store loads raw key/value settings.
type Store interface {
	AllSettings(ctx context.Context) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Trial holds the trial policy.
type Trial struct {
	Enabled      bool
	Days         int
	MaxUsers     *int
	MaxClients   *int
	MaxProposals *int
}

// Provider exposes typed accessors over Store.
type Provider struct {
	store         Store
	webhookSecret string
	log           *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithFallbackWebhookSecret is used when the stripe_webhook_secret setting is empty.
func WithFallbackWebhookSecret(secret string) Option {
	return func(p *Provider) { p.webhookSecret = strings.TrimSpace(secret) }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProvider(store Store, opts ...Option) *Provider {
	if store == nil {
		panic("settings: store is required")
	}
	p := &Provider{store: store, log: logger.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StripeSecretKey returns ErrNotConfigured when no key is stored.
func (p *Provider) StripeSecretKey(ctx context.Context) (string, error) {
	all, err := p.store.AllSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	key := strings.TrimSpace(all[KeyStripeSecretKey])
	if key == "" {
		return "", ErrNotConfigured
	}
	return key, nil
}

// WebhookSecret returns the signing secret, or "" when none is configured
// anywhere.
func (p *Provider) WebhookSecret(ctx context.Context) (string, error) {
	all, err := p.store.AllSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if s := strings.TrimSpace(all[KeyStripeWebhookSecret]); s != "" {
		return s, nil
	}
	return p.webhookSecret, nil
}

// Trial returns the trial policy. Malformed values fall back to defaults and
// are logged.
func (p *Provider) Trial(ctx context.Context) (Trial, error) {
	all, err := p.store.AllSettings(ctx)
	if err != nil {
		return Trial{}, fmt.Errorf("load settings: %w", err)
	}

	t := Trial{Enabled: true, Days: DefaultTrialDays}
	if raw, ok := all[KeyTrialEnabled]; ok && strings.TrimSpace(raw) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			p.warn(ctx, KeyTrialEnabled, err)
		} else {
			t.Enabled = enabled
		}
	}
	if days, ok := p.positiveInt(ctx, all, KeyTrialDays); ok {
		t.Days = days
	}
	if v, ok := p.positiveInt(ctx, all, KeyTrialMaxUsers); ok {
		t.MaxUsers = &v
	}
	if v, ok := p.positiveInt(ctx, all, KeyTrialMaxClients); ok {
		t.MaxClients = &v
	}
	if v, ok := p.positiveInt(ctx, all, KeyTrialMaxProposals); ok {
		t.MaxProposals = &v
	}
	return t, nil
}

// Set stores a single setting. Used by the CLI.
func (p *Provider) Set(ctx context.Context, key, value string) error {
	return p.store.PutSetting(ctx, key, value)
}

func (p *Provider) positiveInt(ctx context.Context, all map[string]string, key string) (int, bool) {
	raw := strings.TrimSpace(all[key])
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err == nil && v <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.warn(ctx, key, err)
		return 0, false
	}
	return v, true
}

func (p *Provider) warn(ctx context.Context, key string, err error) {
	p.log.WarnContext(ctx, "ignoring malformed platform setting",
		logger.Component("settings"),
		slog.String("key", key),
		logger.Error(err),
	)
}
