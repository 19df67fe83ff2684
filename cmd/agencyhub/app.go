package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/agencyhub/migrations"
	"github.com/dmitrymomot/agencyhub/modules/billing"
	"github.com/dmitrymomot/agencyhub/pkg/config"
	"github.com/dmitrymomot/agencyhub/pkg/environment"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/pg"
	"github.com/dmitrymomot/agencyhub/pkg/requestid"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
	"github.com/dmitrymomot/agencyhub/store/postgres"
)

// app holds what every command needs: config, logger and the datastore.
type app struct {
	cfg   billing.Config
	pgCfg pg.Config
	env   environment.Environment
	log   *slog.Logger
	pool  *pgxpool.Pool
	store *postgres.Store
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{}
	if err := config.Load(&a.cfg); err != nil {
		return nil, fmt.Errorf("load billing config: %w", err)
	}
	if err := config.Load(&a.pgCfg); err != nil {
		return nil, fmt.Errorf("load postgres config: %w", err)
	}
	a.env = environment.Parse(a.cfg.Environment)
	a.log = logger.New(
		logger.WithEnvironment(a.env, a.cfg.AppName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			environment.LoggerExtractor(),
			tenant.UserLoggerExtractor(),
			tenant.AgencyLoggerExtractor(),
		),
	)

	pool, err := pg.Connect(ctx, a.pgCfg)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.store = postgres.New(pool)
	return a, nil
}

func (a *app) migrate(ctx context.Context) error {
	return pg.Migrate(ctx, a.pool, migrations.FS, a.pgCfg, a.log)
}

func (a *app) Close() {
	a.pool.Close()
}
