package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

var seedPlansCmd = &cobra.Command{
	Use:   "seed-plans FILE",
	Short: "Create or update subscription plans from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		plans, err := parsePlans(f)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		for i := range plans {
			if err := a.store.Subscriptions.UpsertPlan(ctx, &plans[i]); err != nil {
				return fmt.Errorf("plan %q: %w", plans[i].Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", plans[i].ID, plans[i].Name)
		}
		return nil
	},
}

type planCatalog struct {
	Plans []planEntry `yaml:"plans"`
}

type planEntry struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	MonthlyPrice       string   `yaml:"monthly_price"`
	YearlyPrice        string   `yaml:"yearly_price"`
	Currency           string   `yaml:"currency"`
	StripePriceMonthly string   `yaml:"stripe_price_monthly"`
	StripePriceYearly  string   `yaml:"stripe_price_yearly"`
	MaxUsers           *int     `yaml:"max_users"`
	MaxClients         *int     `yaml:"max_clients"`
	MaxProposals       *int     `yaml:"max_proposals"`
	TrialDays          int      `yaml:"trial_days"`
	Modules            []string `yaml:"modules"`
	Active             *bool    `yaml:"active"`
}

// parsePlans reads a plan catalog. Ids are required so reseeding updates
// the same rows; plans are active unless stated otherwise.
func parsePlans(r io.Reader) ([]subscription.Plan, error) {
	var catalog planCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("plan catalog is empty")
		}
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}

	plans := make([]subscription.Plan, 0, len(catalog.Plans))
	for i, e := range catalog.Plans {
		plan, err := e.toPlan()
		if err != nil {
			return nil, fmt.Errorf("plans[%d]: %w", i, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (e planEntry) toPlan() (subscription.Plan, error) {
	if err := validator.Apply(
		validator.ValidUUID("id", e.ID),
		validator.RequiredString("name", e.Name),
		validator.MinNum("trial_days", e.TrialDays, 0),
	); err != nil {
		return subscription.Plan{}, err
	}

	monthly, err := price(e.MonthlyPrice)
	if err != nil {
		return subscription.Plan{}, fmt.Errorf("monthly_price: %w", err)
	}
	yearly, err := price(e.YearlyPrice)
	if err != nil {
		return subscription.Plan{}, fmt.Errorf("yearly_price: %w", err)
	}

	active := true
	if e.Active != nil {
		active = *e.Active
	}
	return subscription.Plan{
		ID:                   uuid.MustParse(e.ID),
		Name:                 strings.TrimSpace(e.Name),
		MonthlyPrice:         monthly,
		YearlyPrice:          yearly,
		Currency:             strings.ToUpper(strings.TrimSpace(e.Currency)),
		StripePriceIDMonthly: e.StripePriceMonthly,
		StripePriceIDYearly:  e.StripePriceYearly,
		MaxUsers:             e.MaxUsers,
		MaxClients:           e.MaxClients,
		MaxProposals:         e.MaxProposals,
		TrialDays:            e.TrialDays,
		Modules:              e.Modules,
		Active:               active,
	}, nil
}

func price(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return d, nil
}
