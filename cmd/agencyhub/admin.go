package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/agencyhub/svc/settings"
	"github.com/dmitrymomot/agencyhub/svc/trial"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Platform settings management",
}

var settingKeys = []string{
	settings.KeyStripeSecretKey,
	settings.KeyStripeWebhookSecret,
	settings.KeyTrialEnabled,
	settings.KeyTrialDays,
	settings.KeyTrialMaxUsers,
	settings.KeyTrialMaxClients,
	settings.KeyTrialMaxProposals,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store a platform setting; it applies on the next request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(settingKeys, args[0]) {
			return fmt.Errorf("unknown setting %q, expected one of %v", args[0], settingKeys)
		}
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return settings.NewProvider(a.store.Settings, settings.WithLogger(a.log)).Set(ctx, args[0], args[1])
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Processed webhook event ledger",
}

var pruneRetention time.Duration

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete processed event ids older than the retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.store.Events.Prune(ctx, pruneRetention)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d events\n", n)
		return nil
	},
}

var provisioningCmd = &cobra.Command{
	Use:   "provisioning",
	Short: "Trial provisioning diagnostics",
}

var provisioningStatusCmd = &cobra.Command{
	Use:   "status AGENCY_ID",
	Short: "Show which provisioning steps finished for an agency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agencyID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid agency id: %w", err)
		}
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		done, err := a.store.Steps.CompletedSteps(ctx, agencyID)
		if err != nil {
			return err
		}
		printSteps(cmd, done)
		return nil
	},
}

func printSteps(cmd *cobra.Command, done []string) {
	for _, step := range trial.Steps {
		mark := "pending"
		if slices.Contains(done, step) {
			mark = "done"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", step, mark)
	}
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)

	eventsPruneCmd.Flags().DurationVar(&pruneRetention, "older-than", 30*24*time.Hour, "retention of processed event ids")
	eventsCmd.AddCommand(eventsPruneCmd)

	provisioningCmd.AddCommand(provisioningStatusCmd)
}
