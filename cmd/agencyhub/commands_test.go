package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/trial"
)

func TestVersionCmd(t *testing.T) {
	oldVersion, oldBuild, oldCommit := Version, BuildTime, GitCommit
	t.Cleanup(func() { Version, BuildTime, GitCommit = oldVersion, oldBuild, oldCommit })

	Version, BuildTime, GitCommit = "1.4.0", "2026-01-15", "abc123"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "agencyhub 1.4.0")
	assert.Contains(t, out.String(), "Built: 2026-01-15")
	assert.Contains(t, out.String(), "Commit: abc123")
}

func TestParsePlans(t *testing.T) {
	t.Parallel()

	t.Run("example catalog", func(t *testing.T) {
		t.Parallel()
		f, err := os.Open("plans.yaml")
		require.NoError(t, err)
		defer f.Close()

		plans, err := parsePlans(f)
		require.NoError(t, err)
		require.Len(t, plans, 3)

		starter := plans[0]
		assert.Equal(t, "Starter", starter.Name)
		assert.True(t, decimal.RequireFromString("29").Equal(starter.MonthlyPrice))
		assert.Equal(t, "USD", starter.Currency)
		assert.Equal(t, "price_starter_yearly", starter.StripePriceIDYearly)
		require.NotNil(t, starter.MaxUsers)
		assert.Equal(t, 3, *starter.MaxUsers)
		assert.True(t, starter.Active)

		enterprise := plans[2]
		assert.Empty(t, enterprise.StripePriceIDYearly)
		assert.True(t, enterprise.YearlyPrice.IsZero())
		assert.Nil(t, enterprise.MaxUsers)
	})

	t.Run("inactive plan", func(t *testing.T) {
		t.Parallel()
		plans, err := parsePlans(strings.NewReader(`
plans:
  - id: 5b0b7c5e-51e1-4d8a-9a39-0f1f3a0c6d11
    name: Legacy
    monthly_price: "10"
    active: false
`))
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.False(t, plans[0].Active)
	})

	cases := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"unknown field", "plans:\n  - id: 5b0b7c5e-51e1-4d8a-9a39-0f1f3a0c6d11\n    name: X\n    price: 1\n"},
		{"bad price", "plans:\n  - id: 5b0b7c5e-51e1-4d8a-9a39-0f1f3a0c6d11\n    name: X\n    monthly_price: ten\n"},
		{"negative price", "plans:\n  - id: 5b0b7c5e-51e1-4d8a-9a39-0f1f3a0c6d11\n    name: X\n    monthly_price: \"-1\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parsePlans(strings.NewReader(tc.yaml))
			assert.Error(t, err)
		})
	}

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()
		_, err := parsePlans(strings.NewReader("plans:\n  - name: X\n"))
		require.Error(t, err)
		assert.True(t, validator.ExtractValidationErrors(err).Has("id"))
	})
}

func TestPrintSteps(t *testing.T) {
	var out bytes.Buffer
	provisioningStatusCmd.SetOut(&out)

	printSteps(provisioningStatusCmd, []string{trial.StepCreateAgency, trial.StepLinkProfile})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(trial.Steps))
	assert.Contains(t, lines[0], "create_agency")
	assert.Contains(t, lines[0], "done")
	assert.Contains(t, lines[2], "assign_role")
	assert.Contains(t, lines[2], "pending")
}
