package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/pkg/statemachine"
)

const (
	pending = statemachine.StringState("pending")
	active  = statemachine.StringState("active")
	closed  = statemachine.StringState("closed")

	activate = statemachine.StringEvent("activate")
	update   = statemachine.StringEvent("update")
	shutdown = statemachine.StringEvent("shutdown")
)

func payloadIs(want string) statemachine.Guard {
	return func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		s, _ := data.(string)
		return s == want
	}
}

func TestTableFire(t *testing.T) {
	t.Parallel()

	table := statemachine.MustNew(
		statemachine.WithTransition(pending, active, activate),
		statemachine.WithTransition(statemachine.Any, active, update, statemachine.WithGuard(payloadIs("active"))),
		statemachine.WithTransition(statemachine.Any, closed, update),
		statemachine.WithTransition(statemachine.Any, closed, shutdown),
	)
	ctx := context.Background()

	t.Run("concrete transition", func(t *testing.T) {
		t.Parallel()
		to, err := table.Fire(ctx, pending, activate, nil)
		require.NoError(t, err)
		assert.Equal(t, active, to)
	})

	t.Run("no transition declared", func(t *testing.T) {
		t.Parallel()
		_, err := table.Fire(ctx, closed, activate, nil)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.False(t, table.CanFire(ctx, closed, activate, nil))
	})

	t.Run("guard ordering picks first match", func(t *testing.T) {
		t.Parallel()
		to, err := table.Fire(ctx, pending, update, "active")
		require.NoError(t, err)
		assert.Equal(t, active, to)

		to, err = table.Fire(ctx, active, update, "something else")
		require.NoError(t, err)
		assert.Equal(t, closed, to)
	})

	t.Run("wildcard matches missing state", func(t *testing.T) {
		t.Parallel()
		to, err := table.Fire(ctx, nil, shutdown, nil)
		require.NoError(t, err)
		assert.Equal(t, closed, to)
	})

	t.Run("nil event", func(t *testing.T) {
		t.Parallel()
		_, err := table.Fire(ctx, pending, nil, nil)
		assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)
	})
}

func TestTableGuardsAndActions(t *testing.T) {
	t.Parallel()

	var calls []string
	boom := errors.New("boom")

	table, err := statemachine.New(
		statemachine.WithTransition(pending, active, activate,
			statemachine.WithGuard(payloadIs("ok")),
			statemachine.WithAction(func(_ context.Context, from, to statemachine.State, _ statemachine.Event, _ any) error {
				calls = append(calls, from.Name()+"->"+to.Name())
				return nil
			}),
		),
		statemachine.WithTransition(active, closed, shutdown,
			statemachine.WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
				return boom
			}),
		),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = table.Fire(ctx, pending, activate, "nope")
	assert.True(t, statemachine.IsTransitionRejectedError(err))
	assert.Empty(t, calls)

	to, err := table.Fire(ctx, pending, activate, "ok")
	require.NoError(t, err)
	assert.Equal(t, active, to)
	assert.Equal(t, []string{"pending->active"}, calls)

	_, err = table.Fire(ctx, active, shutdown, nil)
	assert.ErrorIs(t, err, boom)
}

func TestNewRejectsNilStates(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(statemachine.WithTransition(nil, active, activate))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)
	assert.Panics(t, func() {
		statemachine.MustNew(statemachine.WithTransition(pending, nil, activate))
	})
}
