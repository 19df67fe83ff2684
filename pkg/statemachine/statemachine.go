// Package statemachine declares transition tables for entities whose state
// lives in a datastore row rather than in memory.
//
// A Table holds no current state. Callers load the row, ask the table where a
// given event leads from the stored state, and persist the result:
//
//	table := statemachine.MustNew(
//		statemachine.WithTransition(Trialing, Active, Paid),
//		statemachine.WithTransition(statemachine.Any, Canceled, Deleted),
//	)
//	next, err := table.Fire(ctx, row.Status, Paid, row)
//
// Several transitions may share a (from, event) pair; the first one whose
// guards all pass wins, so declaration order is priority order. Transitions
// declared from a concrete state are tried before those declared from Any.
package statemachine

import "context"

// State is anything with a stable name.
type State interface {
	Name() string
}

// Event triggers transitions.
type Event interface {
	Name() string
}

// Guard decides whether a transition applies to the given payload.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs once a transition is selected. An error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition is a single row of the table.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StringState is a State backed by a string.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is an Event backed by a string.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }

// Any matches every source state, including an empty one.
const Any = StringState("*")
