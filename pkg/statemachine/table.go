package statemachine

import (
	"context"
	"fmt"
)

// Table maps (from, event) pairs to candidate transitions. It is immutable
// after construction and safe for concurrent use.
type Table struct {
	transitions map[string]map[string][]Transition
}

func (t *Table) add(tr Transition) error {
	if tr.From == nil || tr.To == nil || tr.Event == nil {
		return ErrInvalidTransition
	}
	from, event := tr.From.Name(), tr.Event.Name()
	if t.transitions[from] == nil {
		t.transitions[from] = make(map[string][]Transition)
	}
	t.transitions[from][event] = append(t.transitions[from][event], tr)
	return nil
}

// Resolve returns the transition that applies to event from state from.
// A nil from is treated as "no state yet" and only matches Any.
func (t *Table) Resolve(ctx context.Context, from State, event Event, data any) (Transition, error) {
	if event == nil {
		return Transition{}, ErrInvalidEvent
	}

	fromName := ""
	if from != nil {
		fromName = from.Name()
	}

	candidates := append([]Transition{}, t.transitions[fromName][event.Name()]...)
	candidates = append(candidates, t.transitions[Any.Name()][event.Name()]...)
	if len(candidates) == 0 {
		return Transition{}, NewErrNoTransitionAvailable(fromName, event.Name())
	}

	for _, tr := range candidates {
		if guardsPass(ctx, tr.Guards, from, event, data) {
			return tr, nil
		}
	}
	return Transition{}, NewErrTransitionRejected(fromName, event.Name())
}

// Fire resolves the transition, runs its actions in order and returns the
// target state. from is passed to the actions unchanged.
func (t *Table) Fire(ctx context.Context, from State, event Event, data any) (State, error) {
	tr, err := t.Resolve(ctx, from, event, data)
	if err != nil {
		return nil, err
	}
	for _, action := range tr.Actions {
		if err := action(ctx, from, tr.To, event, data); err != nil {
			return nil, fmt.Errorf("action failed: %w", err)
		}
	}
	return tr.To, nil
}

// CanFire reports whether any transition would be selected.
func (t *Table) CanFire(ctx context.Context, from State, event Event, data any) bool {
	_, err := t.Resolve(ctx, from, event, data)
	return err == nil
}

func guardsPass(ctx context.Context, guards []Guard, from State, event Event, data any) bool {
	for _, g := range guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
