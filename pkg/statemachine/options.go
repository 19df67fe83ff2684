package statemachine

import "fmt"

// Option adds transitions to a Table under construction.
type Option func(*Table) error

// TransitionOption attaches guards and actions to one transition.
type TransitionOption func(*Transition)

// New builds a Table from opts.
func New(opts ...Option) (*Table, error) {
	t := &Table{transitions: make(map[string]map[string][]Transition)}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for tables declared at package init.
func MustNew(opts ...Option) *Table {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create transition table: %v", err))
	}
	return t
}

// WithTransition declares from --event--> to.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(t *Table) error {
		tr := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&tr)
		}
		if err := t.add(tr); err != nil {
			return fmt.Errorf("transition %s -> %s on %s: %w", nameOf(from), nameOf(to), nameOf(event), err)
		}
		return nil
	}
}

func WithGuard(g Guard) TransitionOption {
	return func(tr *Transition) {
		if g != nil {
			tr.Guards = append(tr.Guards, g)
		}
	}
}

func WithAction(a Action) TransitionOption {
	return func(tr *Transition) {
		if a != nil {
			tr.Actions = append(tr.Actions, a)
		}
	}
}

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
