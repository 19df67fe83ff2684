package subscription

import (
	"context"
	"slices"

	"github.com/dmitrymomot/agencyhub/pkg/statemachine"
	"github.com/dmitrymomot/agencyhub/svc/payments"
)

// EventType is a processor webhook event the lifecycle reacts to.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventPaymentFailed       EventType = "invoice.payment_failed"
)

// Name makes EventType usable as a statemachine.Event.
func (e EventType) Name() string { return string(e) }

// Handled reports whether the lifecycle has transitions for e.
func (e EventType) Handled() bool {
	switch e {
	case EventCheckoutCompleted, EventSubscriptionUpdated, EventSubscriptionDeleted, EventPaymentFailed:
		return true
	}
	return false
}

// processorState is the transition payload: the processor's own status.
type processorState struct {
	status string
}

func processorStatusIs(statuses ...string) statemachine.Guard {
	return func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		ps, ok := data.(processorState)
		return ok && slices.Contains(statuses, ps.status)
	}
}

// lifecycle is the whole subscription state machine. The processor is the
// source of truth, so every transition applies from any stored status.
// Processor statuses without a local counterpart (unpaid, incomplete,
// paused...) collapse to canceled.
var lifecycle = statemachine.MustNew(
	statemachine.WithTransition(statemachine.Any, StatusTrialing, EventCheckoutCompleted,
		statemachine.WithGuard(processorStatusIs(payments.StatusTrialing))),
	statemachine.WithTransition(statemachine.Any, StatusActive, EventCheckoutCompleted),

	statemachine.WithTransition(statemachine.Any, StatusTrialing, EventSubscriptionUpdated,
		statemachine.WithGuard(processorStatusIs(payments.StatusTrialing))),
	statemachine.WithTransition(statemachine.Any, StatusActive, EventSubscriptionUpdated,
		statemachine.WithGuard(processorStatusIs(payments.StatusActive))),
	statemachine.WithTransition(statemachine.Any, StatusPastDue, EventSubscriptionUpdated,
		statemachine.WithGuard(processorStatusIs(payments.StatusPastDue))),
	statemachine.WithTransition(statemachine.Any, StatusCanceled, EventSubscriptionUpdated),

	statemachine.WithTransition(statemachine.Any, StatusCanceled, EventSubscriptionDeleted),
	statemachine.WithTransition(statemachine.Any, StatusPastDue, EventPaymentFailed),
)

// NextStatus returns the status event moves a subscription to. current is ""
// when the agency has no subscription yet; processorStatus is the
// processor's status of the subscription, when the event carries one.
func NextStatus(ctx context.Context, current Status, event EventType, processorStatus string) (Status, error) {
	var from statemachine.State
	if current != "" {
		from = current
	}
	to, err := lifecycle.Fire(ctx, from, event, processorState{status: processorStatus})
	if err != nil {
		return "", err
	}
	return to.(Status), nil
}
