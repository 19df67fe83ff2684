package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader carries the processor signature of a webhook delivery.
const SignatureHeader = "Stripe-Signature"

// Event is a webhook delivery envelope. Data holds the raw event object.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Data    json.RawMessage
}

// VerifyEvent checks the signature header against secret and parses payload.
// Deliveries signed with another API version are accepted; only the fields
// decoded below are relied on.
func VerifyEvent(payload []byte, signature, secret string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	out := Event{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
	}
	if evt.Data != nil {
		out.Data = evt.Data.Raw
	}
	if out.ID == "" || out.Type == "" || len(out.Data) == 0 {
		return Event{}, ErrMalformedEvent
	}
	return out, nil
}

// ParseEvent decodes an unsigned envelope. Only used when signature
// verification is explicitly disabled.
func ParseEvent(payload []byte) (Event, error) {
	var env struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" || len(env.Data.Object) == 0 || bytes.Equal(env.Data.Object, []byte("null")) {
		return Event{}, ErrMalformedEvent
	}
	return Event{
		ID:      env.ID,
		Type:    env.Type,
		Created: time.Unix(env.Created, 0).UTC(),
		Data:    env.Data.Object,
	}, nil
}

// CheckoutSession is the part of a checkout.session object the core reads.
type CheckoutSession struct {
	ID             string            `json:"id"`
	CustomerID     expandableID      `json:"customer"`
	SubscriptionID expandableID      `json:"subscription"`
	Metadata       map[string]string `json:"metadata"`
}

// Invoice is the part of an invoice object the core reads.
type Invoice struct {
	ID             string
	SubscriptionID string
}

// CheckoutSession decodes Data as a checkout session.
func (e Event) CheckoutSession() (*CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return nil, fmt.Errorf("%w: checkout session: %w", ErrMalformedEvent, err)
	}
	return &s, nil
}

// Subscription decodes Data as a subscription.
func (e Event) Subscription() (*Subscription, error) {
	s, err := DecodeSubscription(e.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: subscription: %w", ErrMalformedEvent, err)
	}
	return s, nil
}

// Invoice decodes Data as an invoice. The subscription reference is read
// from the top level field or, on newer API versions, from
// parent.subscription_details.
func (e Event) Invoice() (*Invoice, error) {
	var raw struct {
		ID           string       `json:"id"`
		Subscription expandableID `json:"subscription"`
		Parent       *struct {
			SubscriptionDetails *struct {
				Subscription expandableID `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
	}
	if err := json.Unmarshal(e.Data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invoice: %w", ErrMalformedEvent, err)
	}

	inv := &Invoice{ID: raw.ID, SubscriptionID: string(raw.Subscription)}
	if inv.SubscriptionID == "" && raw.Parent != nil && raw.Parent.SubscriptionDetails != nil {
		inv.SubscriptionID = string(raw.Parent.SubscriptionDetails.Subscription)
	}
	return inv, nil
}

// DecodeSubscription reads a subscription object. Billing period bounds are
// taken from the top level, or from the first item on API versions that moved
// them there.
func DecodeSubscription(data []byte) (*Subscription, error) {
	var raw struct {
		ID                 string            `json:"id"`
		Customer           expandableID      `json:"customer"`
		Status             string            `json:"status"`
		CurrentPeriodStart int64             `json:"current_period_start"`
		CurrentPeriodEnd   int64             `json:"current_period_end"`
		Metadata           map[string]string `json:"metadata"`
		Items              struct {
			Data []struct {
				CurrentPeriodStart int64 `json:"current_period_start"`
				CurrentPeriodEnd   int64 `json:"current_period_end"`
			} `json:"data"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	start, end := raw.CurrentPeriodStart, raw.CurrentPeriodEnd
	if (start == 0 || end == 0) && len(raw.Items.Data) > 0 {
		start, end = raw.Items.Data[0].CurrentPeriodStart, raw.Items.Data[0].CurrentPeriodEnd
	}

	sub := &Subscription{
		ID:         raw.ID,
		CustomerID: string(raw.Customer),
		Status:     raw.Status,
		Metadata:   raw.Metadata,
	}
	if start > 0 {
		sub.CurrentPeriodStart = time.Unix(start, 0).UTC()
	}
	if end > 0 {
		sub.CurrentPeriodEnd = time.Unix(end, 0).UTC()
	}
	return sub, nil
}

// expandableID accepts either an id string or an expanded object with an id.
type expandableID string

func (id *expandableID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*id = expandableID(obj.ID)
	return nil
}
