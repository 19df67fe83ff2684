package billing

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/binder"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/metrics"
	"github.com/dmitrymomot/agencyhub/svc/payments"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

// webhookRequest keeps the raw body; the signature covers exact bytes.
type webhookRequest struct {
	Payload   []byte
	Signature string
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
}

func bindWebhook(r *http.Request, v any) error {
	req, ok := v.(*webhookRequest)
	if !ok {
		return fmt.Errorf("bind webhook: unexpected target %T", v)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, binder.DefaultMaxJSONSize+1))
	if err != nil {
		return fmt.Errorf("%w: %w", payments.ErrMalformedEvent, err)
	}
	if len(body) > binder.DefaultMaxJSONSize {
		return fmt.Errorf("%w: body too large", payments.ErrMalformedEvent)
	}
	req.Payload = body
	req.Signature = r.Header.Get(payments.SignatureHeader)
	return nil
}

// receiveWebhook answers 200 for applied, duplicate and ignored events and
// 400 for deliveries that can never succeed. Datastore and processor
// failures answer 5xx without recording the event so the processor
// redelivers it.
func (m *module) receiveWebhook(ctx handler.Context, req webhookRequest) handler.Response {
	start := time.Now()

	evt, err := m.readEvent(ctx, req)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return handler.Error(err)
	}

	label := eventLabel(evt.Type)
	defer func() {
		metrics.WebhookDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	res, err := m.opts.Processor.Process(ctx, evt)
	if errors.Is(err, payments.ErrMalformedEvent) {
		metrics.WebhookEventsTotal.WithLabelValues(label, "rejected").Inc()
		return handler.Error(err)
	}
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(label, "failed").Inc()
		return handler.Error(err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(label, string(res.Outcome)).Inc()

	m.log.DebugContext(ctx, "webhook handled",
		logger.EventID(evt.ID),
		logger.EventType(evt.Type),
		logger.Reason(res.Reason),
	)
	return handler.JSON(webhookResponse{Received: true, Outcome: string(res.Outcome), Reason: res.Reason},
		handler.WithoutEnvelope())
}

func (m *module) readEvent(ctx handler.Context, req webhookRequest) (payments.Event, error) {
	secret, err := m.opts.Secrets.WebhookSecret(ctx)
	if err != nil {
		return payments.Event{}, err
	}
	if secret != "" {
		return payments.VerifyEvent(req.Payload, req.Signature, secret)
	}
	if !m.opts.AllowUnsignedWebhooks {
		return payments.Event{}, errWebhookSecretMissing
	}
	m.log.WarnContext(ctx, "accepting unsigned webhook delivery")
	return payments.ParseEvent(req.Payload)
}

// eventLabel bounds the metric label set to the handled event types.
func eventLabel(eventType string) string {
	if subscription.EventType(eventType).Handled() {
		return eventType
	}
	return "other"
}
