package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/binder"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/checkout"
	"github.com/dmitrymomot/agencyhub/svc/payments"
	"github.com/dmitrymomot/agencyhub/svc/settings"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
	"github.com/dmitrymomot/agencyhub/svc/trial"
)

var (
	ErrUnauthenticated = errors.New("missing or invalid caller identity")
	ErrForeignAgency   = errors.New("caller does not belong to the agency")

	errWebhookSecretMissing = fmt.Errorf("%w: webhook signing secret", settings.ErrNotConfigured)
)

// ErrorRules maps domain errors to responses. Rules are checked in order.
var ErrorRules = []handler.ErrorRule{
	{Target: ErrUnauthenticated, HTTP: handler.ErrUnauthorized},
	{Target: ErrForeignAgency, HTTP: handler.ErrForbidden},
	{Target: binder.ErrUnsupportedMediaType, HTTP: handler.ErrUnsupportedMedia},
	{Target: binder.ErrMissingContentType, HTTP: handler.ErrUnsupportedMedia},
	{Target: binder.ErrFailedToParseJSON, HTTP: handler.ErrBadRequest},
	{Target: payments.ErrInvalidSignature, HTTP: handler.NewHTTPError(http.StatusBadRequest, "invalid_signature")},
	{Target: payments.ErrMalformedEvent, HTTP: handler.NewHTTPError(http.StatusBadRequest, "malformed_event")},
	{Target: payments.ErrProcessor, HTTP: handler.NewHTTPError(http.StatusBadGateway, "processor_error")},
	{Target: settings.ErrNotConfigured, HTTP: handler.NewHTTPError(http.StatusServiceUnavailable, "not_configured")},
	{Target: subscription.ErrPlanNotFound, HTTP: handler.NewHTTPError(http.StatusNotFound, "plan_not_found")},
	{Target: checkout.ErrPlanNotPurchasable, HTTP: handler.NewHTTPError(http.StatusUnprocessableEntity, "plan_not_purchasable")},
	{Target: trial.ErrTrialDisabled, HTTP: handler.NewHTTPError(http.StatusForbidden, "trial_disabled")},
	{Target: trial.ErrAlreadyProvisioned, HTTP: handler.NewHTTPError(http.StatusConflict, "already_provisioned")},
	{Target: agency.ErrProfileNotFound, HTTP: handler.NewHTTPError(http.StatusNotFound, "profile_not_found")},
}
