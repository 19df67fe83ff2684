package billing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/agency"
	"github.com/dmitrymomot/agencyhub/svc/checkout"
	"github.com/dmitrymomot/agencyhub/svc/subscription"
)

type checkoutRequest struct {
	PlanID       string `json:"plan_id"`
	BillingCycle string `json:"billing_cycle"`
	AgencyID     string `json:"agency_id"`
	AgencyName   string `json:"agency_name"`
	AgencyEmail  string `json:"agency_email"`
	CouponCode   string `json:"coupon_code,omitempty"`
	SuccessURL   string `json:"success_url"`
	CancelURL    string `json:"cancel_url"`
}

type checkoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

func (m *module) createCheckout(ctx handler.Context, req checkoutRequest) handler.Response {
	if err := validator.Apply(
		validator.ValidUUID("plan_id", req.PlanID),
		validator.ValidUUID("agency_id", req.AgencyID),
	); err != nil {
		return handler.Error(err)
	}
	agencyID := uuid.MustParse(req.AgencyID)

	if err := m.checkMembership(ctx, agencyID); err != nil {
		return handler.Error(err)
	}

	res, err := m.opts.Checkout.CreateCheckout(ctx, checkout.Request{
		PlanID:       uuid.MustParse(req.PlanID),
		BillingCycle: subscription.BillingCycle(req.BillingCycle),
		AgencyID:     agencyID,
		AgencyName:   req.AgencyName,
		AgencyEmail:  req.AgencyEmail,
		CouponCode:   req.CouponCode,
		SuccessURL:   req.SuccessURL,
		CancelURL:    req.CancelURL,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(checkoutResponse{URL: res.RedirectURL, SessionID: res.SessionID}, handler.WithoutEnvelope())
}

// checkMembership requires the caller's profile to be linked to agencyID.
func (m *module) checkMembership(ctx handler.Context, agencyID uuid.UUID) error {
	if m.opts.Profiles == nil {
		return nil
	}
	userID, _ := tenant.UserIDFromContext(ctx)
	profile, err := m.opts.Profiles.GetProfile(ctx, userID)
	if errors.Is(err, agency.ErrProfileNotFound) {
		return ErrForeignAgency
	}
	if err != nil {
		return fmt.Errorf("load caller profile: %w", err)
	}
	if !profile.HasAgency() || *profile.AgencyID != agencyID {
		return ErrForeignAgency
	}
	return nil
}
