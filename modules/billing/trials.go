package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/tenant"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
	"github.com/dmitrymomot/agencyhub/svc/trial"
)

type trialRequest struct {
	// UserID defaults to the caller and must match it when given.
	UserID     string `json:"user_id,omitempty"`
	AgencyName string `json:"agency_name"`
	Email      string `json:"email"`
	UserName   string `json:"user_name"`
	TrialDays  *int   `json:"trial_days,omitempty"`
}

type trialResponse struct {
	Success     bool      `json:"success"`
	AgencyID    uuid.UUID `json:"agency_id"`
	TrialEndsAt time.Time `json:"trial_ends_at"`
}

func (m *module) provisionTrial(ctx handler.Context, req trialRequest) handler.Response {
	caller, _ := tenant.UserIDFromContext(ctx)
	if req.UserID != "" {
		if err := validator.Apply(validator.ValidUUID("user_id", req.UserID)); err != nil {
			return handler.Error(err)
		}
		if uuid.MustParse(req.UserID) != caller {
			return handler.Error(handler.ErrForbidden)
		}
	}

	res, err := m.opts.Trials.Provision(ctx, trial.Request{
		UserID:     caller,
		AgencyName: req.AgencyName,
		Email:      req.Email,
		UserName:   req.UserName,
		TrialDays:  req.TrialDays,
	})
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(trialResponse{Success: true, AgencyID: res.AgencyID, TrialEndsAt: res.TrialEndsAt},
		handler.WithoutEnvelope())
}
