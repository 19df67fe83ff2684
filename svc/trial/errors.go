package trial

import (
	"errors"

	"github.com/dmitrymomot/agencyhub/svc/agency"
)

var (
	ErrProfileNotFound    = agency.ErrProfileNotFound
	ErrAlreadyProvisioned = errors.New("user already belongs to an agency")
	ErrTrialDisabled      = errors.New("trials are disabled")
)
