package agency

import "errors"

var (
	ErrAgencyNotFound  = errors.New("agency not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRoleNotFound    = errors.New("role not found")
)
