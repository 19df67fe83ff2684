package settings

import "errors"

// ErrNotConfigured means a required platform setting is missing.
var ErrNotConfigured = errors.New("payment processor is not configured")
