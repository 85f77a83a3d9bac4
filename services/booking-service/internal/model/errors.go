package model

import "errors"

// Error kinds surfaced by the booking core. Callers classify with errors.Is;
// the wrapping message carries the detail.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrAlreadyCancelled = errors.New("appointment already cancelled")
)
