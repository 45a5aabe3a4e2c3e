package model

import "errors"

// Error kinds shared by the analysis core and its callers.
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrPositionTooSmall     = errors.New("position too small")
	ErrNotActionable        = errors.New("signal not actionable")
)
