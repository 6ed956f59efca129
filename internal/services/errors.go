package services

import "errors"

// Guard failures are always reported to the caller as one of these sentinels;
// no transition is ever silently downgraded to a no-op.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation failed")
	ErrTooSoon             = errors.New("too soon")
	ErrGone                = errors.New("too late")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("below minimum payout")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrInvalidInput        = errors.New("invalid input")
)
