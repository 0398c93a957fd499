package domain

import "errors"

// Common errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrConflict           = errors.New("record already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSelfDeactivation   = errors.New("you cannot deactivate your own account")
)

// Subscription calculation errors. The calculator never substitutes a
// default for a bad value; it fails with one of these instead.
var (
	ErrInvalidDate         = errors.New("invalid payment date")
	ErrInvalidDueDay       = errors.New("invalid due day (must be 1-31)")
	ErrMissingPaymentData  = errors.New("student has no payment date on file")
	ErrEmailDisabled       = errors.New("email delivery is disabled")
	ErrStudentWithoutEmail = errors.New("student has no email address")
)
