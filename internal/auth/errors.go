package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so login failures never reveal which one it was.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrAccountInactive means the identity checked out but the account is
	// disabled. Distinct from ErrForbidden so clients can prompt reactivation.
	ErrAccountInactive = errors.New("auth: account inactive")

	ErrEmailTaken      = errors.New("auth: email already registered")
	ErrConflict        = errors.New("auth: resource conflict")
	ErrInvalidRole     = errors.New("auth: invalid role")
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")
	ErrNotFound        = errors.New("auth: not found")
)
