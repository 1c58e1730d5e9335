package attest

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("attest: not found")

	// ErrGone is returned when an attestation exists but is no longer
	// effectively active. It deliberately does not distinguish expired
	// from revoked.
	ErrGone = errors.New("attest: attestation no longer active")

	// ErrAlreadyRevoked is returned when revoking a revoked attestation.
	// Revocation is terminal.
	ErrAlreadyRevoked = errors.New("attest: attestation already revoked")

	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("attest: conflict")
)
