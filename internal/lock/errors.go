package lock

import "errors"

var (
	// ErrChallengeNotFound indicates no outstanding challenge exists for
	// the principal.
	ErrChallengeNotFound = errors.New("lock: no challenge for principal")

	// ErrMissingPrincipal indicates a request arrived without an
	// authenticated principal.
	ErrMissingPrincipal = errors.New("lock: missing principal")

	// ErrInvalidPurpose indicates an unknown challenge purpose.
	ErrInvalidPurpose = errors.New("lock: invalid purpose")
)
