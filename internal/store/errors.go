package store

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the taxonomy exposed to callers. Read paths report
// absence with nil results instead of ErrNotFound; the sentinel exists for
// operations where absence is a failure (accepting a dead invitation code,
// updating a team that is gone).
var (
	// ErrNotFound marks a referenced note, team or invitation that does not
	// exist (or is expired/redeemed, for invitations).
	ErrNotFound = errors.New("not found")

	// ErrUnsupported marks an operation the current backend mode cannot
	// perform, e.g. team management against the local store.
	ErrUnsupported = errors.New("operation not supported in this mode")
)

// DuplicateError reports a uniqueness violation surfaced by the backend.
type DuplicateError struct {
	Resource string
	Err      error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

// AuthzError reports a failed role check or a missing acting identity.
type AuthzError struct {
	Reason string
}

func (e *AuthzError) Error() string { return "not authorized: " + e.Reason }

// UnavailableError reports that the backend cannot be reached or is not
// configured for the requested mode.
type UnavailableError struct {
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend unavailable: %s: %v", e.Reason, e.Err)
	}
	return "backend unavailable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Err }
