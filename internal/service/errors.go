package service

import "errors"

var (
	// ErrInvalidDuration is returned for a malformed duration token. Nothing is stored.
	ErrInvalidDuration = errors.New("invalid duration format")

	// ErrInvalidSubject is returned when no subject id is given.
	ErrInvalidSubject = errors.New("subject id is required")

	// ErrPermissionDenied is returned when the caller holds none of the manager roles.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStore wraps failures of the leave store. The triggering operation is aborted.
	ErrStore = errors.New("leave store failure")

	// ErrMarkerApplyFailure wraps a failed marker grant or revoke. The stored
	// leave is not rolled back.
	ErrMarkerApplyFailure = errors.New("marker change failed")
)
