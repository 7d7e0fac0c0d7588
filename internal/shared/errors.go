package shared

import "errors"

var (
	// ErrUnauthenticated indicates the request carries no valid session.
	ErrUnauthenticated = errors.New("shared: unauthenticated")
	// ErrInvalidActivity rejects activity entries missing mandatory fields.
	ErrInvalidActivity = errors.New("shared: invalid activity entry")
)
