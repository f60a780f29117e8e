package core

import "fmt"

var (
	// ErrNotFound is returned when no live conversation is registered under
	// the given ID. A terminated conversation's ID resolves to this error
	// immediately after removal.
	ErrNotFound = fmt.Errorf("conversation not found")

	// ErrAlreadyExists is returned when registering an ID that already maps
	// to a live conversation. The loser of a registration race receives it
	// without side effects.
	ErrAlreadyExists = fmt.Errorf("conversation already exists")

	// ErrInvalidArgument is returned for malformed caller input such as a
	// non-positive batch count.
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrBackendTimeout is returned when a backend call exceeds its per-call
	// deadline. The conversation's user message is not rolled back.
	ErrBackendTimeout = fmt.Errorf("backend call timed out")
)

// APIError carries the status and raw body of a failed backend API call.
// The core performs no retry; the error is surfaced to the caller as-is.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend api error: status %d: %s", e.Status, e.Body)
}
