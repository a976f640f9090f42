// Package apperrors defines the error sentinels shared across the engine.
// Handlers and tools classify failures with errors.Is against these
// sentinels to pick the right response code.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookups for tables or columns that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks request parameters rejected before any
	// query was issued.
	ErrInvalidArgument = errors.New("invalid argument")
)

// wrappedError carries a caller-facing message while still matching its
// sentinel through errors.Is. The sentinel text never leaks into the
// message.
type wrappedError struct {
	msg      string
	sentinel error
}

func (e *wrappedError) Error() string { return e.msg }

func (e *wrappedError) Unwrap() error { return e.sentinel }

// NotFoundf returns an error matching ErrNotFound whose message is
// exactly the formatted text.
func NotFoundf(format string, args ...any) error {
	return &wrappedError{msg: fmt.Sprintf(format, args...), sentinel: ErrNotFound}
}

// InvalidArgumentf returns an error matching ErrInvalidArgument whose
// message is exactly the formatted text.
func InvalidArgumentf(format string, args ...any) error {
	return &wrappedError{msg: fmt.Sprintf(format, args...), sentinel: ErrInvalidArgument}
}
