package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates a full response frame didn't arrive in time.
	ErrTimeout = errors.New("response timeout")
	// ErrClosed indicates the underlying stream has been closed.
	ErrClosed = errors.New("connection closed")
	// ErrUnsupportedScheme indicates no Dialer is registered for the URL.
	ErrUnsupportedScheme = errors.New("unsupported transport")
)

// ShortReadError is returned when less than a frame was received before
// the timeout. It matches ErrTimeout with errors.Is.
type ShortReadError struct {
	Got []byte
}

// Error implements error.
func (e *ShortReadError) Error() string {
	if len(e.Got) == 0 {
		return ErrTimeout.Error() + ": no reply"
	}
	return fmt.Sprintf("%s: got %d bytes [% x]", ErrTimeout, len(e.Got), e.Got)
}

// Unwrap supports errors.Is.
func (e *ShortReadError) Unwrap() error {
	return ErrTimeout
}
