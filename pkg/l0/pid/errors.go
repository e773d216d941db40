package pid

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFrameLength indicates the buffer is not exactly FrameSize bytes.
	ErrFrameLength = errors.New("invalid frame length")
	// ErrSync indicates the first byte of a command frame is not SyncByte.
	ErrSync = errors.New("sync error")
	// ErrChecksum indicates the frame bytes don't sum to zero.
	ErrChecksum = errors.New("checksum error")
	// ErrUnknownCommand indicates the id is not defined in its scope.
	ErrUnknownCommand = errors.New("unknown command id")
	// ErrUnknownStatus indicates the status byte of a response is not defined.
	ErrUnknownStatus = errors.New("unknown status code")
	// ErrTypeMismatch indicates the value kind disagrees with the command table.
	ErrTypeMismatch = errors.New("value type mismatch")
	// ErrValueRange indicates a bare number can't be represented by the
	// kind required by the command table.
	ErrValueRange = errors.New("value out of range")
)

// FrameError is a local codec failure. It wraps one of the Err* values
// above and carries the offending bytes when there are any.
type FrameError struct {
	Err    error
	Field  string
	Frame  []byte
	Detail string
}

// Error implements error.
func (e *FrameError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s)", e.Field)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if len(e.Frame) > 0 {
		fmt.Fprintf(&b, " [%s]", hex.EncodeToString(e.Frame))
	}
	return b.String()
}

// Unwrap supports errors.Is/As.
func (e *FrameError) Unwrap() error {
	return e.Err
}

func frameErr(err error, field string, frame []byte, format string, args ...interface{}) *FrameError {
	e := &FrameError{Err: err, Field: field, Detail: fmt.Sprintf(format, args...)}
	if frame != nil {
		e.Frame = append([]byte(nil), frame...)
	}
	return e
}

// StatusError is reported when the device rejected the preceding command.
type StatusError struct {
	Status      Status
	CmdChecksum byte
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("device rejected command %02x: %s", e.CmdChecksum, e.Status)
}
