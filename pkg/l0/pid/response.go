package pid

import (
	"fmt"
	"io"
)

// Response is a response frame.
type Response struct {
	// CmdChecksum echoes the checksum of the command which triggered the
	// response. It's for correlation when debugging and not verified.
	CmdChecksum byte
	Status      Status
	Value       Value
	Checksum    byte
}

// NewResponse creates a response frame with the checksum calculated.
func NewResponse(cmdChecksum byte, status Status, v Value) *Response {
	r := &Response{CmdChecksum: cmdChecksum, Status: status, Value: v}
	var b [FrameSize]byte
	r.put(b[:])
	r.Checksum = Checksum(b[:FrameSize-1])
	return r
}

// Err returns a StatusError if the device rejected the command.
// The Value must not be consumed in that case.
func (r *Response) Err() error {
	if r.Status.IsSuccess() {
		return nil
	}
	return &StatusError{Status: r.Status, CmdChecksum: r.CmdChecksum}
}

func (r *Response) put(b []byte) {
	b[0] = r.CmdChecksum
	b[1] = byte(r.Status)
	r.Value.put(b[2:6])
	b[6] = r.Checksum
}

// Bytes returns encoded bytes for sending.
func (r *Response) Bytes() []byte {
	b := make([]byte, FrameSize)
	r.put(b)
	return b
}

// WriteTo writes encoded bytes.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("[%02x] %s %s [%02x]", r.CmdChecksum, r.Status, r.Value, r.Checksum)
}

// DecodeResponse parses a response frame. The frame doesn't describe the
// type of its value, kind must come from the table entry of the command
// which was sent. There's no sync byte in this direction.
func DecodeResponse(b []byte, kind Kind) (*Response, error) {
	if len(b) != FrameSize {
		return nil, frameErr(ErrFrameLength, "length", b, "%d bytes (expected %d)", len(b), FrameSize)
	}
	if !Verify(b) {
		return nil, frameErr(ErrChecksum, "checksum", b, "sum is 0x%02x (expected 0)", sum(b))
	}
	status := Status(b[1])
	if !status.IsValid() {
		return nil, frameErr(ErrUnknownStatus, "status", b, "0x%02x", b[1])
	}
	if !kind.IsValid() {
		return nil, frameErr(ErrTypeMismatch, "value", b, "invalid kind %s", kind)
	}
	return &Response{
		CmdChecksum: b[0],
		Status:      status,
		Value:       valueFrom(kind, b[2:6]),
		Checksum:    b[6],
	}, nil
}
