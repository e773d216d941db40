package pid

import (
	"errors"
	"fmt"
	"io"
)

// Command is a command frame.
type Command struct {
	Sync     byte
	Scope    Scope
	Bank     Bank
	ID       CommandID
	Value    Value
	Checksum byte
}

// NewCommand creates a command frame after checking the value against
// the command table. See CoerceValue for accepted values.
func NewCommand(scope Scope, bank Bank, id CommandID, v interface{}) (*Command, error) {
	entry, err := Lookup(scope, id)
	if err != nil {
		return nil, err
	}
	return NewCommandFor(entry, bank, v)
}

// NewCommandFor creates a command frame for a table entry.
func NewCommandFor(entry Entry, bank Bank, v interface{}) (*Command, error) {
	if bank > Bank2 {
		return nil, frameErr(ErrValueRange, "bank", nil, "invalid bank %d", byte(bank))
	}
	val, err := CoerceValue(entry.Command, v)
	if err != nil {
		if fe, ok := err.(*FrameError); ok {
			fe.Detail = fmt.Sprintf("%s: %s", entry, fe.Detail)
		}
		return nil, err
	}
	c := &Command{
		Sync:  SyncByte,
		Scope: entry.Scope,
		Bank:  bank,
		ID:    entry.ID,
		Value: val,
	}
	var b [FrameSize]byte
	c.put(b[:])
	c.Checksum = Checksum(b[:FrameSize-1])
	return c, nil
}

// EncodeCommand builds the wire bytes of a command.
func EncodeCommand(scope Scope, bank Bank, id CommandID, v interface{}) ([]byte, error) {
	c, err := NewCommand(scope, bank, id, v)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// Header returns the packed scope, bank and id byte.
func (c *Command) Header() byte {
	return byte(c.Scope&1)<<7 | byte(c.Bank&1)<<6 | byte(c.ID&MaxCommandID)
}

// Entry looks up the command table entry of the command.
func (c *Command) Entry() (Entry, error) {
	return Lookup(c.Scope, c.ID)
}

// ResponseKind returns the value kind of the reply. It's KindNone if the
// command is not in the table, in which case the device is expected to
// reply an error status.
func (c *Command) ResponseKind() Kind {
	e, err := c.Entry()
	if err != nil {
		return KindNone
	}
	return e.Response
}

func (c *Command) put(b []byte) {
	b[0] = c.Sync
	b[1] = c.Header()
	c.Value.put(b[2:6])
	b[6] = c.Checksum
}

// Bytes returns encoded bytes for sending.
func (c *Command) Bytes() []byte {
	b := make([]byte, FrameSize)
	c.put(b)
	return b
}

// WriteTo writes encoded bytes.
func (c *Command) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Bytes())
	return int64(n), err
}

// String implements fmt.Stringer.
func (c *Command) String() string {
	name := fmt.Sprintf("0x%02x", byte(c.ID))
	if e, err := c.Entry(); err == nil {
		name = e.Name
	}
	return fmt.Sprintf("%s %s %s %s [%02x]", c.Scope, c.Bank, name, c.Value, c.Checksum)
}

// DecodeCommand parses a command frame.
// Sync is checked before the checksum and the checksum before any field
// is extracted, so a corrupted header never reaches the table lookup.
func DecodeCommand(b []byte) (*Command, error) {
	if len(b) != FrameSize {
		return nil, frameErr(ErrFrameLength, "length", b, "%d bytes (expected %d)", len(b), FrameSize)
	}
	if b[0] != SyncByte {
		return nil, frameErr(ErrSync, "sync", b, "initial byte is 0x%02x (expected 0x%02x)", b[0], SyncByte)
	}
	if !Verify(b) {
		return nil, frameErr(ErrChecksum, "checksum", b, "sum is 0x%02x (expected 0)", sum(b))
	}
	c := &Command{
		Sync:     b[0],
		Scope:    Scope(b[1] >> 7),
		Bank:     Bank((b[1] >> 6) & 1),
		ID:       CommandID(b[1]) & MaxCommandID,
		Checksum: b[6],
	}
	entry, err := c.Entry()
	if err != nil {
		var fe *FrameError
		if errors.As(err, &fe) {
			fe.Frame = append([]byte(nil), b...)
		}
		return nil, err
	}
	c.Value = valueFrom(entry.Command, b[2:6])
	return c, nil
}
