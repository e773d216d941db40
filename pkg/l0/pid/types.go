package pid

import "fmt"

// FrameSize is the size of both command and response frames.
const FrameSize = 7

// SyncByte is the first byte of every command frame.
const SyncByte byte = 0xcc

// Scope selects the command id space.
type Scope byte

// Scopes
const (
	Global  Scope = 0
	Channel Scope = 1
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	switch s {
	case Global:
		return "global"
	case Channel:
		return "channel"
	}
	return fmt.Sprintf("scope(%d)", byte(s))
}

// Bank is the channel (motor) a Channel scoped command applies to.
type Bank byte

// Banks
const (
	Bank1 Bank = 0
	Bank2 Bank = 1
)

// String implements fmt.Stringer.
func (b Bank) String() string {
	return fmt.Sprintf("bank%d", byte(b)+1)
}

// CommandID is the 6-bit command identifier inside a scope.
type CommandID byte

// MaxCommandID is the largest id which fits in the header.
const MaxCommandID CommandID = 0x3f

// Global scope commands.
const (
	GlobalFooBar CommandID = 0x00
	GlobalBarBaz CommandID = 0x01
)

// Channel scope commands. These collide numerically with the global
// commands, the scope bit tells them apart.
const (
	// read only
	ChannelCurrentCPS         CommandID = 0x00
	ChannelPIDIntegratorState CommandID = 0x01
	ChannelPIDFilterState     CommandID = 0x02
	ChannelPIDGain            CommandID = 0x03
	ChannelPIDSetpointError   CommandID = 0x04

	// getters
	ChannelPIDGetKp     CommandID = 0x10
	ChannelPIDGetKi     CommandID = 0x11
	ChannelPIDGetKd     CommandID = 0x12
	ChannelPIDGetKn     CommandID = 0x13
	ChannelGetTargetCPS CommandID = 0x14

	// write only
	ChannelStop     CommandID = 0x20
	ChannelPIDReset CommandID = 0x21

	// setters, offset by SetterOffset from the getters
	ChannelPIDSetKp     CommandID = 0x30
	ChannelPIDSetKi     CommandID = 0x31
	ChannelPIDSetKd     CommandID = 0x32
	ChannelPIDSetKn     CommandID = 0x33
	ChannelSetTargetCPS CommandID = 0x34
)

// SetterOffset is the distance between a setter id and its getter id.
const SetterOffset CommandID = 0x20

// Status is the outcome reported by the device.
type Status byte

// Status codes
const (
	StatusSuccess        Status = 0x01
	StatusChecksumError  Status = 0x81
	StatusSyncError      Status = 0x82
	StatusValueError     Status = 0x83
	StatusUnknownCommand Status = 0x84
	StatusUndefinedError Status = 0x85
)

var statusNames = map[Status]string{
	StatusSuccess:        "success",
	StatusChecksumError:  "checksum error",
	StatusSyncError:      "sync error",
	StatusValueError:     "value error",
	StatusUnknownCommand: "unknown command",
	StatusUndefinedError: "undefined error",
}

// IsValid indicates the status code is defined by the protocol.
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsSuccess indicates the value field of the response is meaningful.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(0x%02x)", byte(s))
}
