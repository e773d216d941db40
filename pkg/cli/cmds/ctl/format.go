package ctl

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// ParseHex parses frame bytes given as "cc 80 00 00 00 00 b4",
// "cc:80:..." or "cc8000000000b4".
func ParseHex(args ...string) ([]byte, error) {
	str := strings.Join(args, "")
	str = strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "", "0X", "").Replace(str)
	return hex.DecodeString(str)
}

// ParseScope parses a scope by name or number.
func ParseScope(str string) (pid.Scope, error) {
	switch strings.ToLower(str) {
	case "global", "g", "0":
		return pid.Global, nil
	case "channel", "ch", "c", "1":
		return pid.Channel, nil
	}
	return pid.Global, fmt.Errorf("invalid scope %q", str)
}

// SetterFor finds the setter entry by its own name or the name of the
// paired getter, e.g. "pid_get_kp" and "kp" both resolve "pid_set_kp".
func SetterFor(name string) (pid.Entry, error) {
	e, err := pid.LookupName(pid.Channel, name)
	if err != nil {
		if e, err = pid.LookupName(pid.Channel, "pid_set_"+name); err != nil {
			return pid.Entry{}, fmt.Errorf("%q is not a setter", name)
		}
	}
	if e.IsSetter() {
		return e, nil
	}
	if e.ID < pid.SetterOffset {
		if setter, err := pid.Lookup(pid.Channel, e.ID+pid.SetterOffset); err == nil && setter.IsSetter() {
			return setter, nil
		}
	}
	return pid.Entry{}, fmt.Errorf("%s is not a setter", e.Name)
}

// FormatEntry renders a command table row.
func FormatEntry(e pid.Entry) string {
	return fmt.Sprintf("%-7s 0x%02x %-22s %-7s -> %s", e.Scope, byte(e.ID), e.Name, e.Command, e.Response)
}

// DecodeFrame decodes a command frame, or a response frame if it doesn't
// start with the sync byte. kind applies to responses.
func DecodeFrame(frame []byte, kind pid.Kind) (string, error) {
	if len(frame) > 0 && frame[0] == pid.SyncByte {
		cmd, err := pid.DecodeCommand(frame)
		if err != nil {
			return "", err
		}
		return cmd.String(), nil
	}
	rsp, err := pid.DecodeResponse(frame, kind)
	if err != nil {
		return "", err
	}
	return rsp.String(), nil
}

// result is the JSON output of a command.
type result struct {
	Command string      `json:"command"`
	Bank    string      `json:"bank,omitempty"`
	Value   interface{} `json:"value,omitempty"`
	Prev    interface{} `json:"prev,omitempty"`
}
