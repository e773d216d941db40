package pid

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry describes a command in the command table.
type Entry struct {
	Scope Scope
	ID    CommandID
	Name  string
	// Command is the kind of the value sent with the command.
	Command Kind
	// Response is the kind of the value the device replies.
	Response Kind
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	return fmt.Sprintf("%s/%s(0x%02x)", e.Scope, e.Name, byte(e.ID))
}

// IsQuery indicates the command only reads a value.
func (e Entry) IsQuery() bool {
	return e.Command == KindNone && e.Response != KindNone
}

// IsSetter indicates the command writes a value.
func (e Entry) IsSetter() bool {
	return e.Command != KindNone
}

// Getter returns the entry reading back the value written by a setter.
func (e Entry) Getter() (Entry, bool) {
	if !e.IsSetter() || e.ID < SetterOffset {
		return Entry{}, false
	}
	g, err := Lookup(e.Scope, e.ID-SetterOffset)
	if err != nil || g.Response != e.Command {
		return Entry{}, false
	}
	return g, true
}

var commandTable = []Entry{
	{Global, GlobalFooBar, "foo_bar", KindNone, KindNone},
	{Global, GlobalBarBaz, "bar_baz", KindNone, KindNone},

	{Channel, ChannelCurrentCPS, "current_cps", KindNone, KindFloat32},
	{Channel, ChannelPIDIntegratorState, "pid_integrator_state", KindNone, KindFloat32},
	{Channel, ChannelPIDFilterState, "pid_filter_state", KindNone, KindFloat32},
	{Channel, ChannelPIDGain, "pid_gain", KindNone, KindFloat32},
	{Channel, ChannelPIDSetpointError, "pid_setpoint_error", KindNone, KindFloat32},

	{Channel, ChannelPIDGetKp, "pid_get_kp", KindNone, KindFloat32},
	{Channel, ChannelPIDGetKi, "pid_get_ki", KindNone, KindFloat32},
	{Channel, ChannelPIDGetKd, "pid_get_kd", KindNone, KindFloat32},
	{Channel, ChannelPIDGetKn, "pid_get_kn", KindNone, KindFloat32},
	{Channel, ChannelGetTargetCPS, "get_target_cps", KindNone, KindInt32},

	{Channel, ChannelStop, "stop", KindNone, KindNone},
	{Channel, ChannelPIDReset, "pid_reset", KindNone, KindNone},

	{Channel, ChannelPIDSetKp, "pid_set_kp", KindFloat32, KindNone},
	{Channel, ChannelPIDSetKi, "pid_set_ki", KindFloat32, KindNone},
	{Channel, ChannelPIDSetKd, "pid_set_kd", KindFloat32, KindNone},
	{Channel, ChannelPIDSetKn, "pid_set_kn", KindFloat32, KindNone},
	{Channel, ChannelSetTargetCPS, "set_target_cps", KindInt32, KindNone},
}

var (
	commandIndex [2][MaxCommandID + 1]*Entry
	nameIndex    = make(map[string]*Entry)
)

func init() {
	for n := range commandTable {
		e := &commandTable[n]
		if e.Scope > Channel || e.ID > MaxCommandID {
			panic(fmt.Sprintf("invalid command table entry %v", *e))
		}
		if commandIndex[e.Scope][e.ID] != nil {
			panic(fmt.Sprintf("duplicated command table entry %v", *e))
		}
		commandIndex[e.Scope][e.ID] = e
		nameIndex[e.Scope.String()+"/"+e.Name] = e
	}
}

// Lookup finds the command table entry.
func Lookup(scope Scope, id CommandID) (Entry, error) {
	if scope <= Channel && id <= MaxCommandID {
		if e := commandIndex[scope][id]; e != nil {
			return *e, nil
		}
	}
	return Entry{}, frameErr(ErrUnknownCommand, "id", nil, "0x%02x not defined in %s scope", byte(id), scope)
}

// LookupName finds an entry by name in the given scope.
// The name can also be a numeric id, e.g. "0x30".
func LookupName(scope Scope, name string) (Entry, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if e := nameIndex[scope.String()+"/"+name]; e != nil {
		return *e, nil
	}
	if e := nameIndex[scope.String()+"/"+strings.TrimPrefix(name, scope.String()+"_")]; e != nil {
		return *e, nil
	}
	if n, err := strconv.ParseUint(name, 0, 8); err == nil {
		return Lookup(scope, CommandID(n))
	}
	return Entry{}, frameErr(ErrUnknownCommand, "id", nil, "%q not defined in %s scope", name, scope)
}

// Entries lists the entries of a scope ordered by id.
func Entries(scope Scope) []Entry {
	var entries []Entry
	if scope > Channel {
		return entries
	}
	for _, e := range commandIndex[scope] {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries
}
