package pid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	testCases := []struct {
		name     string
		scope    Scope
		id       CommandID
		command  Kind
		response Kind
	}{
		{"global foo bar", Global, 0x00, KindNone, KindNone},
		{"channel current cps", Channel, 0x00, KindNone, KindFloat32},
		{"global bar baz", Global, 0x01, KindNone, KindNone},
		{"channel integrator", Channel, 0x01, KindNone, KindFloat32},
		{"get target cps", Channel, 0x14, KindNone, KindInt32},
		{"stop", Channel, 0x20, KindNone, KindNone},
		{"set kp", Channel, 0x30, KindFloat32, KindNone},
		{"set target cps", Channel, 0x34, KindInt32, KindNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Lookup(tc.scope, tc.id)
			require.NoError(t, err)
			require.Equal(t, tc.scope, e.Scope)
			require.Equal(t, tc.id, e.ID)
			require.Equal(t, tc.command, e.Command)
			require.Equal(t, tc.response, e.Response)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, tc := range []struct {
		scope Scope
		id    CommandID
	}{
		{Global, 0x02},
		{Global, 0x30},
		{Channel, 0x05},
		{Channel, 0x3f},
		{Channel, 0x40},
		{Scope(2), 0x00},
	} {
		_, err := Lookup(tc.scope, tc.id)
		require.Truef(t, errors.Is(err, ErrUnknownCommand), "%s/0x%02x: %v", tc.scope, byte(tc.id), err)
	}
}

func TestLookupName(t *testing.T) {
	e, err := LookupName(Channel, "pid_set_kp")
	require.NoError(t, err)
	require.Equal(t, ChannelPIDSetKp, e.ID)

	e, err = LookupName(Channel, "channel_get_target_cps")
	require.NoError(t, err)
	require.Equal(t, ChannelGetTargetCPS, e.ID)

	e, err = LookupName(Channel, "0x21")
	require.NoError(t, err)
	require.Equal(t, "pid_reset", e.Name)

	e, err = LookupName(Global, "BAR_BAZ")
	require.NoError(t, err)
	require.Equal(t, GlobalBarBaz, e.ID)

	_, err = LookupName(Global, "pid_set_kp")
	require.True(t, errors.Is(err, ErrUnknownCommand))
	_, err = LookupName(Channel, "0x05")
	require.True(t, errors.Is(err, ErrUnknownCommand))
}

func TestEntries(t *testing.T) {
	global := Entries(Global)
	require.Len(t, global, 2)
	channel := Entries(Channel)
	require.Len(t, channel, 17)
	for n := 1; n < len(channel); n++ {
		require.True(t, channel[n-1].ID < channel[n].ID)
	}
	require.Empty(t, Entries(Scope(3)))
}

func TestGetter(t *testing.T) {
	for _, e := range Entries(Channel) {
		g, ok := e.Getter()
		if !e.IsSetter() {
			require.Falsef(t, ok, "%s", e)
			continue
		}
		require.Truef(t, ok, "%s", e)
		require.Equal(t, e.ID-SetterOffset, g.ID)
		require.Equal(t, e.Command, g.Response)
		require.True(t, g.IsQuery())
	}
}
