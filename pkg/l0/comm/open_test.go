package comm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

func TestParseURL(t *testing.T) {
	testCases := []struct {
		in     string
		scheme string
		port   string
	}{
		{"/dev/ttyUSB0", "serial", "/dev/ttyUSB0"},
		{"COM8", "serial", "COM8"},
		{"serial:///dev/ttyACM1?baud=9600", "serial", "/dev/ttyACM1"},
		{"serial://COM8", "serial", "COM8"},
		{"tcp://localhost:4000", "tcp", "localhost:4000"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			u, err := ParseURL(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.scheme, u.Scheme)
			require.Equal(t, tc.port, u.Host+u.Path)
		})
	}
}

func TestDialUnsupported(t *testing.T) {
	_, err := Dial("carrier-pigeon://home")
	require.True(t, errors.Is(err, ErrUnsupportedScheme))
}

func TestDialSerialInvalidBaud(t *testing.T) {
	_, err := Dial("serial:///dev/null?baud=fast")
	require.Error(t, err)
	_, err = Dial("serial://")
	require.Error(t, err)
}

func TestOpenRegisteredDialer(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()
	RegisterDialer("testpipe", func(u *url.URL) (io.ReadWriteCloser, error) {
		require.Equal(t, "device", u.Host)
		return host, nil
	})

	conn, err := Open("testpipe://device?delay=5ms&timeout=250ms")
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, 5*time.Millisecond, conn.Delay)
	require.Equal(t, 250*time.Millisecond, conn.Timeout)

	go (&testDevice{conn: dev, handler: echoSuccess(pid.Int32(42))}).run()
	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelGetTargetCPS, nil)
	rsp, err := conn.Exchange(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, pid.Int32(42), rsp.Value)

	_, err = Open("testpipe://device?timeout=soon")
	require.Error(t, err)
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		(&testDevice{conn: c, handler: echoSuccess(pid.Float32(2.5))}).run()
		c.Close()
	}()

	conn, err := Open("tcp://" + ln.Addr().String() + "?delay=0s")
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, time.Duration(0), conn.Delay)

	cmd := mustCommand(t, pid.Channel, pid.Bank2, pid.ChannelPIDGetKp, nil)
	rsp, err := conn.Exchange(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, pid.Float32(2.5), rsp.Value)
}
