package comm

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// testDevice answers command frames on one end of a pipe.
type testDevice struct {
	conn    net.Conn
	handler func(frame []byte) []byte
}

func newTestConn(t *testing.T, handler func(frame []byte) []byte) (*Conn, *testDevice) {
	host, dev := net.Pipe()
	d := &testDevice{conn: dev, handler: handler}
	go d.run()
	conn := NewConn(host)
	conn.Delay = 0
	conn.Timeout = time.Second
	t.Cleanup(func() {
		conn.Close()
		dev.Close()
	})
	return conn, d
}

func (d *testDevice) run() {
	frame := make([]byte, pid.FrameSize)
	for {
		if _, err := io.ReadFull(d.conn, frame); err != nil {
			return
		}
		reply := d.handler(append([]byte(nil), frame...))
		if reply == nil {
			continue
		}
		if _, err := d.conn.Write(reply); err != nil {
			return
		}
	}
}

func echoSuccess(v pid.Value) func([]byte) []byte {
	return func(frame []byte) []byte {
		return pid.NewResponse(frame[6], pid.StatusSuccess, v).Bytes()
	}
}

func mustCommand(t *testing.T, scope pid.Scope, bank pid.Bank, id pid.CommandID, v interface{}) *pid.Command {
	cmd, err := pid.NewCommand(scope, bank, id, v)
	require.NoError(t, err)
	return cmd
}

func TestConnExchange(t *testing.T) {
	conn, _ := newTestConn(t, echoSuccess(pid.Float32(12.5)))

	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelCurrentCPS, nil)
	rsp, err := conn.Exchange(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, pid.StatusSuccess, rsp.Status)
	require.Equal(t, cmd.Checksum, rsp.CmdChecksum)
	require.Equal(t, pid.Float32(12.5), rsp.Value)
}

func TestConnExchangeRaw(t *testing.T) {
	corrupted := []byte{0x46, 0x01, 0x00, 0x00, 0x00, 0x00, 0xba}
	conn, _ := newTestConn(t, func([]byte) []byte { return corrupted })
	var observed error
	conn.Observer = ObserveExchangeFunc(func(_ []byte, _ *pid.Response, err error, _ time.Duration) {
		observed = err
	})

	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelStop, nil)
	raw, err := conn.ExchangeRaw(context.Background(), cmd.Bytes())
	require.NoError(t, err)
	require.Equal(t, corrupted, raw)
	require.True(t, errors.Is(observed, pid.ErrChecksum))

	_, err = conn.Exchange(context.Background(), cmd)
	require.True(t, errors.Is(err, pid.ErrChecksum))

	conn.Close()
	_, err = conn.ExchangeRaw(context.Background(), cmd.Bytes())
	require.Equal(t, ErrClosed, err)
}

func TestConnExchangeStatus(t *testing.T) {
	conn, _ := newTestConn(t, func(frame []byte) []byte {
		return pid.NewResponse(frame[6], pid.StatusValueError, pid.NoValue).Bytes()
	})

	rsp, err := conn.Exchange(context.Background(), mustCommand(t, pid.Channel, pid.Bank2, pid.ChannelPIDSetKp, 1.0))
	require.NoError(t, err)
	require.Equal(t, pid.StatusValueError, rsp.Status)
	var se *pid.StatusError
	require.True(t, errors.As(rsp.Err(), &se))
}

func TestConnExchangeFrame(t *testing.T) {
	var received []byte
	conn, _ := newTestConn(t, func(frame []byte) []byte {
		received = frame
		return pid.NewResponse(frame[6], pid.StatusSyncError, pid.NoValue).Bytes()
	})

	frame := []byte{0xcd, 0xb0, 0x3a, 0x83, 0x12, 0x6f, 0x45}
	rsp, err := conn.ExchangeFrame(context.Background(), frame, pid.KindNone)
	require.NoError(t, err)
	require.Equal(t, frame, received)
	require.Equal(t, pid.StatusSyncError, rsp.Status)
}

func TestConnCorruptedResponse(t *testing.T) {
	conn, _ := newTestConn(t, func(frame []byte) []byte {
		return []byte{frame[6], 0x01, 0, 0, 0, 0, 0}
	})

	_, err := conn.Exchange(context.Background(), mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelStop, nil))
	require.True(t, errors.Is(err, pid.ErrChecksum))
}

func TestConnShortRead(t *testing.T) {
	conn, _ := newTestConn(t, func(frame []byte) []byte {
		return []byte{frame[6], 0x01, 0x00}
	})
	conn.Timeout = 50 * time.Millisecond

	_, err := conn.Exchange(context.Background(), mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelStop, nil))
	require.True(t, errors.Is(err, ErrTimeout))
	var sre *ShortReadError
	require.True(t, errors.As(err, &sre))
	require.Len(t, sre.Got, 3)
}

func TestConnDiscardsLateReply(t *testing.T) {
	var calls int
	conn, _ := newTestConn(t, func(frame []byte) []byte {
		calls++
		if calls == 1 {
			time.Sleep(80 * time.Millisecond)
			return pid.NewResponse(0xee, pid.StatusSuccess, pid.Int32(1)).Bytes()
		}
		return pid.NewResponse(frame[6], pid.StatusSuccess, pid.Int32(2)).Bytes()
	})
	conn.Timeout = 30 * time.Millisecond

	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelGetTargetCPS, nil)
	_, err := conn.Exchange(context.Background(), cmd)
	require.True(t, errors.Is(err, ErrTimeout))

	require.Eventually(t, func() bool {
		return len(conn.byteCh) == pid.FrameSize
	}, time.Second, time.Millisecond)

	conn.Timeout = time.Second
	rsp, err := conn.Exchange(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, cmd.Checksum, rsp.CmdChecksum)
	require.Equal(t, pid.Int32(2), rsp.Value)
}

func TestConnPeerClosed(t *testing.T) {
	conn, d := newTestConn(t, nil)
	d.handler = func([]byte) []byte {
		d.conn.Close()
		return nil
	}

	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelStop, nil)
	_, err := conn.Exchange(context.Background(), cmd)
	require.Equal(t, ErrClosed, err)
	_, err = conn.Exchange(context.Background(), cmd)
	require.Equal(t, ErrClosed, err)
}

func TestConnClose(t *testing.T) {
	conn, _ := newTestConn(t, echoSuccess(pid.NoValue))
	require.NoError(t, conn.Close())
	_, err := conn.Exchange(context.Background(), mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelStop, nil))
	require.Equal(t, ErrClosed, err)
}

func TestConnContextCancel(t *testing.T) {
	conn, _ := newTestConn(t, func([]byte) []byte { return nil })
	conn.Timeout = 0
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := conn.Exchange(ctx, mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelStop, nil))
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestConnObserver(t *testing.T) {
	conn, _ := newTestConn(t, echoSuccess(pid.NoValue))
	var observed []*pid.Response
	conn.Observer = ObserveExchangeFunc(func(cmd []byte, rsp *pid.Response, err error, elapsed time.Duration) {
		require.Len(t, cmd, pid.FrameSize)
		require.NoError(t, err)
		observed = append(observed, rsp)
	})
	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelPIDReset, nil)
	rsp, err := conn.Exchange(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, []*pid.Response{rsp}, observed)
}

func TestConnSerialized(t *testing.T) {
	conn, _ := newTestConn(t, func(frame []byte) []byte {
		cmd, err := pid.DecodeCommand(frame)
		if err != nil {
			return pid.NewResponse(frame[6], pid.StatusUndefinedError, pid.NoValue).Bytes()
		}
		return pid.NewResponse(frame[6], pid.StatusSuccess, pid.Int32(cmd.Value.Int32())).Bytes()
	})

	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func(n int32) {
			defer wg.Done()
			cmd, err := pid.NewCommand(pid.Channel, pid.Bank1, pid.ChannelSetTargetCPS, n)
			if err != nil {
				errCh <- err
				return
			}
			rsp, err := conn.ExchangeFrame(context.Background(), cmd.Bytes(), pid.KindInt32)
			if err != nil {
				errCh <- err
				return
			}
			if rsp.CmdChecksum != cmd.Checksum || rsp.Value.Int32() != n {
				errCh <- errors.New("response mismatch " + rsp.String())
			}
		}(int32(n))
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
}
