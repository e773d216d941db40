// Package pidsim simulates a two-channel PID motor controller speaking the
// 7-byte frame protocol.
package pidsim

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/pidctl.go/pkg/framework"
	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// DefaultTimeConstant is the response time of the simulated motors.
const DefaultTimeConstant = 100 * time.Millisecond

// Device is a simulated controller.
type Device struct {
	Clock        fx.TimeSource
	TimeConstant time.Duration

	lock     sync.Mutex
	channels [2]Channel
}

// New creates a Device using the system clock.
func New() *Device {
	d := &Device{
		Clock:        fx.SystemTime,
		TimeConstant: DefaultTimeConstant,
	}
	d.channels[pid.Bank1] = DefaultChannel
	d.channels[pid.Bank2] = DefaultChannel
	return d
}

// Channel returns a snapshot of a channel, brought up to date.
func (d *Device) Channel(bank pid.Bank) Channel {
	d.lock.Lock()
	defer d.lock.Unlock()
	ch := &d.channels[bank&1]
	ch.advance(d.Clock.Time(), d.TimeConstant)
	return *ch
}

// Handle processes a command frame and returns the response frame.
func (d *Device) Handle(frame []byte) []byte {
	var echo byte
	if len(frame) > 0 {
		echo = frame[len(frame)-1]
	}
	cmd, err := pid.DecodeCommand(frame)
	if err != nil {
		glog.V(2).Infof("reject [% x]: %v", frame, err)
		return pid.NewResponse(echo, statusOf(err), pid.NoValue).Bytes()
	}
	rsp := d.execute(cmd)
	glog.V(2).Infof("%s => %s", cmd, rsp)
	return rsp.Bytes()
}

func statusOf(err error) pid.Status {
	switch {
	case errors.Is(err, pid.ErrSync):
		return pid.StatusSyncError
	case errors.Is(err, pid.ErrChecksum):
		return pid.StatusChecksumError
	case errors.Is(err, pid.ErrUnknownCommand):
		return pid.StatusUnknownCommand
	}
	return pid.StatusUndefinedError
}

func (d *Device) execute(cmd *pid.Command) *pid.Response {
	reply := func(status pid.Status, v pid.Value) *pid.Response {
		return pid.NewResponse(cmd.Checksum, status, v)
	}
	if cmd.Scope == pid.Global {
		return reply(pid.StatusSuccess, pid.NoValue)
	}

	d.lock.Lock()
	defer d.lock.Unlock()
	ch := &d.channels[cmd.Bank]
	ch.advance(d.Clock.Time(), d.TimeConstant)

	f32 := func(v float64) *pid.Response {
		return reply(pid.StatusSuccess, pid.Float32(float32(v)))
	}
	setGain := func(gain *float32) *pid.Response {
		v := cmd.Value.Float32()
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return reply(pid.StatusValueError, pid.NoValue)
		}
		*gain = v
		return reply(pid.StatusSuccess, pid.NoValue)
	}

	switch cmd.ID {
	case pid.ChannelCurrentCPS:
		return f32(ch.CurrentCPS)
	case pid.ChannelPIDIntegratorState:
		return f32(ch.Integrator)
	case pid.ChannelPIDFilterState:
		return f32(ch.Filter)
	case pid.ChannelPIDGain:
		return f32(ch.Gain)
	case pid.ChannelPIDSetpointError:
		return f32(ch.SetpointError)
	case pid.ChannelPIDGetKp:
		return reply(pid.StatusSuccess, pid.Float32(ch.Kp))
	case pid.ChannelPIDGetKi:
		return reply(pid.StatusSuccess, pid.Float32(ch.Ki))
	case pid.ChannelPIDGetKd:
		return reply(pid.StatusSuccess, pid.Float32(ch.Kd))
	case pid.ChannelPIDGetKn:
		return reply(pid.StatusSuccess, pid.Float32(ch.Kn))
	case pid.ChannelGetTargetCPS:
		return reply(pid.StatusSuccess, pid.Int32(ch.TargetCPS))
	case pid.ChannelStop:
		ch.Stopped, ch.TargetCPS = true, 0
		ch.reset()
	case pid.ChannelPIDReset:
		ch.reset()
	case pid.ChannelPIDSetKp:
		return setGain(&ch.Kp)
	case pid.ChannelPIDSetKi:
		return setGain(&ch.Ki)
	case pid.ChannelPIDSetKd:
		return setGain(&ch.Kd)
	case pid.ChannelPIDSetKn:
		return setGain(&ch.Kn)
	case pid.ChannelSetTargetCPS:
		ch.TargetCPS, ch.Stopped = cmd.Value.Int32(), false
	default:
		return reply(pid.StatusUndefinedError, pid.NoValue)
	}
	return reply(pid.StatusSuccess, pid.NoValue)
}

// Serve answers frames read from rw until the stream ends or ctx is
// canceled. rw is closed when Serve returns if it's an io.Closer.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	loop := func() error {
		frame := make([]byte, pid.FrameSize)
		for {
			if _, err := io.ReadFull(rw, frame); err != nil {
				return err
			}
			if _, err := rw.Write(d.Handle(frame)); err != nil {
				return err
			}
		}
	}
	var err error
	if closer, ok := rw.(io.Closer); ok {
		err = fx.RunWithContextCloser(ctx, closer, loop)
	} else {
		err = fx.RunWithContextCancel(ctx, nil, loop)
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil
	}
	return err
}
