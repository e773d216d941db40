package comm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// registerExchanger keeps values written by setters and returns them on
// the paired getters.
type registerExchanger struct {
	lock      sync.Mutex
	registers map[pid.Bank]map[pid.CommandID]pid.Value
	sent      []*pid.Command
}

func newRegisterExchanger() *registerExchanger {
	return &registerExchanger{registers: make(map[pid.Bank]map[pid.CommandID]pid.Value)}
}

func (x *registerExchanger) Exchange(ctx context.Context, cmd *pid.Command) (*pid.Response, error) {
	x.lock.Lock()
	defer x.lock.Unlock()
	x.sent = append(x.sent, cmd)
	entry, err := cmd.Entry()
	if err != nil {
		return pid.NewResponse(cmd.Checksum, pid.StatusUnknownCommand, pid.NoValue), nil
	}
	regs := x.registers[cmd.Bank]
	if regs == nil {
		regs = make(map[pid.CommandID]pid.Value)
		x.registers[cmd.Bank] = regs
	}
	if g, ok := entry.Getter(); ok {
		regs[g.ID] = cmd.Value
		return pid.NewResponse(cmd.Checksum, pid.StatusSuccess, pid.NoValue), nil
	}
	v, ok := regs[cmd.ID]
	if !ok {
		v, _ = pid.CoerceValue(entry.Response, 0)
	}
	return pid.NewResponse(cmd.Checksum, pid.StatusSuccess, v), nil
}

func TestClientDo(t *testing.T) {
	client := NewClient(newRegisterExchanger())
	cmd := mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelCurrentCPS, nil)
	rsp, err := client.Do(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, pid.Float32(0), rsp.Value)

	unknown := &pid.Command{Sync: pid.SyncByte, Scope: pid.Channel, ID: 0x05}
	rsp, err = client.Do(context.Background(), unknown)
	var se *pid.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, pid.StatusUnknownCommand, se.Status)
	require.NotNil(t, rsp)
}

func TestClientTransportError(t *testing.T) {
	failed := errors.New("broken")
	client := NewClient(exchangeFunc(func(context.Context, *pid.Command) (*pid.Response, error) {
		return nil, failed
	}))
	_, err := client.Get(context.Background(), pid.Bank1, pid.ChannelCurrentCPS)
	require.Equal(t, failed, err)
}

func TestClientGo(t *testing.T) {
	client := NewClient(newRegisterExchanger())
	require.NoError(t, client.SetTargetCPS(context.Background(), pid.Bank2, -300))

	call := client.Go(context.Background(), mustCommand(t, pid.Channel, pid.Bank2, pid.ChannelGetTargetCPS, nil))
	require.Equal(t, pid.ChannelGetTargetCPS, call.Command().ID)
	result := <-call.ResultChan()
	require.NoError(t, result.Err)
	require.Equal(t, pid.Int32(-300), result.Value())

	ch := make(chan Result, 2)
	client.GoWith(context.Background(), mustCommand(t, pid.Channel, pid.Bank1, pid.ChannelGetTargetCPS, nil), ch)
	result = <-ch
	require.NoError(t, result.Err)
	require.Equal(t, pid.Int32(0), result.Value())

	require.Equal(t, pid.NoValue, Result{Err: ErrTimeout}.Value())
}

func TestClientGains(t *testing.T) {
	x := newRegisterExchanger()
	client := NewClient(x)
	ctx := context.Background()
	gains := Gains{Kp: 0.001, Ki: 0.0003, Kd: 0, Kn: 0.5}
	require.NoError(t, client.SetGains(ctx, pid.Bank1, gains))
	require.Len(t, x.sent, 4)
	require.Equal(t, pid.ChannelPIDSetKp, x.sent[0].ID)
	require.Equal(t, pid.ChannelPIDSetKn, x.sent[3].ID)

	read, err := client.Gains(ctx, pid.Bank1)
	require.NoError(t, err)
	require.Equal(t, gains, read)

	read, err = client.Gains(ctx, pid.Bank2)
	require.NoError(t, err)
	require.Equal(t, Gains{}, read)
}

func TestClientHelpers(t *testing.T) {
	x := newRegisterExchanger()
	client := NewClient(x)
	ctx := context.Background()

	require.NoError(t, client.Stop(ctx, pid.Bank1))
	require.NoError(t, client.Reset(ctx, pid.Bank2))
	cps, err := client.CurrentCPS(ctx, pid.Bank1)
	require.NoError(t, err)
	require.Equal(t, float32(0), cps)
	require.NoError(t, client.SetTargetCPS(ctx, pid.Bank1, 1200))
	target, err := client.TargetCPS(ctx, pid.Bank1)
	require.NoError(t, err)
	require.Equal(t, int32(1200), target)

	require.Equal(t, pid.ChannelStop, x.sent[0].ID)
	require.Equal(t, pid.ChannelPIDReset, x.sent[1].ID)
	require.Equal(t, pid.Bank2, x.sent[1].Bank)
}

func TestClientSendValidates(t *testing.T) {
	x := newRegisterExchanger()
	client := NewClient(x)
	err := client.Set(context.Background(), pid.Bank1, pid.ChannelPIDSetKp, int32(1))
	require.True(t, errors.Is(err, pid.ErrTypeMismatch))
	_, err = client.Send(context.Background(), pid.Global, pid.Bank1, 0x30, nil)
	require.True(t, errors.Is(err, pid.ErrUnknownCommand))
	require.Empty(t, x.sent)
}

type exchangeFunc func(context.Context, *pid.Command) (*pid.Response, error)

func (f exchangeFunc) Exchange(ctx context.Context, cmd *pid.Command) (*pid.Response, error) {
	return f(ctx, cmd)
}
