package comm

import (
	"context"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// Exchanger performs a single command/response exchange.
type Exchanger interface {
	Exchange(context.Context, *pid.Command) (*pid.Response, error)
}

// Result is the result of a command using Go.
type Result struct {
	Err      error
	Response *pid.Response
}

// Value returns the value of the response, NoValue if failed.
func (r Result) Value() pid.Value {
	if r.Err != nil || r.Response == nil {
		return pid.NoValue
	}
	return r.Response.Value
}

// Call represents a pending command waiting for reply.
type Call struct {
	command  *pid.Command
	resultCh chan Result
}

// Command returns the command sent.
func (c *Call) Command() *pid.Command {
	return c.command
}

// ResultChan returns the chan to retrieve result.
func (c *Call) ResultChan() <-chan Result {
	return c.resultCh
}

// Gains are the PID coefficients of a channel.
type Gains struct {
	Kp float32 `json:"kp"`
	Ki float32 `json:"ki"`
	Kd float32 `json:"kd"`
	Kn float32 `json:"kn"`
}

// Client provides typed operations over an Exchanger.
type Client struct {
	Exchanger Exchanger
}

// NewClient creates a client.
func NewClient(x Exchanger) *Client {
	return &Client{Exchanger: x}
}

// Do sends a command and waits for the response. A rejected command
// returns the response together with a *pid.StatusError.
func (c *Client) Do(ctx context.Context, cmd *pid.Command) (*pid.Response, error) {
	rsp, err := c.Exchanger.Exchange(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return rsp, rsp.Err()
}

// GoWith sends a command in the background and delivers the result in
// the provided chan.
func (c *Client) GoWith(ctx context.Context, cmd *pid.Command, ch chan Result) *Call {
	call := &Call{command: cmd, resultCh: ch}
	go func() {
		rsp, err := c.Do(ctx, cmd)
		ch <- Result{Err: err, Response: rsp}
	}()
	return call
}

// Go sends a command in the background and returns a Call for result.
func (c *Client) Go(ctx context.Context, cmd *pid.Command) *Call {
	return c.GoWith(ctx, cmd, make(chan Result, 1))
}

// Send builds and sends a command, then returns the response value.
func (c *Client) Send(ctx context.Context, scope pid.Scope, bank pid.Bank, id pid.CommandID, v interface{}) (pid.Value, error) {
	cmd, err := pid.NewCommand(scope, bank, id, v)
	if err != nil {
		return pid.NoValue, err
	}
	rsp, err := c.Do(ctx, cmd)
	if err != nil {
		return pid.NoValue, err
	}
	return rsp.Value, nil
}

// Get reads a channel value.
func (c *Client) Get(ctx context.Context, bank pid.Bank, id pid.CommandID) (pid.Value, error) {
	return c.Send(ctx, pid.Channel, bank, id, nil)
}

// Set writes a channel value.
func (c *Client) Set(ctx context.Context, bank pid.Bank, id pid.CommandID, v interface{}) error {
	_, err := c.Send(ctx, pid.Channel, bank, id, v)
	return err
}

// Stop stops the motor.
func (c *Client) Stop(ctx context.Context, bank pid.Bank) error {
	return c.Set(ctx, bank, pid.ChannelStop, nil)
}

// Reset clears the PID controller state.
func (c *Client) Reset(ctx context.Context, bank pid.Bank) error {
	return c.Set(ctx, bank, pid.ChannelPIDReset, nil)
}

// SetTargetCPS sets the target speed in counts per second.
func (c *Client) SetTargetCPS(ctx context.Context, bank pid.Bank, cps int32) error {
	return c.Set(ctx, bank, pid.ChannelSetTargetCPS, cps)
}

// TargetCPS reads the target speed.
func (c *Client) TargetCPS(ctx context.Context, bank pid.Bank) (int32, error) {
	v, err := c.Get(ctx, bank, pid.ChannelGetTargetCPS)
	return v.Int32(), err
}

// CurrentCPS reads the measured speed.
func (c *Client) CurrentCPS(ctx context.Context, bank pid.Bank) (float32, error) {
	v, err := c.Get(ctx, bank, pid.ChannelCurrentCPS)
	return v.Float32(), err
}

// Gains reads all PID coefficients.
func (c *Client) Gains(ctx context.Context, bank pid.Bank) (g Gains, err error) {
	for _, item := range gainItems(&g) {
		var v pid.Value
		if v, err = c.Get(ctx, bank, item.get); err != nil {
			return
		}
		*item.val = v.Float32()
	}
	return
}

// SetGains writes all PID coefficients.
func (c *Client) SetGains(ctx context.Context, bank pid.Bank, g Gains) error {
	for _, item := range gainItems(&g) {
		if err := c.Set(ctx, bank, item.get+pid.SetterOffset, *item.val); err != nil {
			return err
		}
	}
	return nil
}

type gainItem struct {
	get pid.CommandID
	val *float32
}

func gainItems(g *Gains) []gainItem {
	return []gainItem{
		{pid.ChannelPIDGetKp, &g.Kp},
		{pid.ChannelPIDGetKi, &g.Ki},
		{pid.ChannelPIDGetKd, &g.Kd},
		{pid.ChannelPIDGetKn, &g.Kn},
	}
}
