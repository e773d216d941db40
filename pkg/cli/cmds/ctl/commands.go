// Package ctl provides shell commands of the motor controller.
package ctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/pidctl.go/pkg/cli/sh"
	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

func printValue(c *ishell.Context, e pid.Entry, v pid.Value) {
	s := sh.SessionFrom(c)
	res := result{Command: e.Name, Bank: s.Bank.String()}
	if v.Kind() != pid.KindNone {
		res.Value = v.Interface()
	}
	text := "OK"
	if v.Kind() != pid.KindNone {
		text = v.String()
	}
	sh.Print(c, res, text)
}

func send(c *ishell.Context, e pid.Entry, bank pid.Bank, v interface{}) (pid.Value, bool) {
	client := sh.SessionFrom(c).Client
	cmd, err := pid.NewCommandFor(e, bank, v)
	if err != nil {
		c.Err(err)
		return pid.NoValue, false
	}
	rsp, err := client.Do(context.Background(), cmd)
	if err != nil {
		c.Err(err)
		return pid.NoValue, false
	}
	return rsp.Value, true
}

var (
	// ListCmd prints the command table.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"ls"},
		Help:    "[global|channel]",
		Func: func(c *ishell.Context) {
			scopes := []pid.Scope{pid.Global, pid.Channel}
			if len(c.Args) > 0 {
				scope, err := ParseScope(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				scopes = []pid.Scope{scope}
			}
			for _, scope := range scopes {
				for _, e := range pid.Entries(scope) {
					c.Println(FormatEntry(e))
				}
			}
		},
	}

	// GetCmd reads a value on current bank.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "NAME|ID",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("NAME required"))
				return
			}
			e, err := pid.LookupName(pid.Channel, c.Args[0])
			if err == nil && !e.IsQuery() {
				err = fmt.Errorf("%s is not a query command", e.Name)
			}
			if err != nil {
				c.Err(err)
				return
			}
			if v, ok := send(c, e, sh.SessionFrom(c).Bank, nil); ok {
				printValue(c, e, v)
			}
		}),
	}

	// SetCmd writes a value on current bank and shows the previous one.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "NAME VALUE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("NAME and VALUE required"))
				return
			}
			e, err := SetterFor(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			v, err := pid.ParseValue(e.Command, c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			bank := sh.SessionFrom(c).Bank
			res := result{Command: e.Name, Bank: bank.String(), Value: v.Interface()}
			text := "OK"
			if getter, ok := e.Getter(); ok {
				prev, ok := send(c, getter, bank, nil)
				if !ok {
					return
				}
				res.Prev = prev.Interface()
				text = fmt.Sprintf("%s -> %s", prev, v)
			}
			if _, ok := send(c, e, bank, v); ok {
				sh.Print(c, res, text)
			}
		}),
	}

	// StopCmd stops the motor of current bank.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.SessionFrom(c)
			if err := s.Client.Stop(context.Background(), s.Bank); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, result{Command: "stop", Bank: s.Bank.String()}, "OK")
		}),
	}

	// ResetCmd resets the PID state of current bank.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.SessionFrom(c)
			if err := s.Client.Reset(context.Background(), s.Bank); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, result{Command: "pid_reset", Bank: s.Bank.String()}, "OK")
		}),
	}

	// GainsCmd reads or writes all gains of current bank.
	GainsCmd = ishell.Cmd{
		Name:    "gains",
		Aliases: []string{"pid"},
		Help:    "[KP KI KD KN]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.SessionFrom(c)
			ctx := context.Background()
			if len(c.Args) == 0 {
				g, err := s.Client.Gains(ctx, s.Bank)
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, g, fmt.Sprintf("kp=%s ki=%s kd=%s kn=%s",
					pid.Float32(g.Kp), pid.Float32(g.Ki), pid.Float32(g.Kd), pid.Float32(g.Kn)))
				return
			}
			if len(c.Args) != 4 {
				c.Err(fmt.Errorf("KP KI KD KN required"))
				return
			}
			var vals [4]float32
			for n, arg := range c.Args {
				v, err := pid.ParseValue(pid.KindFloat32, arg)
				if err != nil {
					c.Err(err)
					return
				}
				vals[n] = v.Float32()
			}
			g := comm.Gains{Kp: vals[0], Ki: vals[1], Kd: vals[2], Kn: vals[3]}
			if err := s.Client.SetGains(ctx, s.Bank, g); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, g, "OK")
		}),
	}

	// SendCmd sends any command in the table.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "SCOPE NAME|ID [VALUE]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("SCOPE and ID required"))
				return
			}
			scope, err := ParseScope(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			e, err := pid.LookupName(scope, c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			v := pid.NoValue
			if len(c.Args) > 2 {
				if v, err = pid.ParseValue(e.Command, c.Args[2]); err != nil {
					c.Err(err)
					return
				}
			} else if e.Command != pid.KindNone {
				c.Err(fmt.Errorf("%s requires a %s VALUE", e.Name, e.Command))
				return
			}
			if rsp, ok := send(c, e, sh.SessionFrom(c).Bank, v); ok {
				printValue(c, e, rsp)
			}
		}),
	}

	// RawCmd sends frame bytes as is, e.g. to test corrupted frames.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "HEX [KIND]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			args, kind := c.Args, pid.KindUInt32
			if k, err := pid.ParseKind(args[len(args)-1]); err == nil && len(args) > 1 {
				args, kind = args[:len(args)-1], k
			}
			frame, err := ParseHex(args...)
			if err != nil {
				c.Err(err)
				return
			}
			rsp, err := sh.SessionFrom(c).Conn.ExchangeFrame(context.Background(), frame, kind)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, map[string]interface{}{
				"status": rsp.Status.String(),
				"value":  rsp.Value.Interface(),
				"frame":  fmt.Sprintf("% x", rsp.Bytes()),
			}, rsp.String())
		}),
	}

	// DecodeCmd decodes frame bytes offline.
	DecodeCmd = ishell.Cmd{
		Name: "decode",
		Help: "HEX [KIND]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			args, kind := c.Args, pid.KindUInt32
			if k, err := pid.ParseKind(args[len(args)-1]); err == nil && len(args) > 1 {
				args, kind = args[:len(args)-1], k
			}
			frame, err := ParseHex(args...)
			if err != nil {
				c.Err(err)
				return
			}
			text, err := DecodeFrame(frame, kind)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(strings.TrimSpace(text))
		},
	}
)

func init() {
	sh.AddCmds(
		&ListCmd,
		&GetCmd,
		&SetCmd,
		&StopCmd,
		&ResetCmd,
		&GainsCmd,
		&SendCmd,
		&RawCmd,
		&DecodeCmd,
	)
}
