// Package sh provides the interactive shell of pidcli.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l0/pid"
	"github.com/robotalks/pidctl.go/pkg/l1"
	"github.com/robotalks/pidctl.go/pkg/l1/env"
	"github.com/robotalks/pidctl.go/pkg/l1/mqtt"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session
}

// Session is an open connection to a controller.
type Session struct {
	URL    string
	Conn   *comm.Conn
	Client *comm.Client
	// Bank is the channel addressed by channel commands.
	Bank pid.Bank
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&BankCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SessionFrom gets the current Session, nil if not connected.
func SessionFrom(c *ishell.Context) *Session {
	return ShellFrom(c).Session
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatInfo prints DeviceInfo into friendly string for display.
func FormatInfo(info l1.DeviceInfo) string {
	var w strings.Builder
	w.WriteString(info.ID)
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Port != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Port)
	}
	return w.String()
}

// Print prints v as JSON if requested, otherwise text.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverDevices lists the devices announced by bridges.
func (s *Shell) DiscoverDevices() ([]l1.DeviceInfo, error) {
	q, err := s.Config.NewQueue()
	if err != nil {
		return nil, err
	}
	if err = q.Connect(); err != nil {
		return nil, err
	}
	defer q.Close()
	return mqtt.Discover(context.TODO(), q, mqtt.DefaultDiscoverTimeout)
}

// SelectDevice discovers devices and asks for a choice.
func (s *Shell) SelectDevice() (*l1.DeviceInfo, error) {
	infoList, err := s.DiscoverDevices()
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 devices discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect opens a controller by transport URL.
func (s *Shell) Connect(portURL string) error {
	conn, err := comm.Open(portURL)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Session = &Session{URL: portURL, Conn: conn, Client: comm.NewClient(conn)}
	s.updatePrompt()
	return nil
}

// Disconnect closes current controller.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Conn.Close()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// SelectBank changes the channel addressed by channel commands.
func (s *Shell) SelectBank(bank pid.Bank) {
	if s.Session != nil {
		s.Session.Bank = bank
		s.updatePrompt()
	}
}

func (s *Shell) updatePrompt() {
	s.Shell.SetPrompt(fmt.Sprintf("%s[%s] > ", s.Session.URL, s.Session.Bank))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		if err := s.Connect(s.Config.Port); err != nil {
			if !s.Interactive {
				log.Fatalf("connect %q failed: %v", s.Config.Port, err)
			}
			s.Shell.Printf("connect %q failed: %v\n", s.Config.Port, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseBank parses a 1-based bank number.
func ParseBank(str string) (pid.Bank, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(str), "bank"))
	if err != nil || n < 1 || n > 2 {
		return pid.Bank1, fmt.Errorf("invalid bank %q, 1 or 2 expected", str)
	}
	return pid.Bank(n - 1), nil
}

var (
	// DiscoverCmd discovers devices behind bridges.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			infoList, err := ShellFrom(c).DiscoverDevices()
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.DeviceInfo{}
				}
				Print(c, infoList, "")
				return
			}
			if len(infoList) == 0 {
				c.Println("No devices found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a controller by URL, or a discovered device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL | DEVICE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var portURL string
			switch {
			case len(c.Args) == 0:
				info, err := s.SelectDevice()
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no device discovered"))
					return
				}
				portURL = s.Config.DeviceURL(info.ID)
			case strings.Contains(c.Args[0], "://") || strings.ContainsAny(c.Args[0], `/\`) ||
				strings.HasPrefix(strings.ToUpper(c.Args[0]), "COM"):
				portURL = c.Args[0]
			default:
				portURL = s.Config.DeviceURL(c.Args[0])
			}
			if err := s.Connect(portURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current controller.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// BankCmd selects the channel.
	BankCmd = ishell.Cmd{
		Name:    "bank",
		Aliases: []string{"b"},
		Help:    "1|2",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Println(SessionFrom(c).Bank)
				return
			}
			bank, err := ParseBank(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).SelectBank(bank)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
