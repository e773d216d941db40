package comm

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// DefaultBaudRate is the baud rate of the controller UART.
const DefaultBaudRate = 115200

// DialTimeout limits connecting to network transports.
var DialTimeout = 5 * time.Second

// Dialer opens the byte stream described by a transport URL.
type Dialer func(u *url.URL) (io.ReadWriteCloser, error)

var (
	dialersLock sync.RWMutex
	dialers     = map[string]Dialer{
		"serial": dialSerial,
		"tcp":    dialTCP,
		"ws":     dialWebSocket,
		"wss":    dialWebSocket,
	}
)

// RegisterDialer adds support of a URL scheme.
func RegisterDialer(scheme string, dialer Dialer) {
	dialersLock.Lock()
	defer dialersLock.Unlock()
	dialers[scheme] = dialer
}

// ParseURL parses a transport URL. A string without scheme is taken as a
// serial device path.
func ParseURL(s string) (*url.URL, error) {
	if !strings.Contains(s, "://") {
		return &url.URL{Scheme: "serial", Path: s}, nil
	}
	return url.Parse(s)
}

// Dial opens the byte stream of a transport URL.
func Dial(s string) (io.ReadWriteCloser, error) {
	u, err := ParseURL(s)
	if err != nil {
		return nil, err
	}
	dialersLock.RLock()
	dialer := dialers[u.Scheme]
	dialersLock.RUnlock()
	if dialer == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return dialer(u)
}

// Open dials the transport URL and creates a Conn. The query parameters
// delay and timeout override the exchange timings, e.g.
// serial:///dev/ttyUSB0?timeout=500ms.
func Open(s string) (*Conn, error) {
	u, err := ParseURL(s)
	if err != nil {
		return nil, err
	}
	query := u.Query()
	conn := NewConn(nil)
	if val := query.Get("delay"); val != "" {
		if conn.Delay, err = time.ParseDuration(val); err != nil {
			return nil, fmt.Errorf("invalid delay: %v", err)
		}
	}
	if val := query.Get("timeout"); val != "" {
		if conn.Timeout, err = time.ParseDuration(val); err != nil {
			return nil, fmt.Errorf("invalid timeout: %v", err)
		}
	}
	rw, err := Dial(s)
	if err != nil {
		return nil, err
	}
	conn.ReadWriter = rw
	return conn, nil
}

func dialSerial(u *url.URL) (io.ReadWriteCloser, error) {
	port := u.Host + u.Path
	if port == "" {
		return nil, fmt.Errorf("serial port not specified")
	}
	baud := DefaultBaudRate
	if val := u.Query().Get("baud"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid baud rate %q", val)
		}
		baud = n
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(port, mode)
}

func dialTCP(u *url.URL) (io.ReadWriteCloser, error) {
	return net.DialTimeout("tcp", u.Host, DialTimeout)
}

func dialWebSocket(u *url.URL) (io.ReadWriteCloser, error) {
	origin := "http://" + u.Host + "/"
	if u.Scheme == "wss" {
		origin = "https://" + u.Host + "/"
	}
	config, err := websocket.NewConfig(u.String(), origin)
	if err != nil {
		return nil, err
	}
	ws, err := websocket.DialConfig(config)
	if err != nil {
		return nil, err
	}
	ws.PayloadType = websocket.BinaryFrame
	return ws, nil
}
