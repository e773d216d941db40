package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// Default timings of an exchange.
const (
	// DefaultDelay is the pause between writing a command and reading
	// the response. The firmware needs it to process the command.
	DefaultDelay = 40 * time.Millisecond
	// DefaultTimeout is the maximum wait for a complete response.
	DefaultTimeout = time.Second
)

// Observer is notified after each exchange.
type Observer interface {
	ObserveExchange(cmd []byte, rsp *pid.Response, err error, elapsed time.Duration)
}

// ObserveExchangeFunc is func type of Observer.
type ObserveExchangeFunc func(cmd []byte, rsp *pid.Response, err error, elapsed time.Duration)

// ObserveExchange implements Observer.
func (f ObserveExchangeFunc) ObserveExchange(cmd []byte, rsp *pid.Response, err error, elapsed time.Duration) {
	f(cmd, rsp, err, elapsed)
}

// Conn exchanges frames with a controller.
type Conn struct {
	ReadWriter io.ReadWriter
	Delay      time.Duration
	// Timeout limits the wait for a response after Delay. Zero waits
	// forever.
	Timeout  time.Duration
	Observer Observer

	lock      sync.Mutex
	readOnce  sync.Once
	closeOnce sync.Once
	byteCh    chan byte
	errCh     chan error
	closedCh  chan struct{}
	readErr   error
}

// NewConn creates a Conn over a byte stream.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		ReadWriter: rw,
		Delay:      DefaultDelay,
		Timeout:    DefaultTimeout,
		byteCh:     make(chan byte, 256),
		errCh:      make(chan error, 1),
		closedCh:   make(chan struct{}),
	}
}

// Exchange sends a command and waits for its response. The response value
// is decoded using the kind from the command table. A response with
// non-success status is returned without error, use Response.Err or
// Client for that.
func (c *Conn) Exchange(ctx context.Context, cmd *pid.Command) (*pid.Response, error) {
	return c.ExchangeFrame(ctx, cmd.Bytes(), cmd.ResponseKind())
}

// ExchangeFrame sends raw command bytes. The bytes are not validated so
// corrupted frames can be sent on purpose.
func (c *Conn) ExchangeFrame(ctx context.Context, frame []byte, kind pid.Kind) (*pid.Response, error) {
	_, rsp, err := c.exchange(ctx, frame, kind)
	return rsp, err
}

// ExchangeRaw sends raw command bytes and returns the 7 bytes received,
// whether or not they form a valid response. Only transport failures are
// returned as errors.
func (c *Conn) ExchangeRaw(ctx context.Context, frame []byte) ([]byte, error) {
	raw, _, err := c.exchange(ctx, frame, pid.KindUInt32)
	if raw != nil {
		return raw, nil
	}
	return nil, err
}

// exchange returns the received bytes if a complete frame was read, and
// the decoded response or the error.
func (c *Conn) exchange(ctx context.Context, frame []byte, kind pid.Kind) (raw []byte, rsp *pid.Response, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	start := time.Now()
	if o := c.Observer; o != nil {
		defer func() {
			o.ObserveExchange(frame, rsp, err, time.Since(start))
		}()
	}

	select {
	case <-c.closedCh:
		return nil, nil, ErrClosed
	default:
	}
	if c.readErr != nil {
		return nil, nil, c.readErr
	}
	c.readOnce.Do(func() { go c.readLoop() })

	c.discard()
	glog.V(2).Infof("TX [% x]", frame)
	if _, err = c.ReadWriter.Write(frame); err != nil {
		return nil, nil, err
	}
	if err = sleep(ctx, c.Delay); err != nil {
		return nil, nil, err
	}
	raw, err = c.readFrame(ctx)
	if err != nil {
		glog.V(2).Infof("RX %v", err)
		return nil, nil, err
	}
	glog.V(2).Infof("RX [% x]", raw)
	rsp, err = pid.DecodeResponse(raw, kind)
	return raw, rsp, err
}

// Close stops the Conn and closes the underlying stream if possible.
func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		close(c.closedCh)
		if closer, ok := c.ReadWriter.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return
}

func (c *Conn) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := c.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			select {
			case c.byteCh <- b:
			case <-c.closedCh:
				return
			}
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			c.errCh <- err
			return
		}
	}
}

// discard drops bytes left from a previous timed out exchange.
func (c *Conn) discard() {
	for {
		select {
		case b := <-c.byteCh:
			glog.V(3).Infof("discard %02x", b)
		default:
			return
		}
	}
}

func (c *Conn) readFrame(ctx context.Context) ([]byte, error) {
	buf := make([]byte, 0, pid.FrameSize)
	var timeout <-chan time.Time
	if c.Timeout > 0 {
		timer := time.NewTimer(c.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	for len(buf) < pid.FrameSize {
		select {
		case b := <-c.byteCh:
			buf = append(buf, b)
		case err := <-c.errCh:
			// the reader queues all bytes before reporting the error.
			buf = c.drain(buf)
			if err == io.EOF {
				err = ErrClosed
			}
			c.readErr = err
			if len(buf) < pid.FrameSize {
				return nil, err
			}
		case <-timeout:
			return nil, &ShortReadError{Got: buf}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.closedCh:
			return nil, ErrClosed
		}
	}
	return buf, nil
}

func (c *Conn) drain(buf []byte) []byte {
	for len(buf) < pid.FrameSize {
		select {
		case b := <-c.byteCh:
			buf = append(buf, b)
		default:
			return buf
		}
	}
	return buf
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
