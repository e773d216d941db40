package mqtt

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/robotalks/pidctl.go/pkg/l0/comm"
)

func init() {
	comm.RegisterDialer("mqtt", Dial)
	comm.RegisterDialer("mqtts", Dial)
}

// Stream is the byte stream to a device behind a bridge. Writes are
// published to the command topic and payloads received on the response
// topic are read back in order.
type Stream struct {
	Queue  *Queue
	Device string

	ownQueue  bool
	sub       *Subscription
	payloadCh chan []byte
	pending   []byte
	closeOnce sync.Once
	closedCh  chan struct{}
}

// NewStream creates a Stream and subscribes to the response topic.
func NewStream(q *Queue, device string) (*Stream, error) {
	s := &Stream{
		Queue:     q,
		Device:    device,
		payloadCh: make(chan []byte, 16),
		closedCh:  make(chan struct{}),
	}
	s.sub = q.Sub(ResponseTopic(device), s.handleMsg)
	if err := Wait(s.sub.Token, DefaultTimeout); err != nil {
		s.sub.Close()
		return nil, err
	}
	return s, nil
}

// Dial implements comm.Dialer for URLs like mqtt://host:1883/prefix/device.
func Dial(u *url.URL) (io.ReadWriteCloser, error) {
	opts, topicPath, err := ClientOptionsFromURL(u.String())
	if err != nil {
		return nil, err
	}
	prefix, device := SplitDevice(topicPath)
	if device == "" {
		return nil, fmt.Errorf("device not specified in %q", u.String())
	}
	q := NewQueue(opts, prefix)
	if err := q.Connect(); err != nil {
		return nil, err
	}
	s, err := NewStream(q, device)
	if err != nil {
		q.Close()
		return nil, err
	}
	s.ownQueue = true
	return s, nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		select {
		case payload := <-s.payloadCh:
			s.pending = payload
		case <-s.closedCh:
			return 0, io.EOF
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer. Each write is one message.
func (s *Stream) Write(p []byte) (int, error) {
	select {
	case <-s.closedCh:
		return 0, io.ErrClosedPipe
	default:
	}
	payload := append([]byte(nil), p...)
	if err := Wait(s.Queue.Pub(CommandTopic(s.Device), payload), DefaultTimeout); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.closedCh)
		err = s.sub.Close()
		if s.ownQueue {
			s.Queue.Close()
		}
	})
	return
}

func (s *Stream) handleMsg(_ string, payload []byte) {
	select {
	case s.payloadCh <- append([]byte(nil), payload...):
	case <-s.closedCh:
	}
}
