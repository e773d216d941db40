package mqtt

import (
	"errors"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// DefaultTimeout limits waiting for broker acknowledgements.
const DefaultTimeout = 5 * time.Second

// ErrTimeout indicates the broker didn't acknowledge in time.
var ErrTimeout = errors.New("mqtt timeout")

// Client is the part of paho.Client used by Queue.
type Client interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Queue wraps an MQTT client and dispatches received messages to
// handlers. All topics are relative to TopicPrefix.
type Queue struct {
	Client       Client
	TopicPrefix  string
	QoS          byte
	OnConnect    func(*Queue)
	OnDisconnect func(*Queue, error)

	lock sync.RWMutex
	subs map[string][]*Subscription
}

// Subscription is a handler registered for a topic filter.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	filter  string
	handler Handler
}

// Wait waits for a token with timeout.
func Wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}

// MatchTopic matches a topic against a filter with + and # wildcards.
func MatchTopic(topic, filter string) bool {
	t, f := strings.Split(topic, "/"), strings.Split(filter, "/")
	for n, level := range f {
		if level == "#" {
			return n == len(f)-1
		}
		if n >= len(t) {
			return false
		}
		if level != "+" && level != t[n] {
			return false
		}
	}
	return len(t) == len(f)
}

// NewQueue creates a Queue with a paho client.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, QoS: 1}
	options.SetOnConnectHandler(func(paho.Client) { q.Connected() })
	options.SetConnectionLostHandler(func(_ paho.Client, err error) { q.ConnectionLost(err) })
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates a Queue from a broker URL. The path of the URL
// becomes the topic prefix.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects to the broker and waits for completion.
func (q *Queue) Connect() error {
	return Wait(q.Client.Connect(), DefaultTimeout)
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub registers a handler for a topic filter. The broker is only asked to
// subscribe the first time a filter is used.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.lock.Lock()
	if q.subs == nil {
		q.subs = make(map[string][]*Subscription)
	}
	first := len(q.subs[filter]) == 0
	q.subs[filter] = append(q.subs[filter], sub)
	q.lock.Unlock()

	if first {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+filter, q.QoS, q.dispatch)
	} else {
		sub.Token = &paho.DummyToken{}
	}
	return sub
}

// Pub publishes a message.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, q.QoS, false)
}

// PubRetained publishes a retained message. An empty payload clears the
// retained message of the topic.
func (q *Queue) PubRetained(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, q.QoS, true)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	glog.V(3).Infof("PUB %q %d bytes", q.TopicPrefix+topic, len(payload))
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all registered filters, e.g. after reconnection.
func (q *Queue) Resubscribe() paho.Token {
	filters := make(map[string]byte)
	q.lock.RLock()
	for filter := range q.subs {
		filters[q.TopicPrefix+filter] = q.QoS
	}
	q.lock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

// Connected is called when the client (re)connects.
func (q *Queue) Connected() {
	glog.Info("mqtt connected")
	q.Resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

// ConnectionLost is called when the client loses the connection.
func (q *Queue) ConnectionLost(err error) {
	glog.Warningf("mqtt connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q, err)
	}
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	q.Deliver(msg.Topic(), msg.Payload())
}

// Deliver dispatches a received message to matching handlers. topic
// includes TopicPrefix.
func (q *Queue) Deliver(topic string, payload []byte) {
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(3).Infof("RCV %q", topic)
	var handlers []Handler
	q.lock.RLock()
	for filter, subs := range q.subs {
		if MatchTopic(topic, filter) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	q.lock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close unregisters the handler. The broker is asked to unsubscribe when
// the last handler of the filter is gone.
func (s *Subscription) Close() error {
	q := s.queue
	q.lock.Lock()
	subs := q.subs[s.filter]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	last := len(subs) == 0
	if last {
		delete(q.subs, s.filter)
	} else {
		q.subs[s.filter] = subs
	}
	q.lock.Unlock()
	if !last {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.filter)
	return Wait(q.Client.Unsubscribe(q.TopicPrefix+s.filter), DefaultTimeout)
}
