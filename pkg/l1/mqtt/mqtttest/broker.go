// Package mqtttest provides an in-process broker for testing code built
// on mqtt.Queue.
package mqtttest

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/robotalks/pidctl.go/pkg/l1/mqtt"
)

// Message is a published message.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Broker routes messages between queues synchronously: Publish returns
// after every matching handler ran.
type Broker struct {
	lock      sync.Mutex
	clients   []*client
	retained  map[string][]byte
	published []Message
}

// NewBroker creates a Broker.
func NewBroker() *Broker {
	return &Broker{retained: make(map[string][]byte)}
}

// NewQueue creates a Queue connected to the broker.
func (b *Broker) NewQueue(topicPrefix string) *mqtt.Queue {
	q := &mqtt.Queue{TopicPrefix: topicPrefix, QoS: 1}
	c := &client{broker: b, queue: q, filters: make(map[string]bool)}
	q.Client = c
	b.lock.Lock()
	b.clients = append(b.clients, c)
	b.lock.Unlock()
	return q
}

// Retained returns the retained payload of a full topic.
func (b *Broker) Retained(topic string) ([]byte, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	payload, ok := b.retained[topic]
	return payload, ok
}

// Published returns all messages published so far.
func (b *Broker) Published() []Message {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Message(nil), b.published...)
}

func (b *Broker) publish(topic string, payload []byte, retained bool) {
	var targets []*mqtt.Queue
	b.lock.Lock()
	b.published = append(b.published, Message{Topic: topic, Payload: payload, Retained: retained})
	if retained {
		if len(payload) == 0 {
			delete(b.retained, topic)
		} else {
			b.retained[topic] = payload
		}
	}
	for _, c := range b.clients {
		if c.matches(topic) {
			targets = append(targets, c.queue)
		}
	}
	b.lock.Unlock()
	for _, q := range targets {
		q.Deliver(topic, payload)
	}
}

type client struct {
	broker    *Broker
	queue     *mqtt.Queue
	connected bool
	filters   map[string]bool
}

// matches is called with broker lock held.
func (c *client) matches(topic string) bool {
	if !c.connected {
		return false
	}
	for filter := range c.filters {
		if mqtt.MatchTopic(topic, filter) {
			return true
		}
	}
	return false
}

func (c *client) Connect() paho.Token {
	c.broker.lock.Lock()
	c.connected = true
	c.broker.lock.Unlock()
	c.queue.Connected()
	return &paho.DummyToken{}
}

func (c *client) Disconnect(uint) {
	c.broker.lock.Lock()
	c.connected = false
	c.broker.lock.Unlock()
}

func (c *client) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = append([]byte(nil), p...)
	case string:
		data = []byte(p)
	}
	c.broker.publish(topic, data, retained)
	return &paho.DummyToken{}
}

func (c *client) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	return c.SubscribeMultiple(map[string]byte{topic: qos}, nil)
}

func (c *client) SubscribeMultiple(filters map[string]byte, _ paho.MessageHandler) paho.Token {
	type delivery struct {
		topic   string
		payload []byte
	}
	var retained []delivery
	c.broker.lock.Lock()
	for filter := range filters {
		c.filters[filter] = true
		for topic, payload := range c.broker.retained {
			if mqtt.MatchTopic(topic, filter) {
				retained = append(retained, delivery{topic, payload})
			}
		}
	}
	c.broker.lock.Unlock()
	for _, d := range retained {
		c.queue.Deliver(d.topic, d.payload)
	}
	return &paho.DummyToken{}
}

func (c *client) Unsubscribe(topics ...string) paho.Token {
	c.broker.lock.Lock()
	for _, topic := range topics {
		delete(c.filters, topic)
	}
	c.broker.lock.Unlock()
	return &paho.DummyToken{}
}
