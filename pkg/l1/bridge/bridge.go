// Package bridge exposes a serial attached controller on MQTT.
//
// Raw command frames published to <prefix><device>/cmd are exchanged with
// the controller one at a time and the response frames are published to
// <prefix><device>/rsp. The device metadata is kept as a retained message
// on <prefix><device>/meta while the bridge is online.
package bridge

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/robotalks/pidctl.go/pkg/l0/pid"
	"github.com/robotalks/pidctl.go/pkg/l1"
	"github.com/robotalks/pidctl.go/pkg/l1/mqtt"
)

// FrameExchanger exchanges raw frames with the controller.
type FrameExchanger interface {
	ExchangeRaw(ctx context.Context, frame []byte) ([]byte, error)
}

// Bridge forwards frames between MQTT and a controller.
type Bridge struct {
	Queue  *mqtt.Queue
	Conn   FrameExchanger
	Device string
	Meta   l1.DeviceMeta

	frameCh chan []byte
}

// New creates a Bridge.
func New(q *mqtt.Queue, conn FrameExchanger, device string, meta l1.DeviceMeta) *Bridge {
	return &Bridge{
		Queue:   q,
		Conn:    conn,
		Device:  device,
		Meta:    meta,
		frameCh: make(chan []byte, 16),
	}
}

// NewQueue creates the Queue for a bridge from a broker URL. The retained
// metadata is cleared by the broker if the bridge disappears.
func NewQueue(brokerURL, device string) (*mqtt.Queue, error) {
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+mqtt.MetaTopic(device), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("pidctl:" + device)
	}
	return mqtt.NewQueue(opts, topicPrefix), nil
}

// Name implements Named.
func (b *Bridge) Name() string {
	return "bridge:" + b.Device
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	meta, err := json.Marshal(&b.Meta)
	if err != nil {
		return err
	}
	b.Queue.OnConnect = func(q *mqtt.Queue) {
		q.PubRetained(mqtt.MetaTopic(b.Device), meta)
	}
	sub := b.Queue.Sub(mqtt.CommandTopic(b.Device), b.handleMsg)
	if err := b.Queue.Connect(); err != nil {
		sub.Close()
		return err
	}
	glog.Infof("bridge %s online", b.Device)

	for {
		select {
		case frame := <-b.frameCh:
			b.forward(ctx, frame)
		case <-ctx.Done():
			sub.Close()
			if err := mqtt.Wait(b.Queue.PubRetained(mqtt.MetaTopic(b.Device), nil), mqtt.DefaultTimeout); err != nil {
				glog.Warningf("clear meta: %v", err)
			}
			b.Queue.Close()
			glog.Infof("bridge %s offline", b.Device)
			return ctx.Err()
		}
	}
}

// handleMsg runs in the MQTT client, exchanges happen in Run.
func (b *Bridge) handleMsg(_ string, payload []byte) {
	if len(payload) != pid.FrameSize {
		glog.Warningf("drop %d bytes on %s", len(payload), mqtt.CommandTopic(b.Device))
		return
	}
	select {
	case b.frameCh <- append([]byte(nil), payload...):
	default:
		glog.Warningf("bridge %s busy, drop [% x]", b.Device, payload)
	}
}

func (b *Bridge) forward(ctx context.Context, frame []byte) {
	kind := pid.KindNone
	if cmd, err := pid.DecodeCommand(frame); err != nil {
		glog.V(1).Infof("forward invalid frame: %v", err)
	} else {
		glog.V(1).Infof("forward %s", cmd)
		kind = cmd.ResponseKind()
	}
	raw, err := b.Conn.ExchangeRaw(ctx, frame)
	if err != nil {
		glog.Warningf("exchange [% x]: %v", frame, err)
		return
	}
	// published as received, the client reports corrupted replies.
	if rsp, err := pid.DecodeResponse(raw, kind); err != nil {
		glog.Warningf("reply [% x]: %v", raw, err)
	} else {
		glog.V(1).Infof("reply %s", rsp)
	}
	b.Queue.Pub(mqtt.ResponseTopic(b.Device), raw)
}
