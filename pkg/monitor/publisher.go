package monitor

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/pidctl.go/pkg/l1/mqtt"
)

// Publisher publishes samples to telemetry topics.
type Publisher struct {
	Queue *mqtt.Queue
}

// Publish publishes every sample of a successful result.
func (p *Publisher) Publish(res PollResult) error {
	for n := range res.Samples {
		s := &res.Samples[n]
		payload, err := s.Marshal()
		if err != nil {
			return err
		}
		p.Queue.Pub(mqtt.TelemetryTopic(s.Device, s.Bank), payload)
	}
	return nil
}

// Sink consumes results until ctx is done or results is closed, feeding
// metrics and publisher when they are present.
func Sink(ctx context.Context, results <-chan PollResult, metrics *Metrics, pub *Publisher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}
			if metrics != nil {
				metrics.Record(res)
			}
			if pub != nil && res.Err == nil {
				if err := pub.Publish(res); err != nil {
					glog.Errorf("publish %s: %v", res.Device, err)
				}
			}
		}
	}
}
