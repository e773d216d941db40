package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pidctl.go/pkg/framework"
	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// Monitor polls the query commands of a Plan.
type Monitor struct {
	Plan   *Plan
	Client *comm.Client
	Clock  framework.TimeSource

	entries []pid.Entry
	banks   []pid.Bank
}

// New creates a Monitor. The plan must be normalized.
func New(plan *Plan, client *comm.Client) (*Monitor, error) {
	if plan == nil {
		return nil, errors.New("monitor: plan required")
	}
	if client == nil {
		return nil, errors.New("monitor: client required")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.Interval <= 0 {
		return nil, errors.New("monitor: interval must be > 0")
	}
	entries, err := plan.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("monitor: at least one command required")
	}
	banks := plan.BankList()
	if len(banks) == 0 {
		return nil, errors.New("monitor: at least one bank required")
	}
	return &Monitor{
		Plan:    plan,
		Client:  client,
		Clock:   framework.SystemTime,
		entries: entries,
		banks:   banks,
	}, nil
}

// Name implements framework.Named.
func (m *Monitor) Name() string {
	return "monitor:" + m.Plan.Device
}

// PollOnce reads every command on every bank. On any failure no sample
// is returned.
func (m *Monitor) PollOnce(ctx context.Context) PollResult {
	res := PollResult{Device: m.Plan.Device, At: m.Clock.Time()}
	samples := make([]Sample, 0, len(m.banks))
	for _, bank := range m.banks {
		s := Sample{Device: m.Plan.Device, Bank: bank, At: res.At}
		for _, e := range m.entries {
			v, err := m.Client.Get(ctx, bank, e.ID)
			if err != nil {
				res.Err = fmt.Errorf("%s %s: %w", bank, e.Name, err)
				return res
			}
			s.Readings = append(s.Readings, Reading{Entry: e, Value: v})
		}
		samples = append(samples, s)
	}
	res.Samples = samples
	return res
}

// Run polls every Plan.Interval until ctx is done. A result is sent to
// out per cycle, dropped if out is not ready.
func (m *Monitor) Run(ctx context.Context, out chan<- PollResult) error {
	ticker := time.NewTicker(m.Plan.Interval)
	defer ticker.Stop()
	for {
		res := m.PollOnce(ctx)
		if res.Err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Warningf("%s poll failed: %v", m.Plan.Device, res.Err)
		}
		if out != nil {
			select {
			case out <- res:
			case <-ctx.Done():
				return ctx.Err()
			default:
				glog.V(1).Infof("%s result dropped", m.Plan.Device)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
