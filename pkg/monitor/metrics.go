package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/pidctl.go/pkg/framework"
	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l0/pid"
)

// NewRegistry creates a Prometheus registry with process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics of reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ServeMetrics serves Handler on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	server := &http.Server{Addr: addr, Handler: Handler(reg)}
	return framework.RunWithContextCancel(ctx, func() { server.Close() }, server.ListenAndServe)
}

// Metrics exports polled values and exchange statistics.
type Metrics struct {
	Values          *prometheus.GaugeVec   // labels: device, bank, command
	PollTotal       *prometheus.CounterVec // labels: device, result=ok|error
	ExchangeTotal   *prometheus.CounterVec // labels: outcome
	ExchangeSeconds prometheus.Histogram
}

// NewMetrics registers and returns the metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pidctl_value",
			Help: "Last polled value of a query command.",
		}, []string{"device", "bank", "command"}),
		PollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pidctl_poll_total",
			Help: "Polling cycles by result.",
		}, []string{"device", "result"}),
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pidctl_exchange_total",
			Help: "Command exchanges by response status or transport failure.",
		}, []string{"outcome"}),
		ExchangeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pidctl_exchange_seconds",
			Help:    "Round trip time of exchanges including the response delay.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
	reg.MustRegister(m.Values, m.PollTotal, m.ExchangeTotal, m.ExchangeSeconds)
	return m
}

// Record updates metrics from a polling result.
func (m *Metrics) Record(res PollResult) {
	if res.Err != nil {
		m.PollTotal.WithLabelValues(res.Device, "error").Inc()
		return
	}
	m.PollTotal.WithLabelValues(res.Device, "ok").Inc()
	for _, s := range res.Samples {
		for _, r := range s.Readings {
			m.Values.WithLabelValues(s.Device, s.Bank.String(), r.Entry.Name).Set(r.Value.Float64())
		}
	}
}

// ObserveExchange implements comm.Observer.
func (m *Metrics) ObserveExchange(cmd []byte, rsp *pid.Response, err error, elapsed time.Duration) {
	m.ExchangeTotal.WithLabelValues(Outcome(rsp, err)).Inc()
	m.ExchangeSeconds.Observe(elapsed.Seconds())
}

// Outcome names the result of an exchange for the outcome label.
func Outcome(rsp *pid.Response, err error) string {
	switch {
	case err == nil && rsp != nil:
		return rsp.Status.String()
	case errors.Is(err, comm.ErrTimeout):
		return "timeout"
	case errors.Is(err, comm.ErrClosed):
		return "closed"
	case errors.Is(err, pid.ErrChecksum):
		return "corrupted"
	default:
		return "error"
	}
}
