package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	fx "github.com/robotalks/pidctl.go/pkg/framework"
	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l1/env"
	"github.com/robotalks/pidctl.go/pkg/monitor"
)

var (
	planFile    = "pidmon.yaml"
	metricsAddr = ":9100"
	publish     bool
)

func init() {
	env.SetupFlags()
	flag.StringVar(&planFile, "plan", planFile, "Polling plan in YAML")
	flag.StringVar(&metricsAddr, "metrics-addr", metricsAddr, "Serve Prometheus metrics on this address, empty to disable")
	flag.BoolVar(&publish, "publish", publish, "Publish samples to MQTT telemetry topics")
}

func main() {
	flag.Parse()

	plan, err := monitor.LoadPlan(planFile)
	if err != nil {
		log.Fatalln(err)
	}
	conf := env.Default()
	conn := conf.MustOpen()
	defer conn.Close()

	reg := monitor.NewRegistry()
	metrics := monitor.NewMetrics(reg)
	conn.Observer = metrics
	mon, err := monitor.New(plan, comm.NewClient(conn))
	if err != nil {
		log.Fatalln(err)
	}

	var pub *monitor.Publisher
	if publish {
		q, err := conf.NewQueue()
		if err != nil {
			log.Fatalln(err)
		}
		if err := q.Connect(); err != nil {
			log.Fatalln(err)
		}
		defer q.Close()
		pub = &monitor.Publisher{Queue: q}
	}

	results := make(chan monitor.PollResult, 16)
	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedFunc(mon.Name(), func(ctx context.Context) error {
		return mon.Run(ctx, results)
	}))
	runner.Go(fx.NamedFunc("sink", func(ctx context.Context) error {
		return monitor.Sink(ctx, results, metrics, pub)
	}))
	if metricsAddr != "" {
		runner.Go(fx.NamedFunc("metrics", func(ctx context.Context) error {
			return monitor.ServeMetrics(ctx, metricsAddr, reg)
		}))
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
