package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	fx "github.com/robotalks/pidctl.go/pkg/framework"
	"github.com/robotalks/pidctl.go/pkg/l1"
	"github.com/robotalks/pidctl.go/pkg/l1/bridge"
	"github.com/robotalks/pidctl.go/pkg/l1/env"
	"github.com/robotalks/pidctl.go/pkg/monitor"
)

var (
	description = "PID motor controller"
	metricsAddr string
)

func init() {
	env.SetupFlags()
	flag.StringVar(&description, "desc", description, "Device description announced on MQTT")
	flag.StringVar(&metricsAddr, "metrics-addr", metricsAddr, "Serve Prometheus metrics on this address, e.g. :9100")
}

func main() {
	flag.Parse()

	conf := env.Default()
	device := conf.Device()
	conn := conf.MustOpen()
	defer conn.Close()

	q, err := bridge.NewQueue(conf.MQTTBrokerURL, device)
	if err != nil {
		log.Fatalln(err)
	}
	meta := l1.DeviceMeta{Description: description, Port: conf.Port, Banks: 2}
	runner := fx.NewRunner().HandleSignals()
	if metricsAddr != "" {
		reg := monitor.NewRegistry()
		conn.Observer = monitor.NewMetrics(reg)
		runner.Go(fx.NamedFunc("metrics", func(ctx context.Context) error {
			return monitor.ServeMetrics(ctx, metricsAddr, reg)
		}))
	}
	runner.Go(bridge.New(q, conn, device, meta))

	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}

