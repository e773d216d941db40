package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"net"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/pidctl.go/pkg/framework"
	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l0/pid"
	"github.com/robotalks/pidctl.go/pkg/sim/pidsim"
)

var (
	tcpAddr      = ":4000"
	wsAddr       string
	serialPort   string
	timeConstant = pidsim.DefaultTimeConstant
)

func init() {
	flag.StringVar(&tcpAddr, "tcp", tcpAddr, "Serve tcp:// transport on this address, empty to disable")
	flag.StringVar(&wsAddr, "ws", wsAddr, "Serve ws:// transport on this address")
	flag.StringVar(&serialPort, "serial", serialPort, "Serve on a serial port, e.g. one end of a virtual null-modem pair")
	flag.DurationVar(&timeConstant, "tau", timeConstant, "Time constant of the simulated motors")
}

func main() {
	flag.Parse()

	d := pidsim.New()
	d.TimeConstant = timeConstant
	runner := fx.NewRunner().HandleSignals()
	if tcpAddr != "" {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			log.Fatalln(err)
		}
		glog.Infof("serving tcp://%s", ln.Addr())
		runner.Go(fx.NamedFunc("tcp", func(ctx context.Context) error {
			return d.ServeListener(ctx, ln)
		}))
	}
	if wsAddr != "" {
		glog.Infof("serving ws://%s/", wsAddr)
		runner.Go(fx.NamedFunc("websocket", func(ctx context.Context) error {
			return d.ListenAndServeWebSocket(ctx, wsAddr)
		}))
	}
	if serialPort != "" {
		port, err := comm.Dial(serialPort)
		if err != nil {
			log.Fatalln(err)
		}
		glog.Infof("serving %s", serialPort)
		runner.Go(fx.NamedFunc("serial", func(ctx context.Context) error {
			return d.Serve(ctx, port)
		}))
	}
	go report(runner.Context, d)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}

func report(ctx context.Context, d *pidsim.Device) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if glog.V(1) {
			for _, bank := range []pid.Bank{pid.Bank1, pid.Bank2} {
				ch := d.Channel(bank)
				glog.Infof("%s target=%d current=%.1f", bank, ch.TargetCPS, ch.CurrentCPS)
			}
		}
	}
}
