package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/robotalks/pidctl.go/pkg/l1/env"
	"github.com/robotalks/pidctl.go/pkg/monitor"
)

var (
	device string
	indent string
)

func init() {
	env.SetupFlags()
	flag.StringVar(&device, "watch", "+", "Device to watch, + for all")
	flag.StringVar(&indent, "indent", indent, "Indent of printed JSON")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := env.Default().NewQueue()
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(device+"/telemetry/+", func(topic string, payload []byte) {
		text, err := monitor.FormatJSON(payload, indent)
		if err != nil {
			log.Printf("%s: bad sample: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, text)
	})
	q.Sub(device+"/meta", func(topic string, payload []byte) {
		if len(payload) == 0 {
			log.Printf("%s: offline", strings.TrimSuffix(topic, "/meta"))
			return
		}
		log.Printf("%s: %s", topic, string(payload))
	})
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
