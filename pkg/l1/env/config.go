// Package env provides common options of pidctl commands.
package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robotalks/pidctl.go/pkg/l0/comm"
	"github.com/robotalks/pidctl.go/pkg/l1/mqtt"
)

// Config provides common options to reach a controller.
type Config struct {
	// Port is the transport URL of the controller, see comm.Open.
	// e.g. /dev/ttyUSB0, COM8, tcp://host:4000
	Port string

	// MQTTBrokerURL specifies the MQTT broker used by bridges.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string

	// DeviceID identifies the controller behind a bridge.
	DeviceID string
}

var defaultConfig = Config{
	Port:          "/dev/ttyUSB0",
	MQTTBrokerURL: "mqtt://localhost:1883/pidctl/",
}

func init() {
	if val := os.Getenv("PIDCTL_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("PIDCTL_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("PIDCTL_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Controller port or transport URL")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.DeviceID, "device", defaultConfig.DeviceID, "Device ID on MQTT, default to machine ID")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Device returns DeviceID, or the machine ID if not set.
func (c *Config) Device() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	return MachineID()
}

// DeviceURL returns the transport URL reaching the device through a
// bridge, e.g. mqtt://localhost:1883/pidctl/dev1.
func (c *Config) DeviceURL(device string) string {
	u := c.MQTTBrokerURL
	query := ""
	if n := strings.Index(u, "?"); n >= 0 {
		u, query = u[:n], u[n:]
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u + device + query
}

// Open opens the controller on Port.
func (c *Config) Open() (*comm.Conn, error) {
	if c.Port == "" {
		return nil, fmt.Errorf("controller port must be specified")
	}
	return comm.Open(c.Port)
}

// MustOpen opens the controller and fails on error.
func (c *Config) MustOpen() *comm.Conn {
	conn, err := c.Open()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// NewQueue creates an MQTT Queue on MQTTBrokerURL.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	if c.MQTTBrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL must be specified")
	}
	return mqtt.NewQueueFromURL(c.MQTTBrokerURL)
}
