package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves an ID identifying the machine. The raw machine ID
// is hashed with the application name so it's never exposed on MQTT.
// It falls back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID("pidctl")
	if err == nil && id != "" {
		return id[:12]
	}
	glog.Warningf("machine ID unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "pidctl"
}
