package l1

// DeviceMeta describes a controller exposed by a bridge. It's published
// as retained JSON so late subscribers can discover the device.
type DeviceMeta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	Banks       int               `json:"banks,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// DeviceInfo provides information of a discovered device.
type DeviceInfo struct {
	ID   string     `json:"id"`
	Meta DeviceMeta `json:"meta"`
}
