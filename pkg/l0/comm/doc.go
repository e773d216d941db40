// Package comm exchanges PID controller frames over a byte stream.
package comm

// The controller is strictly request/response: the host writes one 7-byte
// command frame, waits a short moment and reads exactly one 7-byte
// response frame. There's no sequence number or framing marker in the
// response, so only one exchange can be in flight on a link. Conn
// serializes exchanges and discards stale bytes before each command to
// recover from a previously timed out reply.
//
// Transports are selected by URL, see Open:
//
//	serial:///dev/ttyUSB0?baud=115200
//	/dev/ttyUSB0, COM8
//	tcp://host:port
//	ws://host:port/path
//	mqtt://broker:1883/prefix/device (requires importing pkg/l1/mqtt)
//
// Producer: host (L1)
// Consumer: motor controller firmware (L0)
