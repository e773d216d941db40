// Package pid provides the packet codec of the PID motor controller protocol.
package pid

// The controller is attached to a peer-to-peer channel (usually a serial
// port) and speaks a strict request/response protocol. Both directions use
// fixed 7-byte frames:
//
//	command:  sync(0xcc) | scope:1 bank:1 id:6 | value(4, big-endian) | checksum
//	response: cmd-checksum | status | value(4, big-endian) | checksum
//
// A valid frame sums to zero modulo 256. The response carries no type
// information, the value kind comes from the command table entry of the
// command that was sent.
//
// Producer: controller firmware
// Consumer: host tools (comm, bridge, monitor, cli)
