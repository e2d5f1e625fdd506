// Package transport adapts byte-level serial devices for use by the
// debugger core and its protocol engine.
//
// Three pieces live here:
//
//   - SerialIO: the contract the platform's serial hardware driver
//     fulfills (init, write, blocking read, non-blocking try-read).
//   - SerialConn: wraps a SerialIO as a protocol.Connection, adding the
//     one-byte peek cache the engine needs for its non-blocking poll.
//   - BufferWriter: a bounded output buffer for monitor command responses.
//     Monitor output written byte-by-byte to the connection would be seen
//     by the client as a stream of tiny packets, so text is accumulated
//     and flushed as a single console write. Capacity for a truncation
//     marker is reserved up front, so overlong output is truncated with a
//     visible marker instead of erroring.
//
// NetSerial adapts a net.Conn to the SerialIO contract for simulated
// targets and host-side tooling.
package transport
