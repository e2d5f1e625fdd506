// Package protocol defines the contract between the fwdbg debugger core and
// an embedding GDB Remote Serial Protocol engine.
//
// The wire protocol itself - packet framing, checksums, run-length encoding,
// command parsing - is deliberately not implemented here. An external
// GDB-stub-compatible engine owns that state machine and calls back into the
// debugger core through the interfaces in this package while it parses
// client requests. The core supplies:
//
//   - Connection: a byte-oriented transport with blocking read and
//     non-blocking peek, backed by the platform serial device.
//   - Target: the debug target for the current exception, exposing
//     register, memory, breakpoint, watchpoint and monitor operations.
//
// The engine drives the session through Engine.Run, which must not return
// until the target has been resumed (continue or step) or an unrecoverable
// protocol failure occurred.
//
// # Capability discovery
//
// Target carries the operations every target supports. Optional capability
// sets (software breakpoints, hardware watchpoints, monitor commands,
// target description XML) are separate interfaces discovered by type
// assertion, mirroring how net/http discovers optional interfaces like
// http.Flusher:
//
//	if bp, ok := target.(protocol.SwBreakpointHandler); ok {
//	    installed, err := bp.AddSwBreakpoint(addr)
//	    ...
//	}
//
// # Error semantics
//
// Resource exhaustion (breakpoint table full, no free watchpoint register)
// is reported as (false, nil), not an error; the engine translates it into
// a protocol-level failure reply. Errors indicate access or transport
// failures the engine should surface to the client without terminating the
// session.
package protocol
