// Package server implements the host-side debug bridge.
//
// The bridge sits between a remote debugger client and a target's serial
// byte stream. GDB connects to the bridge's TCP listener (or to the
// /debug WebSocket endpoint); the bridge dials the target endpoint and
// splices the two byte streams together. It adds no framing of its own -
// the GDB Remote Serial Protocol passes through untouched - so the bridge
// works with any target that exposes its debugger serial port over TCP,
// including the simulated machine from cmd/fwdbg-sim.
//
// One client owns the target at a time: the serial stream has no
// multiplexing, so a second connection while a session is active is
// rejected.
//
// When mDNS advertisement is enabled the bridge registers a
// "_gdbremote._tcp" service so clients can find it without knowing the
// host address.
package server
