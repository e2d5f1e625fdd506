// Package sim provides a simulated target platform for exercising the
// debugger core without hardware.
//
// A Machine is a single-core make-believe CPU with a bank of RAM, a
// map-backed page table, four hardware watchpoint slots and a trap-flag
// style single-step. It implements the architecture capability surface
// (arch.Arch) and the interrupt manager contract, so the debugger can be
// installed on it exactly as it would be on firmware: breakpoint traps
// deliver a saved register context through the registered exception
// handler, and the handler's mutations to that context take effect when
// the trap returns.
//
// The simulated trap semantics follow x86-64: the saved program counter
// points past the one-byte trap opcode on a breakpoint exception (the
// entry fixup rewinds it), and the single-step trap flag is bit 8 of the
// flags register.
//
// PipeSerial is a channel-backed loopback serial device for tests; real
// byte streams are wired with transport.NetSerial.
package sim
