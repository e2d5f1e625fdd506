// Package target implements the debug target handed to the protocol
// engine for the duration of one exception.
//
// A Target is transient: the exception entry path creates one around the
// current exception descriptor, the engine drives it while servicing
// client requests, and its final descriptor state is folded back into the
// register context on resume. Durable session state - the software
// breakpoint table, the module tracker and registered monitor commands -
// lives in the shared State owned by the debugger and survives across
// exceptions.
//
// The software breakpoint table is a fixed arena of 25 slots: the
// debugger must work before any allocator is available, so the table is
// an array plus linear scan, serialized by a mutex since protocol
// callbacks may in principle be re-entered. Hardware watchpoints are not
// tracked here; they forward to the architecture layer, which owns the
// debug-register bookkeeping.
package target
