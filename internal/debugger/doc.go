// Package debugger implements the exception entry/exit state machine and
// the process-wide debugger session.
//
// A hardware exception vector (outside this package) saves the register
// context and calls HandleException with the raw exception type. The
// architecture layer normalizes that into a neutral exception descriptor,
// the protocol engine services client requests against a Target built
// around it, and on resume the descriptor is folded back into the
// register context before control returns to the vector.
//
// # The global instance
//
// The exception vector has no natural place to thread a handle through,
// so the debugger is process-wide state with explicit one-time
// installation via Set. The precondition is strict: Set must happen
// before the exception vector is armed. Every package-level entry point
// is a no-op when no debugger is installed, except HandleException,
// which panics - servicing an exception with no configured debugger is a
// setup error, not a runtime condition to recover from.
//
// # Failure handling
//
// Re-entry (a fault while servicing the debugger) and engine failures are
// not serviced recursively or resumed into unknown state: the crash path
// restores logging, reports the error and reboots the system.
package debugger
