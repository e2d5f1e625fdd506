package debugger

import "errors"

var (
	// ErrReentry indicates the session lock could not be acquired,
	// usually meaning the debugger itself faulted.
	ErrReentry = errors.New("debugger re-entered while servicing an exception")

	// ErrNotInitialized indicates the debugger was invoked without being
	// fully initialized.
	ErrNotInitialized = errors.New("debugger not initialized")

	// ErrEngineStopped indicates the protocol engine returned without the
	// target being resumed.
	ErrEngineStopped = errors.New("protocol engine stopped without resuming the target")

	// ErrRebootFailed indicates the architecture reboot returned instead
	// of resetting the system.
	ErrRebootFailed = errors.New("system reboot returned")
)

// EngineError wraps a protocol engine failure.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return "protocol engine failure: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
