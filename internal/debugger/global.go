package debugger

import (
	"sync"

	"github.com/muurk/fwdbg/internal/arch"
	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/target"
)

// The global debugger instance. Set once and read thereafter: the
// debugger installs itself in exception handlers and owns static state
// like the breakpoint table, so it is not safe to remove or replace.
var (
	globalMu sync.Mutex
	global   *Debugger
)

// Set installs the global debugger instance. Only the first call has an
// effect; later calls are ignored.
func Set(d *Debugger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		logging.Warn("Debugger already installed; ignoring replacement")
		return
	}
	global = d
}

// Installed reports whether a global debugger has been set.
func Installed() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global != nil
}

func installed() *Debugger {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// Initialize installs the global debugger into the exception handlers.
// No-op when no debugger is set.
func Initialize(im InterruptManager) error {
	if d := installed(); d != nil {
		return d.Initialize(im)
	}
	return nil
}

// Enabled reports whether the global debugger is set and enabled.
func Enabled() bool {
	if d := installed(); d != nil {
		return d.Enabled()
	}
	return false
}

// Breakpoint invokes a debug break on the global debugger. Callers should
// ensure the debugger is enabled first using Enabled.
func Breakpoint() {
	if d := installed(); d != nil {
		d.Breakpoint()
	}
}

// NotifyModuleLoad forwards a module-load notification to the global
// debugger. No-op when no debugger is set.
func NotifyModuleLoad(name string, base, size uint64) {
	if d := installed(); d != nil {
		d.NotifyModuleLoad(name, base, size)
	}
}

// Poll polls the global debugger for pending interrupts. No-op when no
// debugger is set.
func Poll() {
	if d := installed(); d != nil {
		d.Poll()
	}
}

// AddMonitorCommand registers a monitor command with the global debugger.
// No-op when no debugger is set.
func AddMonitorCommand(name, description string, fn target.MonitorFunc) {
	if d := installed(); d != nil {
		d.AddMonitorCommand(name, description, fn)
	}
}

// HandleException routes a raw hardware exception to the global debugger.
// A missing debugger here is a setup error - the exception vector was
// armed without a debugger installed - and is fatal.
func HandleException(exceptionType uint64, ctx arch.Context) {
	d := installed()
	if d == nil {
		panic("exception delivered with no debugger installed")
	}
	d.HandleException(exceptionType, ctx)
}
