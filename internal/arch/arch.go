// Package arch defines the capability surface each supported CPU
// architecture provides to the debugger core, together with the
// architecture-neutral exception descriptor handed around during a debug
// session.
//
// Register context blocks are owned by the exception vector; the debugger
// only borrows them through the opaque Context handle. All raw layout
// knowledge stays behind the Arch implementation.
package arch

import (
	"fmt"
	"io"

	"github.com/muurk/fwdbg/internal/memaccess"
	"github.com/muurk/fwdbg/internal/protocol"
)

// Context is the opaque handle to an architecture's saved-register block.
// Only the owning Arch implementation may interpret it.
type Context interface{}

// ExceptionKind classifies why execution stopped.
type ExceptionKind int

const (
	// ExceptionStep is a break due to a completed instruction step.
	ExceptionStep ExceptionKind = iota
	// ExceptionBreakpoint is a break due to a breakpoint instruction.
	ExceptionBreakpoint
	// ExceptionAccessViolation is an invalid memory access; Address holds
	// the faulting address.
	ExceptionAccessViolation
	// ExceptionGeneralProtection is a general protection fault; Data
	// holds the exception data.
	ExceptionGeneralProtection
	// ExceptionOther is an exception type not handled specially; Data
	// holds the raw architecture code.
	ExceptionOther
)

// ExceptionType is the tagged exception classification.
type ExceptionType struct {
	Kind ExceptionKind
	// Address is the faulting address for access violations.
	Address uint64
	// Data carries exception data or the raw architecture code.
	Data uint64
}

// String returns the human-readable form used in monitor output.
func (t ExceptionType) String() string {
	switch t.Kind {
	case ExceptionStep:
		return "Debug Step"
	case ExceptionBreakpoint:
		return "Breakpoint"
	case ExceptionAccessViolation:
		return fmt.Sprintf("Access Violation at %#X", t.Address)
	case ExceptionGeneralProtection:
		return fmt.Sprintf("General Protection Fault. Exception data: %#X", t.Data)
	default:
		return fmt.Sprintf("Unknown. Architecture code: %#X", t.Data)
	}
}

// ExceptionInfo is the architecture-neutral exception descriptor. Exactly
// one is live at a time: a single core services exceptions and nested
// faults route to the crash path instead of recursive servicing.
type ExceptionInfo struct {
	// Type classifies the exception.
	Type ExceptionType
	// InstructionPointer is the normalized stop address.
	InstructionPointer uint64
	// Context is the borrowed register block.
	Context Context
}

// Arch is the capability set each supported architecture implements. As
// these abstract processor state, implementations are expected to be
// process-wide; the debugger holds exactly one.
//
// Arch embeds memaccess.Provider: the architecture owns access to the
// active page table and raw memory.
type Arch interface {
	memaccess.Provider

	// DefaultExceptionTypes lists the exception vectors the debugger
	// hooks when not overridden by configuration.
	DefaultExceptionTypes() []uint64
	// BreakpointInstruction returns the trap opcode bytes. Its length is
	// the software breakpoint patch width.
	BreakpointInstruction() []byte
	// TargetXML returns the GDB target description document.
	TargetXML() string
	// RegistersXML returns the GDB register description document.
	RegistersXML() string

	// Breakpoint executes a trap instruction, entering the debugger.
	Breakpoint()
	// ProcessEntry folds architecture-specific fixups (such as adjusting
	// the saved program counter) into a neutral exception descriptor.
	ProcessEntry(exceptionType uint64, ctx Context) (*ExceptionInfo, error)
	// ProcessExit applies the inverse fixups before resuming.
	ProcessExit(info *ExceptionInfo)
	// SetSingleStep arms a one-instruction trap on the descriptor.
	SetSingleStep(info *ExceptionInfo)
	// Initialize performs one-time architecture setup (vector table
	// programming and similar). Callers must call it exactly once.
	Initialize() error

	// AddWatchpoint installs a hardware watchpoint. false means no free
	// debug resource, which the caller surfaces as a protocol-level
	// failure rather than an error.
	AddWatchpoint(addr, length uint64, kind protocol.WatchKind) bool
	// RemoveWatchpoint removes a hardware watchpoint; false means no
	// matching watchpoint was found.
	RemoveWatchpoint(addr, length uint64, kind protocol.WatchKind) bool

	// ReadRegisters encodes the descriptor's register file in GDB
	// register order.
	ReadRegisters(info *ExceptionInfo) ([]byte, error)
	// WriteRegisters decodes data back into the descriptor's registers.
	WriteRegisters(info *ExceptionInfo, data []byte) error

	// Reboot resets the system. It is expected not to return; if it
	// does, the caller treats that as an unrecoverable failure.
	Reboot()

	// MonitorCmd handles architecture-specific monitor extensions.
	MonitorCmd(args []string, out io.Writer)
}
