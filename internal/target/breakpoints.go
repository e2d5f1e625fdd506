package target

import (
	"sync"

	"github.com/muurk/fwdbg/internal/arch"
	"github.com/muurk/fwdbg/internal/memaccess"
)

// MaxBreakpoints is the software breakpoint table capacity.
const MaxBreakpoints = 25

// maxBreakpointWidth bounds the per-slot saved-bytes storage. Large enough
// for any supported architecture's trap opcode (1 byte on x86-64, 4 on
// AArch64).
const maxBreakpointWidth = 8

// breakpointSlot is one arena entry. addr and original are only
// meaningful while inUse is set.
type breakpointSlot struct {
	inUse    bool
	addr     uint64
	original [maxBreakpointWidth]byte
	width    int
}

// BreakpointTable is the fixed-capacity software breakpoint arena.
type BreakpointTable struct {
	mu    sync.Mutex
	slots [MaxBreakpoints]breakpointSlot
}

// Add installs a breakpoint at addr: the original bytes are read and
// saved, then the architecture's trap opcode is patched in. Returns
// (false, nil) when the table is full - not an error, the protocol layer
// reports it as "cannot set more breakpoints". Access failures from the
// memory layer are propagated and leave the slot free.
func (t *BreakpointTable) Add(a arch.Arch, addr uint64, unsafeRead bool) (bool, error) {
	instruction := a.BreakpointInstruction()

	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		slot := &t.slots[i]
		if slot.inUse {
			continue
		}

		// Save the original memory and write the breakpoint instruction.
		width := len(instruction)
		if _, err := memaccess.Read(a, addr, slot.original[:width], unsafeRead); err != nil {
			return false, err
		}
		if err := memaccess.Write(a, addr, instruction); err != nil {
			return false, err
		}

		slot.addr = addr
		slot.width = width
		slot.inUse = true
		return true, nil
	}

	return false, nil
}

// Remove uninstalls the breakpoint at addr, writing back the saved
// original bytes. Returns (false, nil) when no breakpoint matches;
// idempotent removal is not an error.
func (t *BreakpointTable) Remove(a arch.Arch, addr uint64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		slot := &t.slots[i]
		if !slot.inUse || slot.addr != addr {
			continue
		}

		if err := memaccess.Write(a, addr, slot.original[:slot.width]); err != nil {
			return false, err
		}

		slot.inUse = false
		return true, nil
	}

	return false, nil
}

// Count returns the number of installed breakpoints.
func (t *BreakpointTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for i := range t.slots {
		if t.slots[i].inUse {
			n++
		}
	}
	return n
}
