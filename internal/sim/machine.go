package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/muurk/fwdbg/internal/arch"
	"github.com/muurk/fwdbg/internal/debugger"
	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/memaccess"
	"github.com/muurk/fwdbg/internal/protocol"
)

// Exception vectors delivered by the simulated machine. Numbering follows
// x86-64.
const (
	VectorDebug           uint64 = 1
	VectorBreakpoint      uint64 = 3
	VectorGeneralProtect  uint64 = 13
	VectorAccessViolation uint64 = 14
)

// trapFlag is the single-step bit in the simulated flags register.
const trapFlag uint64 = 1 << 8

// numRegs is the general-purpose register count; the GDB register file is
// these plus PC and flags.
const numRegs = 16

// registerFileSize is the encoded register payload length.
const registerFileSize = (numRegs + 2) * 8

// watchpointSlots is the number of hardware watchpoint registers the
// machine models.
const watchpointSlots = 4

// Context is the simulated saved-register block. It is owned by the
// machine's trap delivery; the debugger borrows it through the opaque
// arch.Context handle.
type Context struct {
	Regs  [numRegs]uint64
	PC    uint64
	Flags uint64
}

type watchpoint struct {
	inUse  bool
	addr   uint64
	length uint64
	kind   protocol.WatchKind
}

// Machine is the simulated target platform. It implements arch.Arch and
// the debugger's InterruptManager contract.
type Machine struct {
	base uint64
	ram  []byte
	pt   *PageTable

	cpu        Context
	faultAddr  uint64
	watch      [watchpointSlots]watchpoint
	handlers   map[uint64]debugger.ExceptionHandler
	booted     bool
	rebooted   bool
	rebootHook func()
}

// NewMachine creates a machine with size bytes of RAM mapped at base. All
// RAM pages start mapped with no protection attributes.
func NewMachine(base uint64, size int) *Machine {
	m := &Machine{
		base:     base,
		ram:      make([]byte, size),
		pt:       NewPageTable(),
		handlers: make(map[uint64]debugger.ExceptionHandler),
	}
	m.pt.Map(base, uint64(size), 0)
	m.cpu.PC = base
	return m
}

// RAMBase returns the base address of the machine's RAM.
func (m *Machine) RAMBase() uint64 {
	return m.base
}

// RAMSize returns the RAM size in bytes.
func (m *Machine) RAMSize() int {
	return len(m.ram)
}

// CPU returns the machine's live register context.
func (m *Machine) CPU() *Context {
	return &m.cpu
}

// SimPageTable returns the machine's page table for test setup.
func (m *Machine) SimPageTable() *PageTable {
	return m.pt
}

// Rebooted reports whether Reboot was invoked.
func (m *Machine) Rebooted() bool {
	return m.rebooted
}

// OnReboot installs a hook invoked when the machine reboots.
func (m *Machine) OnReboot(fn func()) {
	m.rebootHook = fn
}

// SetFaultAddress records the faulting address reported with the next
// access violation vector.
func (m *Machine) SetFaultAddress(addr uint64) {
	m.faultAddr = addr
}

// RegisterExceptionHandler implements debugger.InterruptManager.
func (m *Machine) RegisterExceptionHandler(exceptionType uint64, h debugger.ExceptionHandler) error {
	if _, exists := m.handlers[exceptionType]; exists {
		return fmt.Errorf("handler already registered for vector %d", exceptionType)
	}
	m.handlers[exceptionType] = h
	return nil
}

// UnregisterExceptionHandler implements debugger.InterruptManager.
func (m *Machine) UnregisterExceptionHandler(exceptionType uint64) error {
	if _, exists := m.handlers[exceptionType]; !exists {
		return fmt.Errorf("no handler registered for vector %d", exceptionType)
	}
	delete(m.handlers, exceptionType)
	return nil
}

// Raise delivers an exception vector to the registered handler with the
// machine's current register context, as the hardware vector stub would.
func (m *Machine) Raise(vector uint64) {
	h, ok := m.handlers[vector]
	if !ok {
		panic(fmt.Sprintf("unhandled simulated exception vector %d", vector))
	}
	h.HandleException(vector, &m.cpu)
}

// DefaultExceptionTypes implements arch.Arch.
func (m *Machine) DefaultExceptionTypes() []uint64 {
	return []uint64{VectorDebug, VectorBreakpoint}
}

// BreakpointInstruction implements arch.Arch. A single trap byte, x86
// style.
func (m *Machine) BreakpointInstruction() []byte {
	return []byte{0xCC}
}

// Breakpoint implements arch.Arch by synthesizing a trap: the saved PC
// points past the trap opcode, exactly as the hardware would deliver it.
func (m *Machine) Breakpoint() {
	m.cpu.PC++
	m.Raise(VectorBreakpoint)
}

// ProcessEntry implements arch.Arch, folding the raw vector and saved
// context into a neutral exception descriptor.
func (m *Machine) ProcessEntry(exceptionType uint64, ctx arch.Context) (*arch.ExceptionInfo, error) {
	c, ok := ctx.(*Context)
	if !ok {
		return nil, errors.New("context does not belong to the simulated machine")
	}

	var t arch.ExceptionType
	switch exceptionType {
	case VectorBreakpoint:
		// The trap pushes the address after the opcode; rewind so the
		// client sees the breakpoint address and resume re-executes the
		// restored instruction.
		c.PC -= uint64(len(m.BreakpointInstruction()))
		t = arch.ExceptionType{Kind: arch.ExceptionBreakpoint}
	case VectorDebug:
		c.Flags &^= trapFlag
		t = arch.ExceptionType{Kind: arch.ExceptionStep}
	case VectorAccessViolation:
		t = arch.ExceptionType{Kind: arch.ExceptionAccessViolation, Address: m.faultAddr}
	case VectorGeneralProtect:
		t = arch.ExceptionType{Kind: arch.ExceptionGeneralProtection}
	default:
		t = arch.ExceptionType{Kind: arch.ExceptionOther, Data: exceptionType}
	}

	return &arch.ExceptionInfo{
		Type:               t,
		InstructionPointer: c.PC,
		Context:            c,
	}, nil
}

// ProcessExit implements arch.Arch. The entry fixups need no inverse
// here; the (possibly modified) context is already the machine's saved
// state.
func (m *Machine) ProcessExit(info *arch.ExceptionInfo) {}

// SetSingleStep implements arch.Arch.
func (m *Machine) SetSingleStep(info *arch.ExceptionInfo) {
	if c, ok := info.Context.(*Context); ok {
		c.Flags |= trapFlag
	}
}

// Initialize implements arch.Arch. Calling it twice is a programming
// error.
func (m *Machine) Initialize() error {
	if m.booted {
		return errors.New("machine already initialized")
	}
	m.booted = true
	return nil
}

// AddWatchpoint implements arch.Arch. false means every debug register is
// in use.
func (m *Machine) AddWatchpoint(addr, length uint64, kind protocol.WatchKind) bool {
	for i := range m.watch {
		if m.watch[i].inUse {
			continue
		}
		m.watch[i] = watchpoint{inUse: true, addr: addr, length: length, kind: kind}
		return true
	}
	return false
}

// RemoveWatchpoint implements arch.Arch. false means no matching
// watchpoint; the precise reason is logged since the boolean cannot carry
// it.
func (m *Machine) RemoveWatchpoint(addr, length uint64, kind protocol.WatchKind) bool {
	for i := range m.watch {
		w := &m.watch[i]
		if w.inUse && w.addr == addr && w.length == length && w.kind == kind {
			w.inUse = false
			return true
		}
	}
	logging.Debug("No matching watchpoint to remove",
		zap.Uint64("addr", addr),
		zap.Uint64("length", length),
		zap.String("kind", kind.String()),
	)
	return false
}

// ReadRegisters implements arch.Arch, encoding the register file little
// endian: R0..R15, PC, flags.
func (m *Machine) ReadRegisters(info *arch.ExceptionInfo) ([]byte, error) {
	c, ok := info.Context.(*Context)
	if !ok {
		return nil, errors.New("context does not belong to the simulated machine")
	}

	out := make([]byte, registerFileSize)
	for i, r := range c.Regs {
		binary.LittleEndian.PutUint64(out[i*8:], r)
	}
	binary.LittleEndian.PutUint64(out[numRegs*8:], c.PC)
	binary.LittleEndian.PutUint64(out[(numRegs+1)*8:], c.Flags)
	return out, nil
}

// WriteRegisters implements arch.Arch.
func (m *Machine) WriteRegisters(info *arch.ExceptionInfo, data []byte) error {
	c, ok := info.Context.(*Context)
	if !ok {
		return errors.New("context does not belong to the simulated machine")
	}
	if len(data) != registerFileSize {
		return fmt.Errorf("register payload is %d bytes, want %d", len(data), registerFileSize)
	}

	for i := range c.Regs {
		c.Regs[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	c.PC = binary.LittleEndian.Uint64(data[numRegs*8:])
	c.Flags = binary.LittleEndian.Uint64(data[(numRegs+1)*8:])
	return nil
}

// Reboot implements arch.Arch. On the simulated machine this records the
// reboot and runs the installed hook; it returns if no hook terminates
// the process, which callers treat as a reboot failure.
func (m *Machine) Reboot() {
	m.rebooted = true
	logging.Error("Simulated machine rebooting")
	if m.rebootHook != nil {
		m.rebootHook()
	}
}

// MonitorCmd implements arch.Arch, handling "arch ..." monitor
// extensions.
func (m *Machine) MonitorCmd(args []string, out io.Writer) {
	if len(args) == 0 {
		io.WriteString(out, "Arch commands:\n    regs - Dump the register file.\n    wp - List hardware watchpoint slots.\n")
		return
	}

	switch args[0] {
	case "regs":
		for i, r := range m.cpu.Regs {
			fmt.Fprintf(out, "r%-2d %#016x\n", i, r)
		}
		fmt.Fprintf(out, "pc  %#016x\nflg %#016x\n", m.cpu.PC, m.cpu.Flags)
	case "wp":
		for i, w := range m.watch {
			if w.inUse {
				fmt.Fprintf(out, "%d: %#x len %d (%s)\n", i, w.addr, w.length, w.kind)
			} else {
				fmt.Fprintf(out, "%d: free\n", i)
			}
		}
	default:
		fmt.Fprintf(out, "Unknown arch command %q.\n", args[0])
	}
}

// TargetXML implements arch.Arch.
func (m *Machine) TargetXML() string {
	return `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target version="1.0">
    <xi:include href="registers.xml"/>
</target>`
}

// RegistersXML implements arch.Arch.
func (m *Machine) RegistersXML() string {
	return `<?xml version="1.0"?>
<feature name="org.fwdbg.sim.core">
    <reg name="r0" bitsize="64"/><reg name="r1" bitsize="64"/>
    <reg name="r2" bitsize="64"/><reg name="r3" bitsize="64"/>
    <reg name="r4" bitsize="64"/><reg name="r5" bitsize="64"/>
    <reg name="r6" bitsize="64"/><reg name="r7" bitsize="64"/>
    <reg name="r8" bitsize="64"/><reg name="r9" bitsize="64"/>
    <reg name="r10" bitsize="64"/><reg name="r11" bitsize="64"/>
    <reg name="r12" bitsize="64"/><reg name="r13" bitsize="64"/>
    <reg name="r14" bitsize="64"/><reg name="r15" bitsize="64"/>
    <reg name="pc" bitsize="64" type="code_ptr"/>
    <reg name="flags" bitsize="64"/>
</feature>`
}

// PageTable implements memaccess.Provider.
func (m *Machine) PageTable() (memaccess.PageTable, error) {
	return m.pt, nil
}

// Memory implements memaccess.Provider.
func (m *Machine) Memory() memaccess.Memory {
	return (*machineMemory)(m)
}

// PokeTest implements memaccess.Provider.
func (m *Machine) PokeTest(addr uint64) error {
	if addr < m.base || addr >= m.base+uint64(len(m.ram)) {
		return fmt.Errorf("address %#x outside RAM", addr)
	}
	return nil
}

// machineMemory exposes the machine's RAM through memaccess.Memory.
type machineMemory Machine

func (mm *machineMemory) bounds(addr uint64, length int) error {
	if addr < mm.base || addr+uint64(length) > mm.base+uint64(len(mm.ram)) {
		return fmt.Errorf("range %#x+%#x outside RAM", addr, length)
	}
	return nil
}

func (mm *machineMemory) ReadAt(buf []byte, addr uint64) error {
	if err := mm.bounds(addr, len(buf)); err != nil {
		return err
	}
	copy(buf, mm.ram[addr-mm.base:])
	return nil
}

func (mm *machineMemory) WriteAt(data []byte, addr uint64) error {
	if err := mm.bounds(addr, len(data)); err != nil {
		return err
	}
	copy(mm.ram[addr-mm.base:], data)
	return nil
}
