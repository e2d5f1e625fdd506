package sim

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/muurk/fwdbg/internal/arch"
	"github.com/muurk/fwdbg/internal/memaccess"
	"github.com/muurk/fwdbg/internal/protocol"
)

const testBase = uint64(0x10000)

func TestProcessEntryBreakpointRewindsPC(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	m.CPU().PC = testBase + 0x11 // as pushed by the trap, past the opcode

	info, err := m.ProcessEntry(VectorBreakpoint, m.CPU())
	if err != nil {
		t.Fatalf("ProcessEntry failed: %v", err)
	}
	if info.Type.Kind != arch.ExceptionBreakpoint {
		t.Errorf("exception kind = %v", info.Type.Kind)
	}
	if info.InstructionPointer != testBase+0x10 {
		t.Errorf("instruction pointer = %#x, want %#x", info.InstructionPointer, testBase+0x10)
	}
}

func TestProcessEntryStepClearsTrapFlag(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	m.CPU().Flags = trapFlag

	info, err := m.ProcessEntry(VectorDebug, m.CPU())
	if err != nil {
		t.Fatalf("ProcessEntry failed: %v", err)
	}
	if info.Type.Kind != arch.ExceptionStep {
		t.Errorf("exception kind = %v", info.Type.Kind)
	}
	if m.CPU().Flags&trapFlag != 0 {
		t.Error("trap flag still set after step delivery")
	}
}

func TestProcessEntryFaultVectors(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	m.SetFaultAddress(0xBAD)

	info, err := m.ProcessEntry(VectorAccessViolation, m.CPU())
	if err != nil {
		t.Fatalf("ProcessEntry failed: %v", err)
	}
	if info.Type.Kind != arch.ExceptionAccessViolation || info.Type.Address != 0xBAD {
		t.Errorf("access violation descriptor = %+v", info.Type)
	}

	info, err = m.ProcessEntry(99, m.CPU())
	if err != nil {
		t.Fatalf("ProcessEntry failed: %v", err)
	}
	if info.Type.Kind != arch.ExceptionOther || info.Type.Data != 99 {
		t.Errorf("unknown vector descriptor = %+v", info.Type)
	}
}

func TestProcessEntryForeignContext(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	if _, err := m.ProcessEntry(VectorBreakpoint, struct{}{}); err == nil {
		t.Error("foreign context accepted")
	}
}

func TestSetSingleStep(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	info := &arch.ExceptionInfo{Context: m.CPU()}

	m.SetSingleStep(info)
	if m.CPU().Flags&trapFlag == 0 {
		t.Error("trap flag not armed")
	}
}

func TestRegisterEncodingRoundTrip(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	c := m.CPU()
	for i := range c.Regs {
		c.Regs[i] = uint64(i) * 0x1111
	}
	c.PC = testBase + 0x42
	c.Flags = trapFlag

	info := &arch.ExceptionInfo{Context: c}
	data, err := m.ReadRegisters(info)
	if err != nil {
		t.Fatalf("ReadRegisters failed: %v", err)
	}
	if len(data) != registerFileSize {
		t.Fatalf("register payload = %d bytes, want %d", len(data), registerFileSize)
	}
	if got := binary.LittleEndian.Uint64(data[numRegs*8:]); got != testBase+0x42 {
		t.Errorf("encoded PC = %#x", got)
	}

	// Mutate and write back.
	binary.LittleEndian.PutUint64(data[5*8:], 0xABCD)
	if err := m.WriteRegisters(info, data); err != nil {
		t.Fatalf("WriteRegisters failed: %v", err)
	}
	if c.Regs[5] != 0xABCD {
		t.Errorf("r5 = %#x after write back", c.Regs[5])
	}

	if err := m.WriteRegisters(info, data[:8]); err == nil {
		t.Error("short register payload accepted")
	}
}

func TestWatchpointSlots(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))

	for i := 0; i < watchpointSlots; i++ {
		if !m.AddWatchpoint(testBase+uint64(i)*8, 8, protocol.WatchWrite) {
			t.Fatalf("slot %d refused", i)
		}
	}
	if m.AddWatchpoint(testBase+0x100, 8, protocol.WatchWrite) {
		t.Error("watchpoint accepted beyond slot capacity")
	}

	if !m.RemoveWatchpoint(testBase, 8, protocol.WatchWrite) {
		t.Error("matching watchpoint not removed")
	}
	if m.RemoveWatchpoint(testBase, 8, protocol.WatchRead) {
		t.Error("kind mismatch treated as a match")
	}
}

func TestMachineMemoryBounds(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	mem := m.Memory()

	if err := mem.WriteAt([]byte{1, 2, 3}, testBase); err != nil {
		t.Fatalf("in-bounds write failed: %v", err)
	}
	buf := make([]byte, 3)
	if err := mem.ReadAt(buf, testBase); err != nil {
		t.Fatalf("in-bounds read failed: %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3}) {
		t.Errorf("read back %v", buf)
	}

	if err := mem.ReadAt(buf, testBase+memaccess.PageSize); err == nil {
		t.Error("out-of-bounds read succeeded")
	}
	if err := m.PokeTest(testBase - 1); err == nil {
		t.Error("PokeTest below RAM succeeded")
	}
}

func TestInitializeOnce(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	if err := m.Initialize(); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	if err := m.Initialize(); err == nil {
		t.Error("second Initialize accepted")
	}
}

func TestRebootRunsHook(t *testing.T) {
	m := NewMachine(testBase, int(memaccess.PageSize))
	var hooked bool
	m.OnReboot(func() { hooked = true })

	m.Reboot()
	if !m.Rebooted() || !hooked {
		t.Errorf("Rebooted=%v hooked=%v", m.Rebooted(), hooked)
	}
}

func TestPageTableQueryAndRemap(t *testing.T) {
	pt := NewPageTable()
	pt.Map(testBase, 2*memaccess.PageSize, memaccess.AttrReadOnly)

	attrs, err := pt.QueryRegion(testBase, memaccess.PageSize)
	if err != nil {
		t.Fatalf("QueryRegion failed: %v", err)
	}
	if attrs != memaccess.AttrReadOnly {
		t.Errorf("attrs = %v", attrs)
	}

	if _, err := pt.QueryRegion(testBase+4*memaccess.PageSize, memaccess.PageSize); err == nil {
		t.Error("unmapped query succeeded")
	}

	// Inconsistent attributes across a region are an error, not a guess.
	pt.Map(testBase+memaccess.PageSize, memaccess.PageSize, 0)
	if _, err := pt.QueryRegion(testBase, 2*memaccess.PageSize); err == nil {
		t.Error("inconsistent region query succeeded")
	}

	if err := pt.RemapRegion(testBase, memaccess.PageSize, 0); err != nil {
		t.Fatalf("RemapRegion failed: %v", err)
	}
	attrs, _ = pt.QueryRegion(testBase, memaccess.PageSize)
	if attrs != 0 {
		t.Errorf("attrs after remap = %v", attrs)
	}

	if err := pt.RemapRegion(testBase+8*memaccess.PageSize, memaccess.PageSize, 0); err == nil {
		t.Error("remap of unmapped page succeeded")
	}
}

func TestPipeSerialLoopback(t *testing.T) {
	s := NewPipeSerial(16)

	s.HostWrite([]byte{'a'})
	if b := s.Read(); b != 'a' {
		t.Errorf("target read %q", b)
	}
	if _, ok := s.TryRead(); ok {
		t.Error("TryRead on an empty pipe reported a byte")
	}

	s.Write([]byte("ok"))
	if got := string(s.HostDrain()); got != "ok" {
		t.Errorf("host drained %q", got)
	}
}
