package debugger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/muurk/fwdbg/internal/debugger"
	"github.com/muurk/fwdbg/internal/memaccess"
	"github.com/muurk/fwdbg/internal/protocol"
	"github.com/muurk/fwdbg/internal/sim"
)

const ramBase = uint64(0x10000)

// scriptEngine runs one scripted session per exception delivery.
type scriptEngine struct {
	script []func(t protocol.Target) error
	runs   int
}

func (e *scriptEngine) Run(t protocol.Target, conn protocol.Connection) error {
	if e.runs >= len(e.script) {
		return errors.New("unexpected engine session")
	}
	fn := e.script[e.runs]
	e.runs++
	return fn(t)
}

// discardConsole swallows monitor output.
type discardConsole struct{}

func (discardConsole) WriteConsole(data []byte) {}

func resume(t protocol.Target) error { return t.Resume() }

func newHarness(t *testing.T, script ...func(protocol.Target) error) (*debugger.Debugger, *sim.Machine, *sim.PipeSerial, *scriptEngine) {
	t.Helper()
	m := sim.NewMachine(ramBase, 64*int(memaccess.PageSize))
	serial := sim.NewPipeSerial(256)
	engine := &scriptEngine{script: script}

	d := debugger.New(serial, m, engine, debugger.WithLogPolicy(debugger.LogPolicyFull))
	d.Configure(true, false, 0)
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return d, m, serial, engine
}

func TestBreakpointRunsEngine(t *testing.T) {
	_, m, serial, engine := newHarness(t, func(tgt protocol.Target) error {
		if _, err := tgt.ReadRegisters(); err != nil {
			return err
		}
		return tgt.Resume()
	})

	pcBefore := m.CPU().PC
	m.Breakpoint()

	if engine.runs != 1 {
		t.Fatalf("engine ran %d times, want 1", engine.runs)
	}
	// The trap fixup must leave the PC back on the breakpoint address.
	if m.CPU().PC != pcBefore {
		t.Errorf("PC after session = %#x, want %#x", m.CPU().PC, pcBefore)
	}

	// The first break announces itself with a stop packet.
	if got := string(serial.HostDrain()); !strings.Contains(got, "$T05thread:01;#07") {
		t.Errorf("serial output = %q, missing the initial stop packet", got)
	}
}

func TestStopPacketSentOnlyOnce(t *testing.T) {
	_, m, serial, _ := newHarness(t, resume, resume)

	m.Breakpoint()
	serial.HostDrain()

	m.Breakpoint()
	if got := string(serial.HostDrain()); strings.Contains(got, "$T05") {
		t.Errorf("second break re-sent the stop packet: %q", got)
	}
}

func TestStaleTransportBytesFlushed(t *testing.T) {
	_, m, serial, _ := newHarness(t, func(tgt protocol.Target) error {
		return tgt.Resume()
	})

	// Garbage queued before the first break must not reach the engine.
	serial.HostWrite([]byte("+$stale#00"))
	m.Breakpoint()

	if b, ok := serial.TryRead(); ok {
		t.Errorf("stale byte %#x survived the pre-session flush", b)
	}
}

func TestModuleLoadBreakpoint(t *testing.T) {
	d, m, _, engine := newHarness(t,
		func(tgt protocol.Target) error {
			mon := tgt.(protocol.MonitorHandler)
			if err := mon.HandleMonitorCmd("mod break shell", discardConsole{}); err != nil {
				return err
			}
			return tgt.Resume()
		},
		resume,
	)

	m.Breakpoint()
	if engine.runs != 1 {
		t.Fatalf("engine ran %d times after the arming break", engine.runs)
	}

	// A non-matching load is recorded without breaking.
	d.NotifyModuleLoad("DxeCore.efi", ramBase, 0x1000)
	if engine.runs != 1 {
		t.Fatal("non-matching module load broke in")
	}

	// The armed name matches case-insensitively with the suffix stripped.
	d.NotifyModuleLoad("Shell.efi", ramBase+0x1000, 0x1000)
	if engine.runs != 2 {
		t.Fatalf("engine ran %d times after the module break, want 2", engine.runs)
	}
}

func TestPollBreaksOnCtrlC(t *testing.T) {
	d, _, serial, engine := newHarness(t, resume)

	// Non-interrupt bytes are drained without breaking.
	serial.HostWrite([]byte{'x', 'y'})
	d.Poll()
	if engine.runs != 0 {
		t.Fatal("plain bytes triggered a break")
	}

	serial.HostWrite([]byte{0x03})
	d.Poll()
	if engine.runs != 1 {
		t.Fatalf("engine ran %d times after ctrl-c, want 1", engine.runs)
	}
}

func TestDisabledDebuggerIsInert(t *testing.T) {
	m := sim.NewMachine(ramBase, 16*int(memaccess.PageSize))
	serial := sim.NewPipeSerial(16)
	engine := &scriptEngine{}

	d := debugger.New(serial, m, engine)
	d.Configure(false, false, 0)
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize of a disabled debugger failed: %v", err)
	}

	serial.HostWrite([]byte{0x03})
	d.Poll()
	if engine.runs != 0 {
		t.Error("disabled debugger serviced an interrupt")
	}
	d.NotifyModuleLoad("Shell.efi", ramBase, 0x100)
}

func TestSessionStateSurvivesAcrossBreaks(t *testing.T) {
	addr := ramBase + 0x100
	_, m, _, engine := newHarness(t,
		func(tgt protocol.Target) error {
			bp := tgt.(protocol.SwBreakpointHandler)
			ok, err := bp.AddSwBreakpoint(addr)
			if err != nil || !ok {
				t.Errorf("AddSwBreakpoint = (%v, %v)", ok, err)
			}
			return tgt.Resume()
		},
		func(tgt protocol.Target) error {
			// The breakpoint installed in the previous session is still
			// removable: the table outlives individual sessions.
			bp := tgt.(protocol.SwBreakpointHandler)
			ok, err := bp.RemoveSwBreakpoint(addr)
			if err != nil || !ok {
				t.Errorf("RemoveSwBreakpoint = (%v, %v)", ok, err)
			}
			return tgt.Resume()
		},
	)

	m.Breakpoint()

	patched := make([]byte, 1)
	if err := m.Memory().ReadAt(patched, addr); err != nil {
		t.Fatalf("reading patched memory failed: %v", err)
	}
	if patched[0] != m.BreakpointInstruction()[0] {
		t.Fatal("breakpoint not installed")
	}

	m.Breakpoint()
	if engine.runs != 2 {
		t.Fatalf("engine ran %d times, want 2", engine.runs)
	}
}

func TestRebootOnResume(t *testing.T) {
	d, m, _, _ := newHarness(t, func(tgt protocol.Target) error {
		mon := tgt.(protocol.MonitorHandler)
		if err := mon.HandleMonitorCmd("reboot", discardConsole{}); err != nil {
			return err
		}
		return tgt.Resume()
	})
	_ = d

	// The simulated reboot returns, which the debugger treats as fatal.
	defer func() {
		if recover() == nil {
			t.Fatal("reboot returning did not reach the crash path")
		}
		if !m.Rebooted() {
			t.Error("machine never rebooted")
		}
	}()
	m.Breakpoint()
}

func TestEngineFailureCrashes(t *testing.T) {
	_, m, _, _ := newHarness(t, func(tgt protocol.Target) error {
		return errors.New("protocol desync")
	})

	defer func() {
		if recover() == nil {
			t.Fatal("engine failure did not reach the crash path")
		}
		if !m.Rebooted() {
			t.Error("crash path did not attempt a reboot")
		}
	}()
	m.Breakpoint()
}

func TestEngineStopWithoutResumeCrashes(t *testing.T) {
	_, m, _, _ := newHarness(t, func(tgt protocol.Target) error {
		return nil // returned without resuming
	})

	defer func() {
		if recover() == nil {
			t.Fatal("engine stop without resume did not reach the crash path")
		}
	}()
	m.Breakpoint()
}

func TestReentryCrashes(t *testing.T) {
	var d *debugger.Debugger
	harnessD, m, _, _ := newHarness(t, func(tgt protocol.Target) error {
		// A fault while servicing an exception must not recurse into a
		// second session.
		d.Breakpoint()
		return tgt.Resume()
	})
	d = harnessD

	defer func() {
		if recover() == nil {
			t.Fatal("reentry did not reach the crash path")
		}
	}()
	m.Breakpoint()
}

func TestGlobalInstall(t *testing.T) {
	m := sim.NewMachine(ramBase, 16*int(memaccess.PageSize))
	serial := sim.NewPipeSerial(16)
	d := debugger.New(serial, m, &scriptEngine{})

	debugger.Set(d)
	if !debugger.Installed() {
		t.Fatal("global debugger not installed")
	}

	// A second install is ignored, not honored.
	other := debugger.New(serial, m, &scriptEngine{})
	debugger.Set(other)

	// Package-level entry points stay no-ops while disabled.
	debugger.Poll()
	debugger.NotifyModuleLoad("Shell.efi", ramBase, 0x100)
	if debugger.Enabled() {
		t.Error("debugger reports enabled without configuration")
	}
}
