package arch

import (
	"errors"
	"io"

	"github.com/muurk/fwdbg/internal/memaccess"
	"github.com/muurk/fwdbg/internal/protocol"
)

// ErrNoArch is returned by NoopArch operations that cannot be stubbed.
var ErrNoArch = errors.New("no debugger architecture wired for this platform")

// NoopArch is the stub for platforms without a wired-up debugger
// architecture. Every operation is a no-op or a failure; it exists so
// platform code can link against the debugger unconditionally.
type NoopArch struct{}

func (NoopArch) DefaultExceptionTypes() []uint64 { return nil }

func (NoopArch) BreakpointInstruction() []byte { return nil }

func (NoopArch) TargetXML() string { return "" }

func (NoopArch) RegistersXML() string { return "" }

func (NoopArch) Breakpoint() {}

func (NoopArch) ProcessEntry(exceptionType uint64, ctx Context) (*ExceptionInfo, error) {
	return nil, ErrNoArch
}

func (NoopArch) ProcessExit(info *ExceptionInfo) {}

func (NoopArch) SetSingleStep(info *ExceptionInfo) {}

func (NoopArch) Initialize() error { return nil }

func (NoopArch) AddWatchpoint(addr, length uint64, kind protocol.WatchKind) bool { return false }

func (NoopArch) RemoveWatchpoint(addr, length uint64, kind protocol.WatchKind) bool { return false }

func (NoopArch) ReadRegisters(info *ExceptionInfo) ([]byte, error) { return nil, ErrNoArch }

func (NoopArch) WriteRegisters(info *ExceptionInfo, data []byte) error { return ErrNoArch }

func (NoopArch) Reboot() {}

func (NoopArch) MonitorCmd(args []string, out io.Writer) {}

func (NoopArch) PageTable() (memaccess.PageTable, error) { return nil, ErrNoArch }

func (NoopArch) Memory() memaccess.Memory { return noopMemory{} }

func (NoopArch) PokeTest(addr uint64) error { return ErrNoArch }

type noopMemory struct{}

func (noopMemory) ReadAt(buf []byte, addr uint64) error { return ErrNoArch }

func (noopMemory) WriteAt(data []byte, addr uint64) error { return ErrNoArch }
