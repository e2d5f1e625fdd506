package target

import (
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/fwdbg/internal/arch"
	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/memaccess"
	"github.com/muurk/fwdbg/internal/protocol"
	"github.com/muurk/fwdbg/internal/transport"
)

// windbgMockAddresses are addresses windbg reads in a tight retry loop
// looking for well-known Windows structures. Reads from these return
// zeroes instead of failing to avoid long retry delays.
var windbgMockAddresses = []uint64{0xfffff78000000268, 0, 0x34c00}

// Options configures a Target.
type Options struct {
	// MonitorBufferSize overrides the monitor output buffer capacity.
	MonitorBufferSize int
	// WindbgWorkarounds enables the mock-address read workaround.
	WindbgWorkarounds bool
}

// Target is the debug target for the current exception. It implements the
// protocol capability interfaces the engine discovers by type assertion.
type Target struct {
	info  *arch.ExceptionInfo
	arch  arch.Arch
	state *State

	resumed       bool
	reboot        bool
	disableChecks bool
	windbg        bool

	monitorBuf *transport.BufferWriter
}

// New creates a target around the current exception descriptor. state is
// the debugger's durable session state.
func New(info *arch.ExceptionInfo, a arch.Arch, state *State, opts Options) *Target {
	size := opts.MonitorBufferSize
	if size == 0 {
		size = transport.DefaultMonitorBufferSize
	}
	return &Target{
		info:       info,
		arch:       a,
		state:      state,
		windbg:     opts.WindbgWorkarounds,
		monitorBuf: transport.NewBufferWriter(size),
	}
}

// Info returns the exception descriptor, including any modifications made
// during the session (written registers, armed single-step).
func (t *Target) Info() *arch.ExceptionInfo {
	return t.info
}

// Resumed reports whether the client requested a resume or step.
func (t *Target) Resumed() bool {
	return t.resumed
}

// RebootOnResume reports whether a monitor command armed a reboot for the
// next resume.
func (t *Target) RebootOnResume() bool {
	return t.reboot
}

// ChecksDisabled reports whether memory access validation was disabled
// for this session.
func (t *Target) ChecksDisabled() bool {
	return t.disableChecks
}

// ReadRegisters implements protocol.Target.
func (t *Target) ReadRegisters() ([]byte, error) {
	return t.arch.ReadRegisters(t.info)
}

// WriteRegisters implements protocol.Target.
func (t *Target) WriteRegisters(data []byte) error {
	return t.arch.WriteRegisters(t.info, data)
}

// ReadMemory implements protocol.Target.
func (t *Target) ReadMemory(addr uint64, buf []byte) error {
	if t.windbg {
		for _, mock := range windbgMockAddresses {
			if addr == mock {
				for i := range buf {
					buf[i] = 0
				}
				return nil
			}
		}
	}

	if _, err := memaccess.Read(t.arch, addr, buf, t.disableChecks); err != nil {
		logging.Info("Failed to read memory",
			zap.Uint64("addr", addr),
			zap.Int("len", len(buf)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// WriteMemory implements protocol.Target.
func (t *Target) WriteMemory(addr uint64, data []byte) error {
	if err := memaccess.Write(t.arch, addr, data); err != nil {
		logging.Info("Failed to write memory",
			zap.Uint64("addr", addr),
			zap.Int("len", len(data)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Resume implements protocol.Target. The actual resume happens when the
// engine returns to the exception exit path.
func (t *Target) Resume() error {
	t.resumed = true
	return nil
}

// Step implements protocol.Target.
func (t *Target) Step() error {
	t.arch.SetSingleStep(t.info)
	t.resumed = true
	return nil
}

// AddSwBreakpoint implements protocol.SwBreakpointHandler.
func (t *Target) AddSwBreakpoint(addr uint64) (bool, error) {
	return t.state.Breakpoints.Add(t.arch, addr, t.disableChecks)
}

// RemoveSwBreakpoint implements protocol.SwBreakpointHandler.
func (t *Target) RemoveSwBreakpoint(addr uint64) (bool, error) {
	return t.state.Breakpoints.Remove(t.arch, addr)
}

// AddHwWatchpoint implements protocol.HwWatchpointHandler. The
// architecture owns the hardware debug register bookkeeping.
func (t *Target) AddHwWatchpoint(addr, length uint64, kind protocol.WatchKind) (bool, error) {
	return t.arch.AddWatchpoint(addr, length, kind), nil
}

// RemoveHwWatchpoint implements protocol.HwWatchpointHandler.
func (t *Target) RemoveHwWatchpoint(addr, length uint64, kind protocol.WatchKind) (bool, error) {
	return t.arch.RemoveWatchpoint(addr, length, kind), nil
}

// TargetDescriptionXML implements protocol.DescriptionProvider, serving
// the architecture's target and register description documents with
// offset/length slicing.
func (t *Target) TargetDescriptionXML(annex string, offset, length int, buf []byte) (int, error) {
	var xml string
	switch annex {
	case "target.xml":
		xml = t.arch.TargetXML()
	case "registers.xml":
		xml = t.arch.RegistersXML()
	default:
		return 0, &UnknownAnnexError{Annex: annex}
	}

	data := []byte(strings.TrimSpace(xml))
	if offset >= len(data) {
		return 0, nil
	}

	end := offset + length
	if end > len(data) {
		end = len(data)
	}
	return copy(buf, data[offset:end]), nil
}

// UnknownAnnexError reports a target description annex this target does
// not serve.
type UnknownAnnexError struct {
	Annex string
}

func (e *UnknownAnnexError) Error() string {
	return "unknown target description annex: " + e.Annex
}
