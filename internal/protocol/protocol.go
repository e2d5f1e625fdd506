package protocol

// WatchKind identifies the access type a hardware watchpoint triggers on.
type WatchKind int

const (
	// WatchWrite triggers on data writes.
	WatchWrite WatchKind = iota
	// WatchRead triggers on data reads.
	WatchRead
	// WatchAccess triggers on any data access.
	WatchAccess
)

// String returns a human-readable watch kind name.
func (k WatchKind) String() string {
	switch k {
	case WatchWrite:
		return "write"
	case WatchRead:
		return "read"
	case WatchAccess:
		return "access"
	default:
		return "unknown"
	}
}

// Connection is the byte transport the engine uses to talk to the remote
// client. Write is byte-at-a-time; batching, if any, happens below this
// interface. Read blocks until a byte is available. Peek returns a byte
// without consuming it, or ok=false if none is pending.
type Connection interface {
	WriteByte(b byte) error
	Flush() error
	ReadByte() (byte, error)
	Peek() (byte, bool, error)
}

// ConsoleWriter receives monitor command output destined for the client
// console. Each call is expected to produce one protocol output packet, so
// callers should batch text before writing.
type ConsoleWriter interface {
	WriteConsole(data []byte)
}

// Target is the surface every debug target provides to the engine. The
// register payloads use the target's GDB register file ordering and
// encoding; the engine treats them as opaque bytes.
type Target interface {
	// ReadRegisters returns the full register file.
	ReadRegisters() ([]byte, error)
	// WriteRegisters replaces the full register file.
	WriteRegisters(data []byte) error
	// ReadMemory fills buf from target memory at addr. On success the
	// whole buffer is filled; partial transfers are not supported.
	ReadMemory(addr uint64, buf []byte) error
	// WriteMemory writes data to target memory at addr.
	WriteMemory(addr uint64, data []byte) error
	// Resume marks the target to continue execution. The engine's Run
	// loop observes this and returns control to the exception path.
	Resume() error
	// Step arms a single-instruction trap and marks the target resumed.
	Step() error
	// Resumed reports whether Resume or Step has been requested.
	Resumed() bool
}

// SwBreakpointHandler is the optional software breakpoint capability.
// The bool results distinguish "no resource / not found" (false, nil) from
// access failures (error).
type SwBreakpointHandler interface {
	AddSwBreakpoint(addr uint64) (bool, error)
	RemoveSwBreakpoint(addr uint64) (bool, error)
}

// HwWatchpointHandler is the optional hardware watchpoint capability.
type HwWatchpointHandler interface {
	AddHwWatchpoint(addr, length uint64, kind WatchKind) (bool, error)
	RemoveHwWatchpoint(addr, length uint64, kind WatchKind) (bool, error)
}

// MonitorHandler is the optional monitor ("qRcmd") capability. The command
// is the raw text after decoding; output written to out is forwarded to the
// client console.
type MonitorHandler interface {
	HandleMonitorCmd(cmd string, out ConsoleWriter) error
}

// DescriptionProvider is the optional target description XML capability.
// It fills buf with up to length bytes of the named annex starting at
// offset and returns the number of bytes written; 0 signals end of data.
type DescriptionProvider interface {
	TargetDescriptionXML(annex string, offset, length int, buf []byte) (int, error)
}

// Engine is the protocol state machine contract. Run services client
// requests against t over conn and returns once t.Resumed() reports true.
// A non-nil error means the session is unrecoverable and the caller should
// not resume into unknown state.
type Engine interface {
	Run(t Target, conn Connection) error
}
