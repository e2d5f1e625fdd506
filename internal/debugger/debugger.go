package debugger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muurk/fwdbg/internal/arch"
	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/protocol"
	"github.com/muurk/fwdbg/internal/target"
	"github.com/muurk/fwdbg/internal/transport"
)

// initialStopPacket is written before the first engine start. Not to
// spec, but a useful hint that a break has occurred; it lets a client
// reconnect across scenarios like reboots.
const initialStopPacket = "$T05thread:01;#07"

// ctrlC is the interrupt byte Poll watches for.
const ctrlC = 0x03

// LogPolicy controls what the debugger does with logging around a
// session.
type LogPolicy int

const (
	// LogPolicySuspend suspends logging while broken in and restores it
	// on resume. May cause instability if the debugger and logging share
	// a transport and log lines are emitted outside the debugger.
	LogPolicySuspend LogPolicy = iota
	// LogPolicyDisable turns logging off for the rest of the session
	// once a connection is made. Safest when the debugger and logging
	// share a transport.
	LogPolicyDisable
	// LogPolicyFull leaves logging untouched. Only for separate
	// transports.
	LogPolicyFull
)

// ExceptionHandler receives exceptions from the platform's interrupt
// plumbing.
type ExceptionHandler interface {
	HandleException(exceptionType uint64, ctx arch.Context)
}

// InterruptManager is the platform contract for installing exception
// handlers.
type InterruptManager interface {
	RegisterExceptionHandler(exceptionType uint64, h ExceptionHandler) error
	UnregisterExceptionHandler(exceptionType uint64) error
}

// Option configures a Debugger.
type Option func(*Debugger)

// WithLogPolicy sets the logging policy. Default is LogPolicySuspend.
func WithLogPolicy(policy LogPolicy) Option {
	return func(d *Debugger) { d.logPolicy = policy }
}

// WithoutTransportInit prevents the debugger from initializing the
// transport. Suggested when the transport is shared with the logging
// device.
func WithoutTransportInit() Option {
	return func(d *Debugger) { d.noTransportInit = true }
}

// WithExceptionTypes customizes the exception types the debugger hooks.
func WithExceptionTypes(types []uint64) Option {
	return func(d *Debugger) { d.exceptionTypes = types }
}

// WithWindbgWorkarounds toggles windbg compatibility workarounds.
func WithWindbgWorkarounds(enabled bool) Option {
	return func(d *Debugger) { d.windbg = enabled }
}

// WithForceEnable enables the debugger regardless of later
// configuration, with an initial break and no timeout. Development use
// only.
func WithForceEnable() Option {
	return func(d *Debugger) {
		d.enabled = true
		d.initialBreak = true
		d.initialBreakTimeout = 0
	}
}

// Debugger is the firmware debugger session. One instance is installed
// process-wide via Set before the exception vector is armed.
type Debugger struct {
	serial transport.SerialIO
	arch   arch.Arch
	engine protocol.Engine

	logPolicy       LogPolicy
	noTransportInit bool
	exceptionTypes  []uint64
	windbg          bool

	configMu            sync.RWMutex
	enabled             bool
	initialBreak        bool
	initialBreakTimeout uint32

	// sessionMu serializes exception servicing. A failed TryLock means a
	// nested fault while broken in, which routes to the crash path.
	sessionMu sync.Mutex
	started   bool

	state *target.State
}

// New creates a debugger over the given serial transport, architecture
// and protocol engine. The debugger starts disabled; enable it with
// Configure or WithForceEnable.
func New(serial transport.SerialIO, a arch.Arch, engine protocol.Engine, opts ...Option) *Debugger {
	d := &Debugger{
		serial:    serial,
		arch:      a,
		engine:    engine,
		logPolicy: LogPolicySuspend,
		windbg:    true,
		state:     target.NewState(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Configure allows runtime configuration of the debugger settings.
// timeoutSeconds bounds the initial-break connection wait; 0 waits
// indefinitely.
func (d *Debugger) Configure(enabled, initialBreak bool, timeoutSeconds uint32) {
	d.configMu.Lock()
	defer d.configMu.Unlock()
	d.enabled = enabled
	d.initialBreak = initialBreak
	d.initialBreakTimeout = timeoutSeconds
}

// Enabled reports whether the debugger is enabled.
func (d *Debugger) Enabled() bool {
	d.configMu.RLock()
	defer d.configMu.RUnlock()
	return d.enabled
}

// Initialize installs the debugger into the exception handlers using the
// provided interrupt manager. Depending on configuration this may invoke
// an initial debug break. Must be called exactly once, before the
// exception vector can deliver.
func (d *Debugger) Initialize(im InterruptManager) error {
	d.configMu.RLock()
	enabled := d.enabled
	initialBreak := d.initialBreak
	d.configMu.RUnlock()

	if !enabled {
		logging.Info("Debugger is disabled.")
		return nil
	}

	logging.Info("Initializing debugger.")

	if !d.noTransportInit {
		d.serial.Init()
	}

	if err := d.arch.Initialize(); err != nil {
		return fmt.Errorf("architecture initialization failed: %w", err)
	}

	types := d.exceptionTypes
	if types == nil {
		types = d.arch.DefaultExceptionTypes()
	}
	for _, exceptionType := range types {
		// Remove the existing handler. Don't care about the return since
		// there may not be a handler anyways.
		_ = im.UnregisterExceptionHandler(exceptionType)

		if err := im.RegisterExceptionHandler(exceptionType, d); err != nil {
			logging.Error("Failed to register debugger exception handler",
				zap.Uint64("exception_type", exceptionType),
				zap.Error(err),
			)
		}
	}

	if initialBreak {
		logging.Error("************************************")
		logging.Error("***  Initial debug breakpoint!   ***")
		logging.Error("************************************")
		d.arch.Breakpoint()
		logging.Info("Resuming from initial breakpoint.")
	}

	return nil
}

// HandleException is the single path from a raw hardware exception into
// the debugger and back. It implements ExceptionHandler.
func (d *Debugger) HandleException(exceptionType uint64, ctx arch.Context) {
	info, err := d.arch.ProcessEntry(exceptionType, ctx)
	if err != nil {
		d.crash(fmt.Errorf("exception context normalization failed: %w", err), exceptionType)
	}

	result, err := d.enter(info)
	if err != nil {
		d.crash(err, exceptionType)
	}

	d.arch.ProcessExit(result)
}

// enter services one exception: suspend logging per policy, hand a fresh
// target to the protocol engine and run it until the client resumes the
// target.
func (d *Debugger) enter(info *arch.ExceptionInfo) (*arch.ExceptionInfo, error) {
	if !d.sessionMu.TryLock() {
		return nil, ErrReentry
	}
	defer d.sessionMu.Unlock()

	switch d.logPolicy {
	case LogPolicySuspend:
		s := logging.Suspend()
		defer s.Resume()
	case LogPolicyDisable:
		logging.Disable()
	case LogPolicyFull:
		// No action needed.
	}

	tgt := target.New(info, d.arch, d.state, target.Options{
		WindbgWorkarounds: d.windbg,
	})

	if !d.started {
		// Flush any stale data from the transport, then hint the client
		// that a break has occurred.
		for {
			if _, ok := d.serial.TryRead(); !ok {
				break
			}
		}
		d.serial.Write([]byte(initialStopPacket))
		d.started = true
	}

	conn := transport.NewSerialConn(d.serial)
	if err := d.engine.Run(tgt, conn); err != nil {
		return nil, &EngineError{Err: err}
	}
	if !tgt.Resumed() {
		return nil, ErrEngineStopped
	}

	if tgt.RebootOnResume() {
		d.arch.Reboot()
		return nil, ErrRebootFailed
	}

	return tgt.Info(), nil
}

// crash is the terminal path for unrecoverable debugger failures. It
// restores enough logging to report the error, then reboots rather than
// resuming into unknown state. It does not return.
func (d *Debugger) crash(err error, exceptionType uint64) {
	// Always log crashes, the debugger will stop working anyways.
	logging.SetLevel(zapcore.ErrorLevel)
	logging.Error("DEBUGGER CRASH!",
		zap.Error(err),
		zap.Uint64("exception_type", exceptionType),
	)

	d.arch.Reboot()
	panic(fmt.Sprintf("debugger crash: %v (reboot returned)", err))
}

// NotifyModuleLoad records a loaded module and synthesizes a break if a
// module breakpoint is armed for it. Call before the module begins
// execution.
func (d *Debugger) NotifyModuleLoad(name string, base, size uint64) {
	if !d.Enabled() {
		return
	}

	d.state.Modules.Add(name, base, size)
	if d.state.Modules.CheckBreakpoints(name) {
		logging.Error("MODULE BREAKPOINT!",
			zap.String("module", name),
			zap.Uint64("base", base),
			zap.Uint64("size", size),
		)
		d.arch.Breakpoint()
	}
}

// Poll drains pending transport bytes and breaks in if the client sent an
// interrupt (ctrl-c).
func (d *Debugger) Poll() {
	if !d.Enabled() {
		return
	}

	for {
		b, ok := d.serial.TryRead()
		if !ok {
			return
		}
		if b == ctrlC {
			d.arch.Breakpoint()
		}
	}
}

// AddMonitorCommand registers a monitor command with the session. May be
// called before Initialize.
func (d *Debugger) AddMonitorCommand(name, description string, fn target.MonitorFunc) {
	if !d.Enabled() {
		return
	}
	d.state.AddMonitorCommand(name, description, fn)
}

// Breakpoint executes the architecture trap instruction. Callers should
// check Enabled first; breaking with the debugger disabled raises an
// unhandled exception.
func (d *Debugger) Breakpoint() {
	d.arch.Breakpoint()
}
