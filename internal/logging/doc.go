// Package logging provides structured logging for the fwdbg debugger core.
//
// This package wraps zap with convenience functions shared by the debugger
// core, the simulated platform and the bridge tooling. The logger level is
// held in a single atomic handle so that the debugger can suspend logging
// while a debug session owns the transport (see Suspender).
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (byte dumps, page attribute changes)
//   - Info: Normal operations (initialization, module loads, session state)
//   - Warn: Non-fatal issues (truncated monitor output, dropped bytes)
//   - Error: Fatal issues (debugger crash path, handler registration failure)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Module loaded",
//	    zap.String("module", "Shell.efi"),
//	    zap.Uint64("base", 0x420000),
//	)
//
// # Suspending Logging
//
// When the debugger shares its serial transport with firmware logging, log
// output interleaved with protocol traffic corrupts packets. A Suspender
// forces the level off for a scope and restores the exact prior level on
// Resume, including early-return paths:
//
//	s := logging.Suspend()
//	defer s.Resume()
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given, the FWDBG_LOG_LEVEL environment variable is
// consulted; if that is also unset, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Level changes through
// the Suspender are atomic.
package logging
