package logging

import "go.uber.org/zap/zapcore"

// Suspender holds the logger level captured when logging was suspended.
// When the debugger and firmware logging share a transport, any log line
// emitted mid-session is seen by the remote client as garbage between
// packets, so the debugger suspends logging for the duration of a break.
type Suspender struct {
	prev     zapcore.Level
	resumed  bool
	disabled bool
}

// Suspend captures the current level and forces logging off. The caller
// must call Resume (typically via defer) to restore the captured level.
func Suspend() *Suspender {
	s := &Suspender{prev: Level()}
	SetLevel(offLevel)
	return s
}

// Disable forces logging off without capturing a level to restore. Used
// when the debugger policy is to silence logging for the rest of the
// session once a client has connected.
func Disable() *Suspender {
	s := &Suspender{disabled: true}
	SetLevel(offLevel)
	return s
}

// Resume restores the level captured by Suspend. Safe to call more than
// once; only the first call has an effect. A Suspender created by Disable
// never restores.
func (s *Suspender) Resume() {
	if s == nil || s.resumed || s.disabled {
		return
	}
	s.resumed = true
	SetLevel(s.prev)
}
