// Package modules tracks loaded-module metadata and module-load
// breakpoints for the debugger session.
//
// The module log is append-only for the session's lifetime; records are
// never removed. The breakpoint name set matches case-insensitively with
// any ".efi" suffix stripped, so "mod break shell" breaks on a later load
// of "Shell.efi".
package modules

import (
	"strings"
	"sync"
)

// Record describes one loaded module.
type Record struct {
	Name string
	Base uint64
	Size uint64
}

// Tracker holds the module log and the breakpoint name set. Module-load
// notifications can race with monitor commands on platforms where other
// cores keep executing during debug, so all access is guarded.
type Tracker struct {
	mu         sync.Mutex
	records    []Record
	breakNames []string
	breakAll   bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add appends a module record to the log.
func (t *Tracker) Add(name string, base, size uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, Record{Name: name, Base: base, Size: size})
}

// Records returns a snapshot of the module log in load order.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// AddBreakpoint arms a load breakpoint for the named module. Empty names
// (after trimming) are ignored.
func (t *Tracker) AddBreakpoint(name string) {
	trimmed := normalizeName(strings.TrimSpace(name))
	if trimmed == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakNames = append(t.breakNames, trimmed)
}

// BreakOnAll arms a breakpoint on every module load.
func (t *Tracker) BreakOnAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakAll = true
}

// CheckBreakpoints reports whether a load of the named module should
// break.
func (t *Tracker) CheckBreakpoints(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.breakAll {
		return true
	}

	normalized := normalizeName(name)
	for _, armed := range t.breakNames {
		if armed == normalized {
			return true
		}
	}
	return false
}

// ClearBreakpoints disarms all module breakpoints, including break-all.
func (t *Tracker) ClearBreakpoints() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakNames = nil
	t.breakAll = false
}

// Breakpoints returns the armed module names.
func (t *Tracker) Breakpoints() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.breakNames))
	copy(out, t.breakNames)
	return out
}

// BreakAll reports whether break-all is armed.
func (t *Tracker) BreakAll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.breakAll
}

// normalizeName lower-cases a module name and strips an ".efi" suffix.
func normalizeName(name string) string {
	lower := strings.ToLower(name)
	return strings.TrimSuffix(lower, ".efi")
}
