package target

import (
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/modules"
)

// MonitorFunc is the callback type for registered monitor commands. args
// holds the whitespace-separated tokens after the command name; output
// written to out is batched and sent to the client console.
type MonitorFunc func(args []string, out io.Writer)

// MonitorCommand pairs a registered monitor command with its callback.
type MonitorCommand struct {
	Name        string
	Description string
	Run         MonitorFunc
}

// State is the durable session state shared by every Target the debugger
// creates: the software breakpoint table, loaded-module tracking and the
// registry of externally added monitor commands.
type State struct {
	Breakpoints BreakpointTable
	Modules     *modules.Tracker

	mu       sync.Mutex
	commands []MonitorCommand
}

// NewState creates empty session state.
func NewState() *State {
	return &State{Modules: modules.NewTracker()}
}

// AddMonitorCommand registers an external monitor command.
func (s *State) AddMonitorCommand(name, description string, fn MonitorFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, MonitorCommand{Name: name, Description: description, Run: fn})
	logging.Info("Added debugger monitor command", zap.String("command", name))
}

// MonitorCommands returns a snapshot of the registered commands.
func (s *State) MonitorCommands() []MonitorCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MonitorCommand, len(s.commands))
	copy(out, s.commands)
	return out
}

// dispatchMonitorCommand runs a registered command by name. The name match
// is case-sensitive. Returns false if no command matched.
func (s *State) dispatchMonitorCommand(name string, args []string, out io.Writer) bool {
	s.mu.Lock()
	var fn MonitorFunc
	for _, cmd := range s.commands {
		if cmd.Name == name {
			fn = cmd.Run
			break
		}
	}
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(args, out)
	return true
}
