package target

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muurk/fwdbg/internal/protocol"
	"github.com/muurk/fwdbg/internal/version"
)

const monitorHelp = `
fwdbg monitor commands:
    help - Display this help.
    ? - Display information about the state of the machine.
    reboot - Prepares to reboot the machine on the next continue.
    disablechecks - Disable memory access safety checks for this session.
    mod ... - Commands for breaking on or querying modules.
    arch ... - Architecture specific commands.
`

const modHelp = `
Mod commands:
    list [count] [index] - List loaded modules.
    break <module> - Set load breakpoint for a module.
    all - Break on all module loads.
    clear - Clear all module breakpoints.
`

const unknownCommand = "Unknown command. Use 'help' for a list of commands."

// HandleMonitorCmd implements protocol.MonitorHandler. The first token is
// the case-sensitive command name; an optional leading "O[n]" modifier
// sets a skip offset so a client can resume output truncated by a
// previous invocation. Output is accumulated in the monitor buffer and
// flushed as a single console write.
func (t *Target) HandleMonitorCmd(cmd string, out protocol.ConsoleWriter) error {
	tokens := strings.Fields(cmd)
	defer t.monitorBuf.FlushToConsole(out)

	// Check for an offset modifier and configure the buffer accordingly.
	if len(tokens) > 0 && strings.HasPrefix(tokens[0], "O[") && strings.HasSuffix(tokens[0], "]") {
		modifier := tokens[0]
		if offset, err := strconv.Atoi(modifier[2 : len(modifier)-1]); err == nil {
			t.monitorBuf.SetStartOffset(offset)
		}
		tokens = tokens[1:]
	}

	if len(tokens) == 0 {
		t.printHelp()
		return nil
	}

	name, args := tokens[0], tokens[1:]
	switch name {
	case "help":
		t.printHelp()
	case "?":
		fmt.Fprintf(t.monitorBuf, "fwdbg %s\nInstruction Pointer: %#X\nException Type: %s\n",
			version.Version, t.info.InstructionPointer, t.info.Type)
	case "reboot", "R":
		t.reboot = true
		io.WriteString(t.monitorBuf, "System will reboot on continue.")
	case "disablechecks":
		t.disableChecks = true
		io.WriteString(t.monitorBuf, "Disabling safety checks. Good luck!")
	case "mod":
		t.moduleCmd(args)
	case "arch":
		t.arch.MonitorCmd(args, t.monitorBuf)
	default:
		if !t.state.dispatchMonitorCommand(name, args, t.monitorBuf) {
			io.WriteString(t.monitorBuf, unknownCommand)
		}
	}

	return nil
}

func (t *Target) printHelp() {
	io.WriteString(t.monitorBuf, monitorHelp)
	commands := t.state.MonitorCommands()
	if len(commands) == 0 {
		return
	}
	io.WriteString(t.monitorBuf, "External commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(t.monitorBuf, "    %s - %s\n", cmd.Name, cmd.Description)
	}
}

func (t *Target) moduleCmd(args []string) {
	mods := t.state.Modules

	if len(args) == 0 {
		io.WriteString(t.monitorBuf, modHelp)
		return
	}

	switch args[0] {
	case "all", "breakall":
		mods.BreakOnAll()
		io.WriteString(t.monitorBuf, "Will break for all module loads.")
	case "break":
		for _, name := range args[1:] {
			mods.AddBreakpoint(name)
		}
		io.WriteString(t.monitorBuf, "Module breakpoints:\n")
		for _, name := range mods.Breakpoints() {
			fmt.Fprintf(t.monitorBuf, "\t%s\n", name)
		}
	case "clear":
		mods.ClearBreakpoints()
		io.WriteString(t.monitorBuf, "Cleared module breaks!")
	case "list":
		count := -1
		start := 0
		// Negative values would walk off the record slice; treat them
		// like unparseable input and keep the defaults.
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil && n >= 0 {
				count = n
			}
		}
		if len(args) > 2 {
			if n, err := strconv.Atoi(args[2]); err == nil && n >= 0 {
				start = n
			}
		}

		records := mods.Records()
		if start > len(records) {
			start = len(records)
		}
		printed := 0
		for _, rec := range records[start:] {
			if count >= 0 && printed >= count {
				break
			}
			fmt.Fprintf(t.monitorBuf, "\t%s: %#x : %#x\n", rec.Name, rec.Base, rec.Size)
			printed++
		}
		if printed == 0 {
			io.WriteString(t.monitorBuf, "No modules.")
		}
	default:
		io.WriteString(t.monitorBuf, modHelp)
	}
}
