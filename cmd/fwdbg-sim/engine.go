package main

import (
	"fmt"
	"strings"

	"github.com/muurk/fwdbg/internal/protocol"
)

// consoleEngine is a line-oriented stand-in for a full remote protocol
// engine. It lets a plain TCP client (telnet, netcat, fwdbg-console)
// drive the simulated target: monitor commands are dispatched directly,
// and "c"/"s" resume or step the target. It exists for development and
// demos; a real GDB stub engine plugs into the same seam.
type consoleEngine struct{}

const consolePrompt = "dbg> "

func (consoleEngine) Run(t protocol.Target, conn protocol.Connection) error {
	out := &consoleOutput{conn: conn}
	out.WriteConsole([]byte("\n-- target stopped --\n"))

	for !t.Resumed() {
		if err := writeAll(conn, []byte(consolePrompt)); err != nil {
			return err
		}

		line, err := readLine(conn)
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "c", "continue":
			if err := t.Resume(); err != nil {
				return err
			}
		case "s", "step":
			if err := t.Step(); err != nil {
				return err
			}
		case "regs":
			regs, err := t.ReadRegisters()
			if err != nil {
				out.WriteConsole([]byte(fmt.Sprintf("register read failed: %v\n", err)))
				continue
			}
			out.WriteConsole([]byte(fmt.Sprintf("register file: % x\n", regs)))
		default:
			mon, ok := t.(protocol.MonitorHandler)
			if !ok {
				out.WriteConsole([]byte("monitor commands not supported by this target\n"))
				continue
			}
			if err := mon.HandleMonitorCmd(line, out); err != nil {
				out.WriteConsole([]byte(fmt.Sprintf("command failed: %v\n", err)))
			}
		}
	}
	return nil
}

// readLine consumes bytes up to a newline. A 0x03 (ctrl-c) anywhere in
// the line aborts it, mirroring interactive expectations.
func readLine(conn protocol.Connection) (string, error) {
	var b strings.Builder
	for {
		c, err := conn.ReadByte()
		if err != nil {
			return "", err
		}
		switch c {
		case '\n':
			return b.String(), nil
		case '\r', 0x03:
			// Ignore; the newline terminates the line.
		default:
			b.WriteByte(c)
		}
	}
}

func writeAll(conn protocol.Connection, data []byte) error {
	for _, b := range data {
		if err := conn.WriteByte(b); err != nil {
			return err
		}
	}
	return conn.Flush()
}

// consoleOutput forwards monitor output straight to the client.
type consoleOutput struct {
	conn protocol.Connection
}

func (o *consoleOutput) WriteConsole(data []byte) {
	_ = writeAll(o.conn, data)
}
