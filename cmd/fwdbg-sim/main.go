// Fwdbg-sim hosts a simulated firmware target for development.
//
// It boots a small machine model, installs the debugger into its
// exception vectors and exposes the debugger serial port on a TCP
// listener. A client (fwdbg-console, netcat) can break in with ctrl-c
// and drive the target through a line-oriented console.
//
// Usage:
//
//	fwdbg-sim run [flags]
package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/fwdbg/internal/debugger"
	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/sim"
	"github.com/muurk/fwdbg/internal/transport"
	"github.com/muurk/fwdbg/internal/ui"
	"github.com/muurk/fwdbg/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fwdbg-sim",
	Short: "Simulated firmware target with the debugger installed",
	Long: `Run a simulated firmware target for exercising the debugger without
hardware.

The simulated machine has a flat RAM region, a page table with
permission attributes and four hardware watchpoint slots. The debugger
is installed into its exception vectors exactly as it would be on real
firmware; the serial port is served over TCP.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run command and flags
var (
	listenAddr   string
	ramBase      uint64
	ramSize      int
	initialBreak bool
	logLevel     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the simulated target and wait for a debug client",
	Example: `  # Default machine, serial on port 5555
  fwdbg-sim run

  # Break in before the workload starts
  fwdbg-sim run --initial-break

  # Larger RAM at a custom base
  fwdbg-sim run --ram-base 0x80000000 --ram-size 1048576`,
	RunE: runSim,
}

func init() {
	runCmd.Flags().StringVar(&listenAddr, "listen", ":5555", "TCP address to serve the debugger serial port on")
	runCmd.Flags().Uint64Var(&ramBase, "ram-base", 0x10000, "Base address of simulated RAM")
	runCmd.Flags().IntVar(&ramSize, "ram-size", 256*1024, "Simulated RAM size in bytes")
	runCmd.Flags().BoolVar(&initialBreak, "initial-break", false, "Break in during initialization, before the workload runs")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runSim(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	banner := &ui.Banner{
		Title: "fwdbg simulated target",
		Params: [][2]string{
			{"Serial", listenAddr},
			{"RAM", fmt.Sprintf("%#x + %#x", ramBase, ramSize)},
			{"Initial break", fmt.Sprintf("%v", initialBreak)},
			{"Version", version.Version},
		},
	}
	fmt.Println(banner.Render())

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}
	defer ln.Close()

	fmt.Println(ui.StatusStyle.Render("Waiting for debug client on " + ln.Addr().String()))
	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept failed: %w", err)
	}
	fmt.Println(ui.StatusStyle.Render("Client connected: " + conn.RemoteAddr().String()))

	machine := sim.NewMachine(ramBase, ramSize)
	// A real platform resets here. The process exiting is the closest
	// equivalent for the host tool.
	machine.OnReboot(func() { os.Exit(2) })

	serial := transport.NewNetSerial(conn)

	// Logging goes to stderr and the debugger owns the TCP stream, so the
	// transports are separate and logging can stay on during sessions.
	dbg := debugger.New(serial, machine, consoleEngine{},
		debugger.WithLogPolicy(debugger.LogPolicyFull),
		debugger.WithoutTransportInit(),
	)
	dbg.Configure(true, initialBreak, 0)

	debugger.Set(dbg)
	dbg.AddMonitorCommand("uptime", "Print how long the workload has been running.", uptimeCmd)

	if err := dbg.Initialize(machine); err != nil {
		return fmt.Errorf("debugger initialization failed: %w", err)
	}

	// The firmware would report each driver as it is dispatched; the sim
	// fakes a couple so module commands have data to show.
	debugger.NotifyModuleLoad("SimCore.efi", ramBase, 0x4000)
	debugger.NotifyModuleLoad("SimWorkload.efi", ramBase+0x4000, 0x2000)

	workload(machine)
	return nil
}

var workloadStart = time.Now()

func uptimeCmd(args []string, out io.Writer) {
	fmt.Fprintf(out, "up %s\n", time.Since(workloadStart).Round(time.Second))
}

// workload is the simulated firmware main loop: it mutates machine state
// and polls the debugger for interrupt requests.
func workload(m *sim.Machine) {
	for {
		cpu := m.CPU()
		cpu.Regs[0]++
		cpu.PC = m.RAMBase() + (cpu.Regs[0] % 0x1000)
		debugger.Poll()
		time.Sleep(10 * time.Millisecond)
	}
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fwdbg-sim %s (commit: %s)\n", version.Version, version.Commit)
	},
}
