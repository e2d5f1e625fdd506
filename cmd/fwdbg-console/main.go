// Fwdbg-console attaches an interactive terminal to a debug endpoint.
//
// It puts the local terminal into raw mode and forwards bytes in both
// directions, so ctrl-c reaches the target's interrupt poll instead of
// killing the console. Detach with ctrl-].
//
// Usage:
//
//	fwdbg-console attach <address>
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/fwdbg/internal/server"
	"github.com/muurk/fwdbg/internal/ui"
	"github.com/muurk/fwdbg/internal/version"
)

// detachByte ends the session, telnet style.
const detachByte = 0x1D // ctrl-]

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fwdbg-console",
	Short:   "Interactive console for a debug endpoint",
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(versionCmd)
}

var useDiscovery bool

var attachCmd = &cobra.Command{
	Use:   "attach [address]",
	Short: "Attach the terminal to a target or bridge",
	Long: `Attach the local terminal to a debug endpoint.

The address is a host:port of a target serial endpoint (fwdbg-sim) or a
bridge. With --discover the first bridge advertised on the local network
is used instead. The terminal runs raw so every byte, including ctrl-c,
goes to the remote side. Press ctrl-] to detach.`,
	Example: `  # Attach to a local simulated target
  fwdbg-console attach 127.0.0.1:5555

  # Find a bridge via mDNS and attach to it
  fwdbg-console attach --discover`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().BoolVar(&useDiscovery, "discover", false, "Locate a bridge via mDNS instead of an explicit address")
}

func runAttach(cmd *cobra.Command, args []string) error {
	var addr string
	switch {
	case useDiscovery:
		fmt.Println(ui.StatusStyle.Render("Scanning for bridges..."))
		bridges, err := server.Discover(context.Background(), server.DefaultScanTimeout)
		if err != nil {
			return err
		}
		if len(bridges) == 0 {
			return fmt.Errorf("no bridges found on the local network")
		}
		addr = bridges[0].Addr()
		fmt.Println(ui.StatusStyle.Render("Using bridge " + bridges[0].Instance + " at " + addr))
	case len(args) == 1:
		addr = args[0]
	default:
		return fmt.Errorf("an address is required unless --discover is given")
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	fmt.Println(ui.StatusStyle.Render("Connected to " + addr + " (detach with ctrl-])"))

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	done := make(chan error, 2)

	// Remote to terminal.
	go func() {
		_, err := io.Copy(os.Stdout, conn)
		done <- err
	}()

	// Terminal to remote, watching for the detach byte.
	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				done <- err
				return
			}
			for i := 0; i < n; i++ {
				if buf[i] == detachByte {
					done <- nil
					return
				}
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				done <- err
				return
			}
		}
	}()

	err = <-done
	_ = term.Restore(fd, oldState)
	fmt.Println()
	fmt.Println(ui.StatusStyle.Render("Detached."))
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fwdbg-console %s (commit: %s)\n", version.Version, version.Commit)
	},
}
