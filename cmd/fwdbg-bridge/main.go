// Fwdbg-bridge is the host-side debug bridge for fwdbg targets.
//
// It accepts a GDB client over TCP (or a browser front-end over
// WebSocket) and splices the byte stream onto a target's debugger serial
// endpoint. Optionally it advertises itself over mDNS so clients can
// find it without knowing the host address.
//
// Usage:
//
//	fwdbg-bridge serve [flags]
//
// See 'fwdbg-bridge serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/fwdbg/internal/config"
	"github.com/muurk/fwdbg/internal/server"
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
	Use:   "fwdbg-bridge",
	Short: "Debug bridge between GDB and a firmware target",
	Long: `A bridge between a GDB client and a firmware target's debugger serial
endpoint.

The bridge listens for a single GDB client over TCP and forwards the byte
stream to the target unchanged. A WebSocket endpoint (/debug) serves
browser-hosted front-ends, and mDNS advertisement lets clients discover
the bridge on the local network.

Note: To run a target on this host for development, use the separate
'fwdbg-sim' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	configPath   string
	host         string
	port         int
	targetAddr   string
	enableWS     bool
	enableMDNS   bool
	instanceName string
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the debug bridge",
	Long: `Start the bridge and wait for a GDB client.

Settings come from the optional YAML config file first; flags that were
set explicitly override file values. Only one client session is allowed
at a time, since the target serial stream has no multiplexing.`,
	Example: `  # Bridge a local simulated target
  fwdbg-bridge serve --target 127.0.0.1:5555

  # Custom listen port with mDNS advertisement
  fwdbg-bridge serve --target 10.0.0.8:5555 --port 9000 --mdns

  # Use a config file, overriding its log level
  fwdbg-bridge serve --config ~/.config/fwdbg/bridge.yaml --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen host (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", 7331, "TCP listen port for GDB clients")
	serveCmd.Flags().StringVar(&targetAddr, "target", "", "Address of the target serial endpoint")
	serveCmd.Flags().BoolVar(&enableWS, "websocket", true, "Serve the /debug WebSocket endpoint")
	serveCmd.Flags().BoolVar(&enableMDNS, "mdns", false, "Advertise the bridge via mDNS")
	serveCmd.Flags().StringVar(&instanceName, "instance", "fwdbg-bridge", "mDNS instance name")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	file := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		file = loaded
	}

	cfg := server.FromFile(file)

	// Explicitly set flags win over file values.
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") || cfg.Port == 0 {
		cfg.Port = port
	}
	if cmd.Flags().Changed("target") {
		cfg.Target = targetAddr
	}
	if cmd.Flags().Changed("websocket") {
		cfg.WebSocket = enableWS
	}
	if cmd.Flags().Changed("mdns") {
		cfg.MDNS = enableMDNS
	}
	if cmd.Flags().Changed("instance") {
		cfg.Instance = instanceName
	}
	if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}

	if cfg.Target == "" {
		return fmt.Errorf("a target address is required (--target or config file)")
	}

	banner := &ui.Banner{
		Title: "fwdbg debug bridge",
		Params: [][2]string{
			{"Listen", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
			{"Target", cfg.Target},
			{"WebSocket", fmt.Sprintf("%v", cfg.WebSocket)},
			{"mDNS", fmt.Sprintf("%v", cfg.MDNS)},
			{"Version", version.Version},
		},
	}
	fmt.Println(banner.Render())

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	return srv.Start()
}

// Discover command
var discoverTimeout int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find advertised bridges on the local network",
	Example: `  # Scan with the default timeout
  fwdbg-bridge discover

  # Wait longer on a slow network
  fwdbg-bridge discover --timeout 15`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout := server.DefaultScanTimeout
		if cmd.Flags().Changed("timeout") {
			timeout = time.Duration(discoverTimeout) * time.Second
		}

		fmt.Println(ui.StatusStyle.Render("Scanning for bridges..."))
		bridges, err := server.Discover(context.Background(), timeout)
		if err != nil {
			return err
		}
		if len(bridges) == 0 {
			fmt.Println("No bridges found.")
			return nil
		}
		for _, b := range bridges {
			fmt.Printf("  %-24s %s\n", b.Instance, b.Addr())
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 5, "Scan timeout in seconds")
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fwdbg-bridge %s (commit: %s)\n", version.Version, version.Commit)
	},
}
