package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config file format version this build writes.
const CurrentVersion = 1

// Bridge holds the debug bridge settings.
type Bridge struct {
	Host      string `yaml:"host,omitempty"`      // Listen host (empty = all interfaces)
	Port      int    `yaml:"port"`                // TCP listen port for GDB clients
	Target    string `yaml:"target"`              // Address of the target serial endpoint
	WebSocket bool   `yaml:"websocket,omitempty"` // Serve the /debug WebSocket endpoint
	MDNS      bool   `yaml:"mdns,omitempty"`      // Advertise the bridge via mDNS
	Instance  string `yaml:"instance,omitempty"`  // mDNS instance name
	LogLevel  string `yaml:"log_level,omitempty"` // Log level (debug, info, warn, error)
}

// File is the whole configuration file.
type File struct {
	Version int    `yaml:"version"`
	Bridge  Bridge `yaml:"bridge"`
}

// Default returns a File with sensible defaults.
func Default() *File {
	return &File{
		Version: CurrentVersion,
		Bridge: Bridge{
			Port:      7331,
			WebSocket: true,
			MDNS:      false,
			Instance:  "fwdbg-bridge",
			LogLevel:  "info",
		},
	}
}

// Load reads and validates the configuration at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	f := Default()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Save writes the configuration to path, creating parent directories as
// needed.
func (f *File) Save(path string) error {
	if err := f.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for usability.
func (f *File) Validate() error {
	if f.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version %d (want %d)", f.Version, CurrentVersion)
	}
	if f.Bridge.Port <= 0 || f.Bridge.Port > 65535 {
		return fmt.Errorf("invalid bridge port %d", f.Bridge.Port)
	}
	if f.Bridge.Target == "" {
		return fmt.Errorf("bridge target address is required")
	}
	switch f.Bridge.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", f.Bridge.LogLevel)
	}
	return nil
}
