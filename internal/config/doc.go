// Package config loads and saves the debug bridge configuration file.
//
// The file is YAML, normally at ~/.config/fwdbg/bridge.yaml:
//
//	version: 1
//	bridge:
//	  host: ""
//	  port: 7331
//	  target: "127.0.0.1:5555"
//	  websocket: true
//	  mdns: true
//	  instance: "fwdbg-bridge"
//	  log_level: "info"
//
// Flags on the CLI override file values; the file only has to exist when
// the user wants persistent settings.
package config
