package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bridge.yaml")

	f := Default()
	f.Bridge.Target = "10.0.0.8:5555"
	f.Bridge.Port = 9000
	f.Bridge.MDNS = true
	if err := f.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Bridge.Target != "10.0.0.8:5555" {
		t.Errorf("target = %q", loaded.Bridge.Target)
	}
	if loaded.Bridge.Port != 9000 {
		t.Errorf("port = %d", loaded.Bridge.Port)
	}
	if !loaded.Bridge.MDNS {
		t.Error("mdns flag lost")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	minimal := "version: 1\nbridge:\n  target: \"127.0.0.1:5555\"\n"
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Bridge.Port != 7331 {
		t.Errorf("default port not applied: %d", f.Bridge.Port)
	}
	if f.Bridge.Instance != "fwdbg-bridge" {
		t.Errorf("default instance not applied: %q", f.Bridge.Instance)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("loading a missing file succeeded")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("::not yaml::"), 0o644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("loading malformed YAML succeeded")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *File {
		f := Default()
		f.Bridge.Target = "127.0.0.1:5555"
		return f
	}

	tests := []struct {
		name    string
		mutate  func(*File)
		wantErr string
	}{
		{"valid", func(f *File) {}, ""},
		{"wrong version", func(f *File) { f.Version = 99 }, "version"},
		{"port too low", func(f *File) { f.Bridge.Port = 0 }, "port"},
		{"port too high", func(f *File) { f.Bridge.Port = 70000 }, "port"},
		{"missing target", func(f *File) { f.Bridge.Target = "" }, "target"},
		{"bad log level", func(f *File) { f.Bridge.LogLevel = "loud" }, "log level"},
		{"empty log level ok", func(f *File) { f.Bridge.LogLevel = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(f)
			err := f.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
