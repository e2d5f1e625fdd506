package server

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/fwdbg/internal/config"
)

func TestClaimAllowsOneSession(t *testing.T) {
	s := &Server{config: &Config{}}
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	if !s.claim(c1) {
		t.Fatal("first claim rejected")
	}
	if s.claim(c2) {
		t.Error("second claim accepted while a session is active")
	}
	if !s.SessionActive() {
		t.Error("SessionActive = false with a claimed session")
	}

	s.release(c1)
	if s.SessionActive() {
		t.Error("SessionActive = true after release")
	}
	if !s.claim(c2) {
		t.Error("claim rejected after release")
	}
}

func TestReleaseIgnoresForeignConn(t *testing.T) {
	s := &Server{config: &Config{}}
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	s.claim(c1)
	s.release(c2)
	if !s.SessionActive() {
		t.Error("release of a non-owning connection cleared the session")
	}
}

func TestSpliceForwardsBothDirections(t *testing.T) {
	clientNear, clientFar := net.Pipe()
	targetNear, targetFar := net.Pipe()
	defer clientNear.Close()
	defer targetFar.Close()

	done := make(chan struct{})
	go func() {
		splice(clientFar, targetNear)
		close(done)
	}()

	// Client to target.
	go clientNear.Write([]byte("$g#67"))
	buf := make([]byte, 5)
	if _, err := readFull(targetFar, buf); err != nil {
		t.Fatalf("target read failed: %v", err)
	}
	if string(buf) != "$g#67" {
		t.Errorf("target received %q", buf)
	}

	// Target to client.
	go targetFar.Write([]byte("+"))
	one := make([]byte, 1)
	if _, err := readFull(clientNear, one); err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	if one[0] != '+' {
		t.Errorf("client received %q", one)
	}

	// Either side closing ends the splice.
	clientNear.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("splice did not terminate after the client closed")
	}
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestFromFile(t *testing.T) {
	f := config.Default()
	f.Bridge.Host = "127.0.0.1"
	f.Bridge.Target = "10.0.0.8:5555"
	f.Bridge.MDNS = true

	cfg := FromFile(f)
	if cfg.Host != "127.0.0.1" || cfg.Target != "10.0.0.8:5555" {
		t.Errorf("FromFile = %+v", cfg)
	}
	if !cfg.WebSocket || !cfg.MDNS {
		t.Errorf("FromFile dropped flags: %+v", cfg)
	}
	if cfg.Instance != "fwdbg-bridge" {
		t.Errorf("instance = %q", cfg.Instance)
	}
}

func TestParseServiceEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("lab-bridge", ServiceType, ServiceDomain)
	entry.HostName = "devbox.local."
	entry.Port = 7331
	entry.AddrIPv4 = []net.IP{net.IPv4(192, 168, 1, 20)}

	b := parseServiceEntry(entry)
	if b == nil {
		t.Fatal("entry with an IPv4 address rejected")
	}
	if b.Instance != "lab-bridge" || b.Port != 7331 {
		t.Errorf("parsed bridge = %+v", b)
	}
	if b.Addr() != "192.168.1.20:7331" {
		t.Errorf("Addr() = %q", b.Addr())
	}

	// No address at all means the entry is unusable.
	bare := zeroconf.NewServiceEntry("ghost", ServiceType, ServiceDomain)
	if parseServiceEntry(bare) != nil {
		t.Error("entry without addresses accepted")
	}
}

func TestNewRequiresTarget(t *testing.T) {
	if _, err := New(&Config{LogLevel: ""}); err == nil {
		t.Error("New accepted a config without a target")
	}
}
