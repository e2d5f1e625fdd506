package server

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/fwdbg/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type the bridge advertises.
	ServiceType = "_gdbremote._tcp"

	// ServiceDomain is the mDNS domain (typically "local.").
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for bridge discovery.
	DefaultScanTimeout = 5 * time.Second
)

// mdnsCloser adapts a zeroconf server to io.Closer for Shutdown.
type mdnsCloser struct {
	srv *zeroconf.Server
}

func (c *mdnsCloser) Close() error {
	c.srv.Shutdown()
	return nil
}

// advertise registers the bridge as a "_gdbremote._tcp" service.
func advertise(instance string, port int) (*mdnsCloser, error) {
	if instance == "" {
		instance = "fwdbg-bridge"
	}

	srv, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port,
		[]string{"proto=gdb-remote"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("mDNS advertisement active",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &mdnsCloser{srv: srv}, nil
}

// Bridge describes a bridge discovered on the local network.
type Bridge struct {
	Instance string
	Host     string
	IP       string
	Port     int
}

// Addr returns the dialable address of the bridge.
func (b *Bridge) Addr() string {
	return fmt.Sprintf("%s:%d", b.IP, b.Port)
}

// Discover browses the local network for advertised bridges.
func Discover(ctx context.Context, timeout time.Duration) ([]*Bridge, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	bridges := make([]*Bridge, 0)

	go func() {
		for entry := range entries {
			b := parseServiceEntry(entry)
			if b != nil {
				bridges = append(bridges, b)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	return bridges, nil
}

// parseServiceEntry converts a zeroconf service entry to a Bridge.
// Returns nil when the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	return &Bridge{
		Instance: entry.Instance,
		Host:     entry.HostName,
		IP:       ip,
		Port:     entry.Port,
	}
}
