package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/muurk/fwdbg/internal/config"
	"github.com/muurk/fwdbg/internal/logging"
	"go.uber.org/zap"
)

// Config holds the bridge configuration.
type Config struct {
	Host      string // Listen host (empty = all interfaces)
	Port      int    // TCP listen port for GDB clients
	Target    string // Address of the target serial endpoint
	WebSocket bool   // Serve the /debug WebSocket endpoint
	MDNS      bool   // Advertise the bridge via mDNS
	Instance  string // mDNS instance name
	LogLevel  string
}

// FromFile builds a Config from a loaded configuration file.
func FromFile(f *config.File) *Config {
	return &Config{
		Host:      f.Bridge.Host,
		Port:      f.Bridge.Port,
		Target:    f.Bridge.Target,
		WebSocket: f.Bridge.WebSocket,
		MDNS:      f.Bridge.MDNS,
		Instance:  f.Bridge.Instance,
		LogLevel:  f.Bridge.LogLevel,
	}
}

// Server is the debug bridge. It accepts one GDB client at a time and
// splices its byte stream onto the target serial endpoint.
type Server struct {
	config   *Config
	listener net.Listener
	httpSrv  *http.Server
	mdns     io.Closer
	wg       sync.WaitGroup

	mu     sync.Mutex
	active net.Conn // current GDB client, nil when idle
}

// New creates a new Server instance.
func New(cfg *Config) (*Server, error) {
	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("target address is required")
	}
	return &Server{config: cfg}, nil
}

// Start starts the bridge and blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	logging.Info("Starting debug bridge",
		zap.String("addr", addr),
		zap.String("target", s.config.Target),
		zap.Bool("websocket", s.config.WebSocket),
		zap.Bool("mdns", s.config.MDNS),
		zap.String("log_level", s.config.LogLevel),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	if s.config.WebSocket {
		if err := s.startWebSocket(); err != nil {
			_ = listener.Close()
			return err
		}
	}

	if s.config.MDNS {
		closer, err := advertise(s.config.Instance, s.config.Port)
		if err != nil {
			// Discovery is a convenience; the bridge still works without
			// it, so log and continue.
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.mdns = closer
		}
	}

	logging.Info("Bridge listening for GDB connections",
		zap.String("addr", listener.Addr().String()),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.acceptConnections()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping bridge...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// acceptConnections accepts and handles incoming GDB client connections.
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Err.Error() == "use of closed network connection" {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection owns a single GDB client session for its lifetime.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	if !s.claim(conn) {
		logging.Warn("Rejecting connection, session already active",
			zap.String("remote_addr", remoteAddr),
		)
		_ = conn.Close()
		return
	}

	defer func() {
		_ = conn.Close()
		s.release(conn)
		logging.LogConnection(remoteAddr, "session_closed")
	}()

	logging.LogConnection(remoteAddr, "session_accepted")

	target, err := net.DialTimeout("tcp", s.config.Target, 10*time.Second)
	if err != nil {
		logging.Error("Failed to reach target",
			zap.String("target", s.config.Target),
			zap.Error(err),
		)
		return
	}
	defer target.Close()

	logging.Info("Target connected",
		zap.String("target", s.config.Target),
		zap.String("remote_addr", remoteAddr),
	)

	splice(conn, target)
}

// claim records conn as the active session. It fails when another session
// already owns the target.
func (s *Server) claim(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return false
	}
	s.active = conn
	return true
}

func (s *Server) release(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == conn {
		s.active = nil
	}
}

// splice copies bytes in both directions until either side closes. The
// protocol passes through untouched.
func splice(client, target net.Conn) {
	done := make(chan struct{}, 2)

	go func() {
		n, err := io.Copy(target, client)
		logCopyEnd("client->target", n, err)
		done <- struct{}{}
	}()
	go func() {
		n, err := io.Copy(client, target)
		logCopyEnd("target->client", n, err)
		done <- struct{}{}
	}()

	// First side to finish ends the session; closing both connections
	// unblocks the other copier.
	<-done
	_ = client.Close()
	_ = target.Close()
	<-done
}

func logCopyEnd(dir string, n int64, err error) {
	if err != nil && err != io.EOF {
		logging.Debug("Stream ended",
			zap.String("direction", dir),
			zap.Int64("bytes", n),
			zap.Error(err),
		)
		return
	}
	logging.Debug("Stream ended",
		zap.String("direction", dir),
		zap.Int64("bytes", n),
	)
}

// Shutdown gracefully shuts down the bridge.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	if s.mdns != nil {
		_ = s.mdns.Close()
	}
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	if s.active != nil {
		logging.Info("Closing active session",
			zap.String("remote_addr", s.active.RemoteAddr().String()),
		)
		_ = s.active.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All sessions closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return nil
}

// SessionActive reports whether a GDB client currently owns the target.
func (s *Server) SessionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}
