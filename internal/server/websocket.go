package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/fwdbg/internal/logging"
	"go.uber.org/zap"
)

// wsPath is where browser-hosted debugger front-ends connect. The GDB
// byte stream travels as binary WebSocket messages.
const wsPath = "/debug"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The bridge is a lab tool on a trusted network; front-ends are
	// served from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startWebSocket serves the /debug endpoint on the port above the GDB
// listener port.
func (s *Server) startWebSocket() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port+1)

	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, s.handleWebSocket)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create websocket listener: %w", err)
	}

	logging.Info("WebSocket endpoint available",
		zap.String("addr", addr),
		zap.String("path", wsPath),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.Error("WebSocket server error", zap.Error(err))
		}
	}()
	return nil
}

// handleWebSocket upgrades the request and runs a debug session over it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	conn := &wsConn{ws: ws}

	if !s.claim(conn) {
		logging.Warn("Rejecting WebSocket connection, session already active",
			zap.String("remote_addr", remoteAddr),
		)
		_ = ws.Close()
		return
	}

	defer func() {
		_ = ws.Close()
		s.release(conn)
		logging.LogConnection(remoteAddr, "ws_session_closed")
	}()

	logging.LogConnection(remoteAddr, "ws_session_accepted")

	target, err := net.DialTimeout("tcp", s.config.Target, 10*time.Second)
	if err != nil {
		logging.Error("Failed to reach target",
			zap.String("target", s.config.Target),
			zap.Error(err),
		)
		return
	}
	defer target.Close()

	splice(conn, target)
}

// wsConn adapts a WebSocket connection to net.Conn so the same splice
// path serves both listeners. Each Write becomes one binary message;
// Read drains messages with carry-over for partial reads.
type wsConn struct {
	ws      *websocket.Conn
	pending []byte
}

func (c *wsConn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		for {
			msgType, data, err := c.ws.ReadMessage()
			if err != nil {
				return 0, err
			}
			if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
				continue
			}
			if len(data) == 0 {
				continue
			}
			c.pending = data
			break
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error                       { return c.ws.Close() }
func (c *wsConn) LocalAddr() net.Addr                { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr               { return c.ws.RemoteAddr() }
func (c *wsConn) SetDeadline(t time.Time) error      { return c.ws.UnderlyingConn().SetDeadline(t) }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
