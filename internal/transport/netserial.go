package transport

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/fwdbg/internal/logging"
)

// NetSerial adapts a net.Conn to the SerialIO contract. It is used by the
// simulated target to expose its serial port on a TCP listener, and by
// host tooling that bridges a remote byte stream into the debugger.
//
// The SerialIO contract has no error returns, so connection failures are
// reported by returning idle reads: Read blocks until a byte arrives or
// the connection dies, in which case it returns 0 forever and the failure
// is logged once. The debugger treats a wedged transport as fatal at a
// higher level.
type NetSerial struct {
	conn   net.Conn
	failed bool
}

// NewNetSerial wraps an established connection.
func NewNetSerial(conn net.Conn) *NetSerial {
	return &NetSerial{conn: conn}
}

// Init is a no-op; the connection is established before wrapping.
func (s *NetSerial) Init() {}

// Write sends data on the connection.
func (s *NetSerial) Write(data []byte) {
	if s.failed {
		return
	}
	if _, err := s.conn.Write(data); err != nil {
		s.fail("write", err)
	}
}

// Read blocks until a byte is available.
func (s *NetSerial) Read() byte {
	if s.failed {
		return 0
	}
	_ = s.conn.SetReadDeadline(time.Time{})
	var buf [1]byte
	for {
		n, err := s.conn.Read(buf[:])
		if n == 1 {
			return buf[0]
		}
		if err != nil {
			s.fail("read", err)
			return 0
		}
	}
}

// TryRead polls the connection for a pending byte using an immediate read
// deadline.
func (s *NetSerial) TryRead() (byte, bool) {
	if s.failed {
		return 0, false
	}
	_ = s.conn.SetReadDeadline(time.Now())
	var buf [1]byte
	n, err := s.conn.Read(buf[:])
	_ = s.conn.SetReadDeadline(time.Time{})
	if n == 1 {
		return buf[0], true
	}
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return 0, false
		}
		s.fail("try_read", err)
	}
	return 0, false
}

func (s *NetSerial) fail(op string, err error) {
	if !s.failed {
		logging.Error("Serial connection failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	s.failed = true
}
