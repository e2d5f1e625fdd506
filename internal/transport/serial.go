package transport

// SerialIO is the contract fulfilled by the platform's serial device
// driver. The debugger owns the device for the duration of a session; no
// locking is required at this layer.
//
// Read blocks until a byte arrives. TryRead returns immediately with
// ok=false when no byte is pending. Neither returns an error: a serial
// device that can fail reads is wrapped by the platform before it gets
// here, as the debugger has no way to recover from a dead transport
// mid-session anyway.
type SerialIO interface {
	// Init prepares the device. Called once during debugger
	// initialization unless transport init is suppressed.
	Init()
	// Write sends bytes to the device.
	Write(data []byte)
	// Read blocks until a byte is available and returns it.
	Read() byte
	// TryRead returns a pending byte without blocking.
	TryRead() (byte, bool)
}

// SerialConn adapts a SerialIO to the protocol.Connection contract. It
// caches at most one peeked byte so the engine's Peek/Read pairing works
// over a device that has no lookahead of its own.
type SerialConn struct {
	serial SerialIO

	peeked    byte
	hasPeeked bool
}

// NewSerialConn creates a connection over the given serial device.
func NewSerialConn(serial SerialIO) *SerialConn {
	return &SerialConn{serial: serial}
}

// WriteByte sends one byte to the device. Byte-at-a-time, no batching at
// this layer.
func (c *SerialConn) WriteByte(b byte) error {
	c.serial.Write([]byte{b})
	return nil
}

// Flush is a no-op; the serial device has no internal buffering to flush.
func (c *SerialConn) Flush() error {
	return nil
}

// ReadByte returns a previously peeked byte if present, else blocks on the
// device.
func (c *SerialConn) ReadByte() (byte, error) {
	if c.hasPeeked {
		c.hasPeeked = false
		return c.peeked, nil
	}
	return c.serial.Read(), nil
}

// Peek returns a previously peeked byte, else attempts a non-blocking read
// from the device and caches the result for the next ReadByte or Peek.
func (c *SerialConn) Peek() (byte, bool, error) {
	if c.hasPeeked {
		return c.peeked, true, nil
	}

	b, ok := c.serial.TryRead()
	if !ok {
		return 0, false, nil
	}
	c.peeked = b
	c.hasPeeked = true
	return b, true, nil
}
