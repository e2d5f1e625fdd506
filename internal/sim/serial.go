package sim

// PipeSerial is a channel-backed loopback serial device. The target side
// fulfills the transport.SerialIO contract; the host side is driven by
// tests or a protocol engine harness.
type PipeSerial struct {
	toTarget chan byte
	toHost   chan byte
}

// NewPipeSerial creates a loopback device with the given buffer depth per
// direction.
func NewPipeSerial(depth int) *PipeSerial {
	if depth <= 0 {
		depth = 1024
	}
	return &PipeSerial{
		toTarget: make(chan byte, depth),
		toHost:   make(chan byte, depth),
	}
}

// Init implements transport.SerialIO.
func (s *PipeSerial) Init() {}

// Write implements transport.SerialIO, sending bytes to the host side.
func (s *PipeSerial) Write(data []byte) {
	for _, b := range data {
		s.toHost <- b
	}
}

// Read implements transport.SerialIO, blocking until the host sends a
// byte.
func (s *PipeSerial) Read() byte {
	return <-s.toTarget
}

// TryRead implements transport.SerialIO.
func (s *PipeSerial) TryRead() (byte, bool) {
	select {
	case b := <-s.toTarget:
		return b, true
	default:
		return 0, false
	}
}

// HostWrite queues bytes for the target side to read.
func (s *PipeSerial) HostWrite(data []byte) {
	for _, b := range data {
		s.toTarget <- b
	}
}

// HostRead blocks until the target writes a byte.
func (s *PipeSerial) HostRead() byte {
	return <-s.toHost
}

// HostTryRead returns a byte written by the target, if any is pending.
func (s *PipeSerial) HostTryRead() (byte, bool) {
	select {
	case b := <-s.toHost:
		return b, true
	default:
		return 0, false
	}
}

// HostDrain returns all bytes currently pending on the host side.
func (s *PipeSerial) HostDrain() []byte {
	var out []byte
	for {
		select {
		case b := <-s.toHost:
			out = append(out, b)
		default:
			return out
		}
	}
}
