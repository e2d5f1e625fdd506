package transport

import "testing"

// scriptSerial is a SerialIO backed by a byte queue.
type scriptSerial struct {
	pending []byte
	written []byte
	inits   int
}

func (s *scriptSerial) Init() { s.inits++ }

func (s *scriptSerial) Write(data []byte) {
	s.written = append(s.written, data...)
}

func (s *scriptSerial) Read() byte {
	if len(s.pending) == 0 {
		panic("blocking read with no scripted bytes")
	}
	b := s.pending[0]
	s.pending = s.pending[1:]
	return b
}

func (s *scriptSerial) TryRead() (byte, bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	return s.Read(), true
}

func TestSerialConnReadByte(t *testing.T) {
	dev := &scriptSerial{pending: []byte{'a', 'b'}}
	conn := NewSerialConn(dev)

	for _, want := range []byte{'a', 'b'} {
		got, err := conn.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte failed: %v", err)
		}
		if got != want {
			t.Errorf("ReadByte = %q, want %q", got, want)
		}
	}
}

func TestSerialConnPeekDoesNotConsume(t *testing.T) {
	dev := &scriptSerial{pending: []byte{'x', 'y'}}
	conn := NewSerialConn(dev)

	// Repeated peeks return the same byte without advancing.
	for i := 0; i < 3; i++ {
		b, ok, err := conn.Peek()
		if err != nil {
			t.Fatalf("Peek failed: %v", err)
		}
		if !ok || b != 'x' {
			t.Fatalf("Peek #%d = (%q, %v), want ('x', true)", i, b, ok)
		}
	}

	b, err := conn.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte failed: %v", err)
	}
	if b != 'x' {
		t.Errorf("ReadByte after peek = %q, want 'x'", b)
	}

	b, err = conn.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte failed: %v", err)
	}
	if b != 'y' {
		t.Errorf("second ReadByte = %q, want 'y'", b)
	}
}

func TestSerialConnPeekEmpty(t *testing.T) {
	conn := NewSerialConn(&scriptSerial{})

	_, ok, err := conn.Peek()
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if ok {
		t.Error("Peek on an idle device reported a byte")
	}
}

func TestSerialConnWriteByte(t *testing.T) {
	dev := &scriptSerial{}
	conn := NewSerialConn(dev)

	for _, b := range []byte("$OK#9a") {
		if err := conn.WriteByte(b); err != nil {
			t.Fatalf("WriteByte failed: %v", err)
		}
	}
	if err := conn.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := string(dev.written); got != "$OK#9a" {
		t.Errorf("device received %q, want %q", got, "$OK#9a")
	}
}
