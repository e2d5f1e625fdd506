package transport

import (
	"bytes"
	"strings"
	"testing"
)

// captureConsole records each console write as one entry.
type captureConsole struct {
	writes [][]byte
}

func (c *captureConsole) WriteConsole(data []byte) {
	c.writes = append(c.writes, append([]byte(nil), data...))
}

func (c *captureConsole) joined() string {
	return string(bytes.Join(c.writes, nil))
}

func TestBufferWriterFlush(t *testing.T) {
	w := NewBufferWriter(128)
	out := &captureConsole{}

	if _, err := w.WriteString("hello "); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if _, err := w.WriteString("world"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	w.FlushToConsole(out)

	if len(out.writes) != 1 {
		t.Fatalf("flush produced %d console writes, want 1", len(out.writes))
	}
	if got := out.joined(); got != "hello world" {
		t.Errorf("flushed output = %q, want %q", got, "hello world")
	}
	if w.Len() != 0 || w.Truncated() != 0 {
		t.Errorf("buffer not reset after flush: len=%d truncated=%d", w.Len(), w.Truncated())
	}
}

func TestBufferWriterEmptyFlushWritesNothing(t *testing.T) {
	w := NewBufferWriter(64)
	out := &captureConsole{}

	w.FlushToConsole(out)
	if len(out.writes) != 0 {
		t.Errorf("empty flush produced %d console writes, want 0", len(out.writes))
	}
}

func TestBufferWriterTruncation(t *testing.T) {
	capacity := 64
	w := NewBufferWriter(capacity)
	out := &captureConsole{}

	long := strings.Repeat("x", 500)
	n, err := w.WriteString(long)
	if err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if n != len(long) {
		t.Errorf("Write returned %d, want %d (writes never fail)", n, len(long))
	}
	if w.Truncated() == 0 {
		t.Fatal("expected truncation to be recorded")
	}

	w.FlushToConsole(out)
	got := out.joined()

	if len(got) > capacity {
		t.Errorf("flushed %d bytes, exceeds capacity %d", len(got), capacity)
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Errorf("flushed output does not end with the truncation marker: %q", got)
	}
	if !strings.HasPrefix(got, "x") {
		t.Errorf("flushed output lost leading content: %q", got)
	}
}

func TestBufferWriterExactFit(t *testing.T) {
	w := NewBufferWriter(64)
	out := &captureConsole{}

	fill := strings.Repeat("y", 64-len(TruncationMarker))
	if _, err := w.WriteString(fill); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if w.Truncated() != 0 {
		t.Fatalf("exact fit reported %d truncated bytes", w.Truncated())
	}

	w.FlushToConsole(out)
	if got := out.joined(); got != fill {
		t.Errorf("flushed output = %q, want the unmarked fill", got)
	}
}

func TestBufferWriterStartOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		writes []string
		want   string
	}{
		{
			name:   "offset within first write",
			offset: 6,
			writes: []string{"hello world"},
			want:   "world",
		},
		{
			name:   "offset spans writes",
			offset: 8,
			writes: []string{"hello ", "wide ", "world"},
			want:   "de world",
		},
		{
			name:   "offset consumes everything",
			offset: 50,
			writes: []string{"short"},
			want:   "",
		},
		{
			name:   "zero offset",
			offset: 0,
			writes: []string{"all of it"},
			want:   "all of it",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewBufferWriter(128)
			w.SetStartOffset(tt.offset)
			for _, s := range tt.writes {
				if _, err := w.WriteString(s); err != nil {
					t.Fatalf("WriteString failed: %v", err)
				}
			}

			out := &captureConsole{}
			w.FlushToConsole(out)
			if got := out.joined(); got != tt.want {
				t.Errorf("flushed output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBufferWriterOffsetClearedOnFlush(t *testing.T) {
	w := NewBufferWriter(128)

	// An offset larger than the whole output consumes everything, so the
	// flush emits nothing. The leftover offset must not survive into the
	// buffer's next use.
	w.SetStartOffset(100)
	if _, err := w.WriteString("short"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	empty := &captureConsole{}
	w.FlushToConsole(empty)
	if len(empty.writes) != 0 {
		t.Fatalf("consumed output still produced %d console writes", len(empty.writes))
	}

	if _, err := w.WriteString("next command"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	out := &captureConsole{}
	w.FlushToConsole(out)
	if got := out.joined(); got != "next command" {
		t.Errorf("output after consumed offset = %q, want %q", got, "next command")
	}
}

func TestBufferWriterTinyCapacityRaised(t *testing.T) {
	// A capacity smaller than the marker would make limit() negative;
	// the constructor must raise it to something usable.
	w := NewBufferWriter(4)
	if _, err := w.WriteString("z"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}

	out := &captureConsole{}
	w.FlushToConsole(out)
	if !strings.Contains(out.joined(), "z") {
		t.Errorf("tiny buffer lost its content: %q", out.joined())
	}
}
