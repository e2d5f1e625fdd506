package transport

import (
	"go.uber.org/zap"

	"github.com/muurk/fwdbg/internal/logging"
	"github.com/muurk/fwdbg/internal/protocol"
)

// TruncationMarker is appended to flushed monitor output when writes did
// not fit in the buffer.
const TruncationMarker = "\n...[output truncated]"

// DefaultMonitorBufferSize is the monitor output buffer capacity used by
// the debugger. Sized to hold a full help screen plus headroom.
const DefaultMonitorBufferSize = 0x1000

// BufferWriter accumulates monitor command output so it can be emitted as
// a single console write. Writes beyond capacity are counted as truncated
// rather than erroring; space for the truncation marker is reserved up
// front so it can always be appended at flush time.
//
// An optional start offset consumes and discards the first N bytes written,
// which lets a client resume long output after a previous truncated flush.
type BufferWriter struct {
	buf       []byte
	pos       int
	truncated int
	skip      int
}

// NewBufferWriter creates a buffer with the given capacity. The capacity
// must exceed the truncation marker length; anything smaller is raised to
// the minimum usable size.
func NewBufferWriter(capacity int) *BufferWriter {
	if capacity <= len(TruncationMarker) {
		capacity = len(TruncationMarker) + 1
	}
	return &BufferWriter{buf: make([]byte, capacity)}
}

// SetStartOffset discards the first n bytes subsequently written. Must be
// called before any writes.
func (w *BufferWriter) SetStartOffset(n int) {
	if n > 0 {
		w.skip = n
	}
}

// limit is the write cursor ceiling: capacity minus the reserved marker
// tail. The invariant pos <= limit holds until flush.
func (w *BufferWriter) limit() int {
	return len(w.buf) - len(TruncationMarker)
}

// Write buffers p, consuming any remaining start offset first. It never
// fails; bytes that do not fit are counted as truncated.
func (w *BufferWriter) Write(p []byte) (int, error) {
	total := len(p)

	if w.skip > 0 {
		if w.skip >= len(p) {
			w.skip -= len(p)
			return total, nil
		}
		p = p[w.skip:]
		w.skip = 0
	}

	n := len(p)
	if free := w.limit() - w.pos; n > free {
		n = free
	}
	copy(w.buf[w.pos:], p[:n])
	w.pos += n
	w.truncated += len(p) - n

	return total, nil
}

// WriteString buffers s.
func (w *BufferWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Len returns the number of buffered bytes.
func (w *BufferWriter) Len() int {
	return w.pos
}

// Truncated returns the number of bytes dropped since the last flush.
func (w *BufferWriter) Truncated() int {
	return w.truncated
}

// FlushToConsole emits the accumulated output as one console write and
// resets the buffer. If any bytes were truncated, the truncation marker is
// appended first using the reserved tail.
func (w *BufferWriter) FlushToConsole(out protocol.ConsoleWriter) {
	if w.pos == 0 && w.truncated == 0 {
		// Still reset: an oversized start offset may have swallowed the
		// whole output and must not carry into the next command.
		w.Reset()
		return
	}

	if w.truncated > 0 {
		logging.Warn("Truncated monitor output",
			zap.Int("dropped_bytes", w.truncated),
		)
		w.pos += copy(w.buf[w.pos:], TruncationMarker)
	}

	out.WriteConsole(w.buf[:w.pos])
	w.Reset()
}

// Reset clears the cursor, truncation count and any unconsumed start
// offset. The buffer is reused across commands, so a stale offset would
// eat the head of the next command's output.
func (w *BufferWriter) Reset() {
	w.pos = 0
	w.truncated = 0
	w.skip = 0
}
